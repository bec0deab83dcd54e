package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// DefaultRecvWindow is how long the server accepts a query-signed request.
const DefaultRecvWindow = 5 * time.Second

// QueryHMAC signs the URL-encoded parameter string with HMAC-SHA256 and appends
// the hex digest as a trailing signature parameter. Parameters are encoded in
// key order, so equal inputs always produce the same query.
type QueryHMAC struct {
	RecvWindow time.Duration
}

func (QueryHMAC) Name() string { return "query-hmac-sha256" }
func (QueryHMAC) signer()      {}

func (s QueryHMAC) Sign(cred Credential, sc SigningContext) (Material, error) {
	_, secret, err := sharedSecret(s.Name(), cred)
	if err != nil {
		return Material{}, err
	}

	params := make(url.Values, len(sc.Params)+2)
	for k, v := range sc.Params {
		params[k] = append([]string(nil), v...)
	}

	window := s.RecvWindow
	if window <= 0 {
		window = DefaultRecvWindow
	}
	params.Set("recvWindow", strconv.FormatInt(window.Milliseconds(), 10))
	params.Set("timestamp", strconv.FormatInt(sc.Timestamp.UnixMilli(), 10))

	payload := params.Encode()
	signature := hex.EncodeToString(hmacSum(sha256.New, secret, payload))

	return Material{SignedQuery: payload + "&signature=" + signature}, nil
}
