package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"
)

// BitfinexSignaturePrefix precedes the endpoint path in the signed string.
const BitfinexSignaturePrefix = "/api/v2/auth/r/"

// HeaderHMAC384 signs prefix + path + nonce + body with HMAC-SHA384 and sends
// the hex digest in headers together with the nonce and API key.
// sc.Path is the endpoint below the prefix, e.g. "wallets".
type HeaderHMAC384 struct {
	Prefix string
}

func (HeaderHMAC384) Name() string { return "header-hmac-sha384" }
func (HeaderHMAC384) signer()      {}

func (s HeaderHMAC384) Sign(cred Credential, sc SigningContext) (Material, error) {
	apiKey, secret, err := sharedSecret(s.Name(), cred)
	if err != nil {
		return Material{}, err
	}

	prefix := s.Prefix
	if prefix == "" {
		prefix = BitfinexSignaturePrefix
	}

	nonce := sc.Nonce
	if nonce == 0 {
		nonce = uint64(sc.Timestamp.UnixMilli())
	}
	nonceStr := strconv.FormatUint(nonce, 10)

	payload := prefix + sc.Path + nonceStr + string(sc.Body)
	signature := hex.EncodeToString(hmacSum(sha512.New384, secret, payload))

	headers := map[string]string{
		"bfx-nonce":     nonceStr,
		"bfx-apikey":    apiKey,
		"bfx-signature": signature,
	}
	if err := checkHeaders(headers); err != nil {
		return Material{}, err
	}
	return Material{Headers: headers}, nil
}

// NonceSource hands out strictly increasing millisecond nonces, even when called
// more than once per millisecond or concurrently.
type NonceSource struct {
	last atomic.Uint64
	now  func() time.Time
}

func NewNonceSource() *NonceSource {
	return newNonceSource(time.Now)
}

func newNonceSource(now func() time.Time) *NonceSource {
	return &NonceSource{now: now}
}

func (n *NonceSource) Next() uint64 {
	for {
		prev := n.last.Load()
		next := uint64(n.now().UnixMilli())
		if next <= prev {
			next = prev + 1
		}
		if n.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
