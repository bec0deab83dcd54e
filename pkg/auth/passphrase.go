package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// PassphraseTimestampFormat is ISO-8601 with milliseconds and a literal Z.
const PassphraseTimestampFormat = "2006-01-02T15:04:05.000Z"

// PassphraseHMAC signs timestamp + method + path(+query) + body with HMAC-SHA256,
// base64 encoded, and sends it with the key, timestamp and passphrase headers.
type PassphraseHMAC struct{}

func (PassphraseHMAC) Name() string { return "passphrase-hmac-sha256" }
func (PassphraseHMAC) signer()      {}

func (s PassphraseHMAC) Sign(cred Credential, sc SigningContext) (Material, error) {
	keys, ok := cred.(PassphraseKeys)
	if !ok {
		if _, _, err := sharedSecret(s.Name(), cred); err != nil {
			return Material{}, err
		}
		return Material{}, errInvalidKey(s.Name()+" signing needs a passphrase", nil)
	}
	apiKey, secret, err := sharedSecret(s.Name(), keys)
	if err != nil {
		return Material{}, err
	}

	ts := sc.Timestamp.UTC().Format(PassphraseTimestampFormat)
	payload := ts + strings.ToUpper(sc.Method) + sc.RequestPath() + string(sc.Body)
	signature := base64.StdEncoding.EncodeToString(hmacSum(sha256.New, secret, payload))

	headers := map[string]string{
		"OK-ACCESS-KEY":        apiKey,
		"OK-ACCESS-SIGN":       signature,
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": keys.passphrase,
	}
	if err := checkHeaders(headers); err != nil {
		return Material{}, err
	}
	return Material{Headers: headers}, nil
}
