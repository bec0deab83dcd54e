package auth

import (
	"crypto/hmac"
	"hash"
	"io"
	"net/url"
	"time"

	"golang.org/x/net/http/httpguts"

	"nakula/pkg/core"
)

// SigningContext is everything a signer may cover. It is built fresh for every
// attempt of every request.
type SigningContext struct {
	Method string
	// Host is the authority of the API root, e.g. api.coinbase.com.
	Host string
	// Path is the request path without query, or the signer-specific path suffix.
	Path string
	// Params are the unsigned parameters for query signing.
	Params url.Values
	// Query is an already encoded query string covered by header signatures.
	Query string
	Body  []byte

	Timestamp time.Time
	// Nonce overrides the timestamp-derived nonce when non-zero.
	Nonce uint64
	// Rand supplies JWT nonce bytes; crypto/rand is used when nil.
	Rand io.Reader
}

// RequestPath returns Path joined with Query.
func (sc SigningContext) RequestPath() string {
	if sc.Query == "" {
		return sc.Path
	}
	return sc.Path + "?" + sc.Query
}

// Material is the result of signing: either headers to attach or a signed query
// string to send verbatim.
type Material struct {
	Headers     map[string]string
	SignedQuery string
}

// Apply attaches the material to req.
func (m Material) Apply(req *core.Request) {
	for k, v := range m.Headers {
		req.SetHeader(k, v)
	}
	if m.SignedQuery != "" {
		req.RawQuery = m.SignedQuery
		req.Query = nil
	}
}

// Signer is implemented by QueryHMAC, HeaderHMAC384, PassphraseHMAC and BearerJWT.
type Signer interface {
	// Name identifies the scheme in logs.
	Name() string
	Sign(cred Credential, sc SigningContext) (Material, error)
	signer()
}

func hmacSum(newHash func() hash.Hash, secret, payload string) []byte {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// ValidHeaderValue reports whether v can be sent as an HTTP header value:
// printable ASCII only.
func ValidHeaderValue(v string) bool {
	if !httpguts.ValidHeaderFieldValue(v) {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return false
		}
	}
	return true
}

func checkHeaders(headers map[string]string) error {
	for name, v := range headers {
		if !ValidHeaderValue(v) {
			return core.NewAuthError(core.ErrCodeInvalidHeader,
				"header "+name+" contains characters that cannot be transmitted", core.ErrInvalidHeader)
		}
	}
	return nil
}

func errNoCredentials(scheme string) error {
	return core.NewAuthError(core.ErrCodeNoCredentials,
		scheme+" signing requires credentials", core.ErrNoCredentials)
}

func errInvalidKey(message string, cause error) error {
	if cause == nil {
		cause = core.ErrInvalidKey
	}
	return core.NewAuthError(core.ErrCodeInvalidKey, message, cause)
}

// sharedSecret extracts key and secret from the HMAC-style variants.
func sharedSecret(scheme string, cred Credential) (apiKey, secret string, err error) {
	switch c := cred.(type) {
	case HMACKeys:
		apiKey, secret = c.apiKey, c.secretKey
	case PassphraseKeys:
		apiKey, secret = c.apiKey, c.secretKey
	case nil, None:
		return "", "", errNoCredentials(scheme)
	default:
		return "", "", errInvalidKey(scheme+" signing needs a shared secret, got "+cred.Kind().String(), nil)
	}
	if apiKey == "" {
		return "", "", errNoCredentials(scheme)
	}
	if secret == "" {
		return "", "", errInvalidKey(scheme+" secret key is empty", nil)
	}
	return apiKey, secret, nil
}
