package auth

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nakula/pkg/core"
)

const (
	// DefaultJWTIssuer is the issuer claim Coinbase expects.
	DefaultJWTIssuer = "cdp"
	// DefaultJWTTTL is the validity window of one token.
	DefaultJWTTTL = 120 * time.Second

	jwtNonceBytes = 48
)

// BearerJWT signs a short-lived ES256 token bound to one method, host and path
// and sends it as an Authorization bearer header.
type BearerJWT struct {
	Issuer string
	TTL    time.Duration
}

type jwtClaims struct {
	jwt.RegisteredClaims
	URI string `json:"uri"`
}

func (BearerJWT) Name() string { return "bearer-jwt-es256" }
func (BearerJWT) signer()      {}

func (s BearerJWT) Sign(cred Credential, sc SigningContext) (Material, error) {
	token, err := s.Token(cred, sc)
	if err != nil {
		return Material{}, err
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := checkHeaders(headers); err != nil {
		return Material{}, err
	}
	return Material{Headers: headers}, nil
}

// Token builds the compact JWT without wrapping it into a header.
func (s BearerJWT) Token(cred Credential, sc SigningContext) (string, error) {
	var keys ECDSAKeys
	switch c := cred.(type) {
	case ECDSAKeys:
		keys = c
	case nil, None:
		return "", errNoCredentials(s.Name())
	default:
		return "", errInvalidKey(s.Name()+" signing needs an ECDSA key, got "+cred.Kind().String(), nil)
	}
	if keys.apiKey == "" {
		return "", errNoCredentials(s.Name())
	}
	if keys.key == nil {
		return "", errInvalidKey(s.Name()+" private key is missing", nil)
	}

	issuer := s.Issuer
	if issuer == "" {
		issuer = DefaultJWTIssuer
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultJWTTTL
	}

	random := sc.Rand
	if random == nil {
		random = rand.Reader
	}
	nonce := make([]byte, jwtNonceBytes)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return "", core.NewSignatureError("read jwt nonce", err)
	}

	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   keys.apiKey,
			Issuer:    issuer,
			NotBefore: jwt.NewNumericDate(sc.Timestamp),
			ExpiresAt: jwt.NewNumericDate(sc.Timestamp.Add(ttl)),
		},
		URI: strings.ToUpper(sc.Method) + " " + sc.Host + sc.Path,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header = map[string]any{
		"alg":   jwt.SigningMethodES256.Alg(),
		"kid":   keys.apiKey,
		"nonce": base64.RawURLEncoding.EncodeToString(nonce),
	}

	signed, err := token.SignedString(keys.key)
	if err != nil {
		return "", core.NewSignatureError("sign jwt", err)
	}
	return signed, nil
}
