package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"nakula/pkg/core"
)

// ParseECDSAKey accepts a P-256 private key as a PKCS#8 ("PRIVATE KEY") or SEC1
// ("EC PRIVATE KEY") PEM block and returns it with its PKCS#8 DER encoding.
// Escaped newlines, as found in environment variables, are accepted.
func ParseECDSAKey(pemText string) (*ecdsa.PrivateKey, []byte, error) {
	text := strings.TrimSpace(strings.ReplaceAll(pemText, `\n`, "\n"))
	if text == "" {
		return nil, nil, errNoCredentials("ecdsa key")
	}

	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, nil, errInvalidKey("private key is not PEM encoded", nil)
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, errInvalidKey("parse SEC1 private key", fmt.Errorf("%w: %v", core.ErrInvalidKey, err))
		}
		key = k
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, errInvalidKey("parse PKCS#8 private key", fmt.Errorf("%w: %v", core.ErrInvalidKey, err))
		}
		k, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, nil, errInvalidKey(fmt.Sprintf("PKCS#8 key is %T, want ECDSA", parsed), nil)
		}
		key = k
	default:
		return nil, nil, errInvalidKey("unsupported PEM block type "+block.Type, nil)
	}

	if key.Curve != elliptic.P256() {
		return nil, nil, errInvalidKey("private key curve is "+key.Curve.Params().Name+", want P-256", nil)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, errInvalidKey("encode PKCS#8 private key", fmt.Errorf("%w: %v", core.ErrInvalidKey, err))
	}
	normalized, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, nil, errInvalidKey("reparse PKCS#8 private key", fmt.Errorf("%w: %v", core.ErrInvalidKey, err))
	}
	return normalized.(*ecdsa.PrivateKey), der, nil
}
