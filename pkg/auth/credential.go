package auth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nakula/pkg/core"
)

const redacted = "[REDACTED]"

// Kind identifies the credential variant.
type Kind int

const (
	KindNone Kind = iota
	KindHMAC
	KindPassphrase
	KindECDSA
)

func (k Kind) String() string {
	switch k {
	case KindHMAC:
		return "hmac"
	case KindPassphrase:
		return "passphrase"
	case KindECDSA:
		return "ecdsa"
	default:
		return "none"
	}
}

// Credential is the closed set of secret material a facade can be built with.
type Credential interface {
	Kind() Kind
	// APIKey returns the public key identifier, empty for None.
	APIKey() string
	String() string
	GoString() string
	MarshalZerologObject(e *zerolog.Event)
	credential()
}

// None is used for public endpoints only. Signing with it fails.
type None struct{}

func (None) Kind() Kind                            { return KindNone }
func (None) APIKey() string                        { return "" }
func (None) String() string                        { return "None" }
func (None) GoString() string                      { return "auth.None{}" }
func (None) MarshalZerologObject(e *zerolog.Event) { e.Str("kind", KindNone.String()) }
func (None) credential()                           {}

// HMACKeys is an API key with a shared secret.
type HMACKeys struct {
	apiKey    string
	secretKey string
}

func NewHMACKeys(apiKey, secretKey string) HMACKeys {
	return HMACKeys{apiKey: apiKey, secretKey: secretKey}
}

func (k HMACKeys) Kind() Kind     { return KindHMAC }
func (k HMACKeys) APIKey() string { return k.apiKey }
func (k HMACKeys) credential()    {}

func (k HMACKeys) String() string {
	return fmt.Sprintf("HMACKeys{APIKey:%s, SecretKey:%s}", core.MaskSecret(k.apiKey), redacted)
}

func (k HMACKeys) GoString() string { return "auth." + k.String() }

func (k HMACKeys) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", KindHMAC.String()).
		Str("api_key", core.MaskSecret(k.apiKey)).
		Str("secret_key", redacted)
}

// PassphraseKeys is an API key with a shared secret and an account passphrase.
type PassphraseKeys struct {
	apiKey     string
	secretKey  string
	passphrase string
}

func NewPassphraseKeys(apiKey, secretKey, passphrase string) PassphraseKeys {
	return PassphraseKeys{apiKey: apiKey, secretKey: secretKey, passphrase: passphrase}
}

func (k PassphraseKeys) Kind() Kind     { return KindPassphrase }
func (k PassphraseKeys) APIKey() string { return k.apiKey }
func (k PassphraseKeys) credential()    {}

func (k PassphraseKeys) String() string {
	return fmt.Sprintf("PassphraseKeys{APIKey:%s, SecretKey:%s, Passphrase:%s}",
		core.MaskSecret(k.apiKey), redacted, redacted)
}

func (k PassphraseKeys) GoString() string { return "auth." + k.String() }

func (k PassphraseKeys) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", KindPassphrase.String()).
		Str("api_key", core.MaskSecret(k.apiKey)).
		Str("secret_key", redacted).
		Str("passphrase", redacted)
}

// ECDSAKeys is an API key name with a P-256 private key, normalized to PKCS#8.
type ECDSAKeys struct {
	apiKey string
	key    *ecdsa.PrivateKey
}

// NewECDSAKeys parses privateKeyPEM (PKCS#8 or SEC1) and fails with an
// INVALID_KEY auth error when it is not a usable P-256 key.
func NewECDSAKeys(apiKey, privateKeyPEM string) (ECDSAKeys, error) {
	key, _, err := ParseECDSAKey(privateKeyPEM)
	if err != nil {
		return ECDSAKeys{}, err
	}
	return ECDSAKeys{apiKey: apiKey, key: key}, nil
}

func (k ECDSAKeys) Kind() Kind     { return KindECDSA }
func (k ECDSAKeys) APIKey() string { return k.apiKey }
func (k ECDSAKeys) credential()    {}

// PublicKey returns the public half of the key, nil for a zero value.
func (k ECDSAKeys) PublicKey() *ecdsa.PublicKey {
	if k.key == nil {
		return nil
	}
	return &k.key.PublicKey
}

func (k ECDSAKeys) String() string {
	return fmt.Sprintf("ECDSAKeys{APIKey:%s, PrivateKey:%s}", maskKeyName(k.apiKey), redacted)
}

func (k ECDSAKeys) GoString() string { return "auth." + k.String() }

func (k ECDSAKeys) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", KindECDSA.String()).
		Str("api_key", maskKeyName(k.apiKey)).
		Str("private_key", redacted)
}

// Coinbase key names look like organizations/{org}/apiKeys/{id}; only the
// trailing id is masked.
func maskKeyName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i+1] + core.MaskSecret(name[i+1:])
	}
	return core.MaskSecret(name)
}

// FromConfig builds the credential variant each exchange expects.
// A nil config yields None.
func FromConfig(exchange string, cfg *core.CredentialsConfig) (Credential, error) {
	if cfg == nil || cfg.APIKey == "" {
		return None{}, nil
	}

	switch exchange {
	case core.ExchangeOKX:
		return NewPassphraseKeys(cfg.APIKey, cfg.SecretKey, cfg.Passphrase), nil
	case core.ExchangeCoinbase:
		return NewECDSAKeys(cfg.APIKey, cfg.PrivateKeyPEM)
	default:
		return NewHMACKeys(cfg.APIKey, cfg.SecretKey), nil
	}
}
