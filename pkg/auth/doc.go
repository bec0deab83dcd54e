// Package auth holds exchange credentials and the request signers that turn them
// into authentication material.
//
// A Credential is one of None, HMACKeys, PassphraseKeys or ECDSAKeys. It is
// immutable and redacts its secrets from every string and log representation.
//
// A Signer is one of QueryHMAC, HeaderHMAC384, PassphraseHMAC or BearerJWT. Signing
// is a pure function of the credential and the SigningContext: timestamps and
// nonces are inputs, never read from a clock inside Sign.
//
//	cred := auth.NewPassphraseKeys(key, secret, passphrase)
//	material, err := auth.PassphraseHMAC{}.Sign(cred, auth.SigningContext{
//		Method:    "GET",
//		Path:      "/api/v5/account/balance",
//		Query:     "ccy=BTC",
//		Timestamp: time.Now(),
//	})
package auth
