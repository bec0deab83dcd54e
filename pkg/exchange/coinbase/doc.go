// Package coinbase implements the Coinbase App v2 accounts and transactions API.
//
// Calls carry a short-lived ES256 JWT bound to the method, host and path. The
// sandbox does not accept tokens, so nothing is signed there.
package coinbase
