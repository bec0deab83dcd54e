// Package okx implements the OKX v5 account, asset and trade endpoints.
//
// Requests are signed with the passphrase scheme: an HMAC-SHA256 over
// timestamp, method, path with query and body, sent in the OK-ACCESS-* headers.
// Every payload is wrapped in a {code, msg, data} envelope; code "0" is success.
package okx
