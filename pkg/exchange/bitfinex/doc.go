// Package bitfinex implements the Bitfinex v2 authenticated read API.
//
// Every call is a POST whose headers carry a strictly increasing nonce and an
// HMAC-SHA384 signature over the endpoint path, the nonce and the JSON body.
// Responses are positional arrays and are decoded slot by slot.
package bitfinex
