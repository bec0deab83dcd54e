// Package binance implements the Binance spot account API.
//
// Signed calls use query-string HMAC-SHA256 signatures with a receive window.
// Every response reports the weight used in the current minute through the
// X-MBX-USED-WEIGHT-1M header; the dispatcher backs off when the next call
// would not fit.
//
// Example usage:
//
//	config := core.DefaultConfig(core.ExchangeBinance).WithCredentials(creds)
//	ex, err := binance.New(config)
//	balance, err := ex.Balance(ctx)
package binance
