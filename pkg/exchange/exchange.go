// Package exchange defines what every exchange facade offers and a registry
// that holds configured facades by name.
package exchange

import (
	"context"

	"nakula/pkg/core"
)

// Exchange is the part every facade shares.
type Exchange interface {
	Name() string
	Close() error
}

// BalanceSource is a facade that can report how much of its configured
// reference asset the account holds.
type BalanceSource interface {
	Exchange
	ReferenceBalance(ctx context.Context) (*core.AssetBalance, error)
}
