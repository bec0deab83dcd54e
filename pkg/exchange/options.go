package exchange

import (
	"time"

	"nakula/pkg/core"
)

// Option tunes a single history or balance call on a facade.
type Option func(*Options)

// Options is the resolved set of per-call filters. Zero fields mean the
// exchange default: no limit, no time bound, spot instruments.
type Options struct {
	Limit      int
	StartTime  time.Time
	EndTime    time.Time
	MarketType core.MarketType
}

// WithLimit caps the number of records the exchange returns per call.
// Non-positive values leave the exchange default in place.
func WithLimit(limit int) Option {
	return func(o *Options) {
		if limit > 0 {
			o.Limit = limit
		}
	}
}

// WithTimeRange bounds history to [start, end]. Either end may be zero to
// leave that side open.
func WithTimeRange(start, end time.Time) Option {
	return func(o *Options) {
		o.StartTime = start
		o.EndTime = end
	}
}

// WithMarketType selects the instrument family for trade history. Only OKX
// reads it.
func WithMarketType(mt core.MarketType) Option {
	return func(o *Options) {
		o.MarketType = mt
	}
}

// ApplyOptions folds opts over the defaults, later options winning.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
