package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

type mockSource struct {
	name   string
	asset  string
	amount float64
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (m *mockSource) Name() string { return m.name }
func (m *mockSource) Close() error { return nil }

func (m *mockSource) ReferenceBalance(ctx context.Context) (*core.AssetBalance, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	asset := m.asset
	if asset == "" {
		asset = "BTC"
	}
	b := core.NewAssetBalance(m.name, asset)
	if err := b.Add(m.amount); err != nil {
		return nil, err
	}
	return b, nil
}

func TestNewAggregator(t *testing.T) {
	agg := NewAggregator()
	assert.NotNil(t, agg)
	assert.Empty(t, agg.Sources())
	assert.Equal(t, 0, agg.GetStats().TotalExchanges)
}

func TestAggregator_AddRemoveSources(t *testing.T) {
	agg := NewAggregator()

	agg.AddSource("okx", &mockSource{name: "okx"})
	agg.AddSource("binance", &mockSource{name: "binance"})
	assert.Equal(t, []string{"binance", "okx"}, agg.Sources())

	agg.RemoveSource("binance")
	assert.Equal(t, []string{"okx"}, agg.Sources())
}

func TestAggregator_GetBalances(t *testing.T) {
	agg := NewAggregator()
	failing := &mockSource{name: "bitfinex", err: errors.New("boom")}
	agg.AddSource("okx", &mockSource{name: "okx", amount: 0.1})
	agg.AddSource("bitfinex", failing)
	agg.AddSource("binance", &mockSource{name: "binance", amount: 1.5})

	results := agg.GetBalances(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, "binance", results[0].Exchange)
	assert.Equal(t, "1.5", results[0].Balance.Total.String())
	assert.Equal(t, "bitfinex", results[1].Exchange)
	assert.Nil(t, results[1].Balance)
	assert.ErrorIs(t, results[1].Error, failing.err)
	assert.Equal(t, "okx", results[2].Exchange)
	assert.False(t, agg.GetStats().LastUpdate.IsZero())
}

func TestAggregator_GetTotal(t *testing.T) {
	agg := NewAggregator()
	agg.AddSource("okx", &mockSource{name: "okx", amount: 0.1})
	agg.AddSource("coinbase", &mockSource{name: "coinbase", amount: 0.2})
	agg.AddSource("bitfinex", &mockSource{name: "bitfinex", err: errors.New("down")})

	h, err := agg.GetTotal(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "BTC", h.Asset)
	assert.Equal(t, "0.3", h.Total.String())
	require.Len(t, h.ByExchange, 2)
	okx := h.ByExchange["okx"]
	assert.Equal(t, "0.1", okx.String())
	assert.Contains(t, h.Failed, "bitfinex")
}

func TestAggregator_GetTotalAllFailed(t *testing.T) {
	agg := NewAggregator()
	cause := errors.New("down")
	agg.AddSource("okx", &mockSource{name: "okx", err: cause})

	_, err := agg.GetTotal(context.Background())

	assert.ErrorIs(t, err, cause)
}

func TestAggregator_GetTotalNoSources(t *testing.T) {
	_, err := NewAggregator().GetTotal(context.Background())
	assert.Error(t, err)
}

func TestAggregator_GetTotalMixedAssets(t *testing.T) {
	agg := NewAggregator()
	agg.AddSource("okx", &mockSource{name: "okx", amount: 1})
	agg.AddSource("coinbase", &mockSource{name: "coinbase", asset: "ETH", amount: 1})

	_, err := agg.GetTotal(context.Background())

	assert.ErrorContains(t, err, "mixed reference assets")
}

func TestAggregator_Concurrent(t *testing.T) {
	agg := NewAggregator()
	for _, name := range []string{"a", "b", "c", "d"} {
		agg.AddSource(name, &mockSource{name: name, amount: 1, delay: 100 * time.Millisecond})
	}

	start := time.Now()
	h, err := agg.GetTotal(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "4", h.Total.String())
	assert.Less(t, time.Since(start), 350*time.Millisecond)
}

func TestAggregator_CanceledContext(t *testing.T) {
	agg := NewAggregator()
	src := &mockSource{name: "okx", amount: 1}
	agg.AddSource("okx", src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := agg.GetBalances(ctx)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestFromContainer(t *testing.T) {
	c := exchange.NewContainer()
	c.Register("okx", &mockSource{name: "okx", amount: 2})
	c.Register("binance", &mockSource{name: "binance", amount: 3})

	agg := FromContainer(c, zerolog.Nop())

	assert.Equal(t, []string{"binance", "okx"}, agg.Sources())
	h, err := agg.GetTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5", h.Total.String())
}
