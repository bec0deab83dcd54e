// Package aggregator queries reference balances from several exchanges
// concurrently and totals them.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

type Aggregator struct {
	mu         sync.RWMutex
	sources    map[string]exchange.BalanceSource
	logger     zerolog.Logger
	lastUpdate time.Time
}

func NewAggregator() *Aggregator {
	return NewAggregatorWithLogger(zerolog.Nop())
}

func NewAggregatorWithLogger(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		sources: make(map[string]exchange.BalanceSource),
		logger:  logger,
	}
}

// FromContainer adds every balance source registered in c.
func FromContainer(c *exchange.Container, logger zerolog.Logger) *Aggregator {
	a := NewAggregatorWithLogger(logger)
	for name, src := range c.BalanceSources() {
		a.AddSource(name, src)
	}
	return a
}

func (a *Aggregator) AddSource(name string, src exchange.BalanceSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources[name] = src
}

func (a *Aggregator) RemoveSource(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sources, name)
}

func (a *Aggregator) Sources() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.sources))
	for name := range a.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BalanceResult is the outcome for one exchange. Exactly one of Balance and
// Error is set.
type BalanceResult struct {
	Exchange string             `json:"exchange"`
	Balance  *core.AssetBalance `json:"balance,omitempty"`
	Error    error              `json:"error,omitempty"`
}

// GetBalances asks every source for its reference balance at once. A failing
// exchange does not affect the others. Results are sorted by exchange name.
func (a *Aggregator) GetBalances(ctx context.Context) []BalanceResult {
	a.mu.RLock()
	sources := make(map[string]exchange.BalanceSource, len(a.sources))
	maps.Copy(sources, a.sources)
	a.mu.RUnlock()

	results := make([]BalanceResult, 0, len(sources))
	resultChan := make(chan BalanceResult, len(sources))
	var wg sync.WaitGroup

	for name, src := range sources {
		wg.Add(1)
		go func(exchangeName string, s exchange.BalanceSource) {
			defer wg.Done()

			result := BalanceResult{Exchange: exchangeName}

			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				resultChan <- result
				return
			default:
			}

			balance, err := s.ReferenceBalance(ctx)
			if err != nil {
				a.logger.Warn().Err(err).Str("exchange", exchangeName).Msg("reference balance failed")
				result.Error = fmt.Errorf("reference balance: %w", err)
				resultChan <- result
				return
			}

			result.Balance = balance
			resultChan <- result
		}(name, src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Exchange < results[j].Exchange })

	a.mu.Lock()
	a.lastUpdate = time.Now()
	a.mu.Unlock()

	return results
}

// Holdings is the sum of the reference balances that could be fetched.
type Holdings struct {
	Asset       string                 `json:"asset"`
	Total       apd.Decimal            `json:"total"`
	ByExchange  map[string]apd.Decimal `json:"by_exchange"`
	Failed      map[string]error       `json:"-"`
	RetrievedAt time.Time              `json:"retrieved_at"`
}

// GetTotal sums the balances of every source. Exchanges that fail are listed
// in Failed; the call itself fails only when no exchange answered or when the
// exchanges report different assets.
func (a *Aggregator) GetTotal(ctx context.Context) (*Holdings, error) {
	results := a.GetBalances(ctx)

	h := &Holdings{
		ByExchange:  make(map[string]apd.Decimal),
		Failed:      make(map[string]error),
		RetrievedAt: time.Now(),
	}
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			h.Failed[r.Exchange] = r.Error
			errs = append(errs, fmt.Errorf("%s: %w", r.Exchange, r.Error))
			continue
		}

		if h.Asset == "" {
			h.Asset = r.Balance.Asset
		} else if h.Asset != r.Balance.Asset {
			return nil, fmt.Errorf("mixed reference assets: %s reports %s, expected %s",
				r.Exchange, r.Balance.Asset, h.Asset)
		}

		if _, err := apd.BaseContext.Add(&h.Total, &h.Total, &r.Balance.Total); err != nil {
			return nil, fmt.Errorf("sum %s balance: %w", r.Exchange, err)
		}
		var amount apd.Decimal
		amount.Set(&r.Balance.Total)
		h.ByExchange[r.Exchange] = amount
	}

	if len(h.ByExchange) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no balance sources")
		}
		return nil, fmt.Errorf("no balance available: %w", errors.Join(errs...))
	}
	return h, nil
}

type AggregateStats struct {
	TotalExchanges int       `json:"total_exchanges"`
	LastUpdate     time.Time `json:"last_update"`
}

func (a *Aggregator) GetStats() *AggregateStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return &AggregateStats{
		TotalExchanges: len(a.sources),
		LastUpdate:     a.lastUpdate,
	}
}
