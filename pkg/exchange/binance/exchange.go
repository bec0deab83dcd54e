package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"nakula/internal/dispatch"
	"nakula/internal/memo"
	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/auth"
	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// maxConcurrentPairs bounds the fan-out of TradeHistory.
const maxConcurrentPairs = 4

// BinanceExchange is the account-state facade for Binance spot.
type BinanceExchange struct {
	config     *core.Config
	client     *transport.Client
	dispatcher *dispatch.Dispatcher
	protocol   *Protocol
	logger     zerolog.Logger
	pairs      memo.Cell[[]Symbol]
}

// Option is a functional option for configuring the BinanceExchange.
type Option func(*Options)

// Options holds configuration options for the BinanceExchange.
type Options struct {
	Logger zerolog.Logger
}

// WithLogger returns an option that sets the logger for the exchange.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// New creates a BinanceExchange. The config is validated and its credentials
// are turned into an immutable credential before anything is sent.
func New(config *core.Config, opts ...Option) (*BinanceExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger.With().Str("exchange", core.ExchangeBinance).Logger()

	cred, err := auth.FromConfig(core.ExchangeBinance, config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	client, err := transport.NewClient(&transport.Config{
		BaseURL:   baseURL(config),
		Timeout:   config.Timeout,
		UserAgent: config.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	protocol := NewProtocol(cred, config.RecvWindow)
	dispatchOpts := []dispatch.Option{
		dispatch.WithBudget(ratelimit.WeightBudget{
			Header:     UsedWeightHeader,
			MaxWeight:  config.MaxWeightPerWindow,
			Window:     config.WeightWindow,
			MinBackoff: config.MinBackoff,
		}),
		dispatch.WithMaxRetries(config.MaxRateLimitRetries),
		dispatch.WithLogger(logger),
	}
	if config.RateLimitRequests > 0 {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithPacer(ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)))
	}

	return &BinanceExchange{
		config:     config,
		client:     client,
		dispatcher: dispatch.New(protocol, client, dispatchOpts...),
		protocol:   protocol,
		logger:     logger,
	}, nil
}

// baseURL returns the API root: an explicit override, the testnet, or production.
func baseURL(config *core.Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	if config.Sandbox {
		return SandboxURL
	}
	return ProductionURL
}

// Name returns "binance".
func (e *BinanceExchange) Name() string {
	return core.ExchangeBinance
}

// Close releases the HTTP client.
func (e *BinanceExchange) Close() error {
	return e.client.Close()
}

// ExchangeInfo returns trading rules and the symbol list. It is unsigned.
func (e *BinanceExchange) ExchangeInfo(ctx context.Context) (*ExchangeInformation, error) {
	result, err := e.dispatcher.Do(ctx, core.OpExchangeInfo, nil)
	if err != nil {
		return nil, err
	}
	return result.(*ExchangeInformation), nil
}

// Account returns commissions, permissions and every balance of the account.
func (e *BinanceExchange) Account(ctx context.Context) (*AccountInformation, error) {
	result, err := e.dispatcher.Do(ctx, core.OpAccount, nil)
	if err != nil {
		return nil, err
	}
	return result.(*AccountInformation), nil
}

// BalanceForAsset returns the balance of asset, e.g. "BTC".
func (e *BinanceExchange) BalanceForAsset(ctx context.Context, asset string) (*Balance, error) {
	account, err := e.Account(ctx)
	if err != nil {
		return nil, err
	}
	for i := range account.Balances {
		if account.Balances[i].Asset == asset {
			return &account.Balances[i], nil
		}
	}
	return nil, core.NewDomainError(e.Name(), core.ErrCodeAssetNotFound,
		fmt.Sprintf("asset %s not found in account balances", asset))
}

// Balance returns the balance of the configured reference asset.
func (e *BinanceExchange) Balance(ctx context.Context) (*Balance, error) {
	return e.BalanceForAsset(ctx, e.config.ReferenceAsset)
}

// ReferenceBalance returns free plus locked holdings of the reference asset.
func (e *BinanceExchange) ReferenceBalance(ctx context.Context) (*core.AssetBalance, error) {
	balance, err := e.Balance(ctx)
	if err != nil {
		return nil, err
	}
	total := core.NewAssetBalance(e.Name(), balance.Asset)
	for _, amount := range []float64{balance.Free, balance.Locked} {
		if err := total.Add(amount); err != nil {
			return nil, core.NewDomainError(e.Name(), core.ErrCodeDecode, err.Error())
		}
	}
	return total, nil
}

// ReferencePairs returns the symbols whose base or quote is the reference asset.
// The list is fetched once per BinanceExchange and shared afterwards.
func (e *BinanceExchange) ReferencePairs(ctx context.Context) ([]Symbol, error) {
	if e.pairs.Ready() {
		e.logger.Trace().Msg("reference pairs served from cache")
	}
	return e.pairs.Get(ctx, func(ctx context.Context) ([]Symbol, error) {
		info, err := e.ExchangeInfo(ctx)
		if err != nil {
			return nil, err
		}
		pairs := make([]Symbol, 0)
		for _, s := range info.Symbols {
			if s.Involves(e.config.ReferenceAsset) {
				pairs = append(pairs, s)
			}
		}
		e.logger.Debug().Int("pairs", len(pairs)).Msg("reference pairs loaded")
		return pairs, nil
	})
}

// TradeHistoryForPair returns the account's trades on symbol, e.g. "BTCUSDT".
func (e *BinanceExchange) TradeHistoryForPair(ctx context.Context, symbol string, opts ...exchange.Option) ([]Trade, error) {
	options := exchange.ApplyOptions(opts...)

	params := core.Params{"symbol": symbol}
	if options.Limit > 0 {
		params["limit"] = strconv.Itoa(options.Limit)
	}
	if !options.StartTime.IsZero() {
		params["startTime"] = strconv.FormatInt(options.StartTime.UnixMilli(), 10)
	}
	if !options.EndTime.IsZero() {
		params["endTime"] = strconv.FormatInt(options.EndTime.UnixMilli(), 10)
	}

	result, err := e.dispatcher.Do(ctx, core.OpTradeHistory, params)
	if err != nil {
		return nil, err
	}
	return result.([]Trade), nil
}

// TradeHistory returns the trades of every reference pair keyed by symbol.
// Pairs are queried concurrently; the first failure cancels the rest.
func (e *BinanceExchange) TradeHistory(ctx context.Context, opts ...exchange.Option) (map[string][]Trade, error) {
	pairs, err := e.ReferencePairs(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		output   = make(map[string][]Trade, len(pairs))
		sem      = make(chan struct{}, maxConcurrentPairs)
	)

	for _, pair := range pairs {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			trades, err := e.TradeHistoryForPair(ctx, symbol, opts...)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			output[symbol] = trades
		}(pair.Symbol)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return output, nil
}

// Register creates a BinanceExchange and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create binance exchange: %w", err)
	}
	container.Register(core.ExchangeBinance, ex)
	return nil
}
