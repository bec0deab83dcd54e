package bitfinex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"nakula/internal/dispatch"
	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/auth"
	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// BitfinexExchange is the account-state facade for Bitfinex.
type BitfinexExchange struct {
	config     *core.Config
	client     *transport.Client
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger
}

// Option is a functional option for configuring the BitfinexExchange.
type Option func(*Options)

// Options holds configuration options for the BitfinexExchange.
type Options struct {
	Logger zerolog.Logger
}

// WithLogger returns an option that sets the logger for the exchange.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// New creates a BitfinexExchange from a validated config.
func New(config *core.Config, opts ...Option) (*BitfinexExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger.With().Str("exchange", core.ExchangeBitfinex).Logger()

	cred, err := auth.FromConfig(core.ExchangeBitfinex, config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	protocol := NewProtocol(cred)
	root := config.BaseURL
	if root == "" {
		root = protocol.BaseURL(config.Sandbox)
	}

	client, err := transport.NewClient(&transport.Config{
		BaseURL:   root,
		Timeout:   config.Timeout,
		UserAgent: config.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger)}
	if config.RateLimitRequests > 0 {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithPacer(ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)))
	}

	return &BitfinexExchange{
		config:     config,
		client:     client,
		dispatcher: dispatch.New(protocol, client, dispatchOpts...),
		logger:     logger,
	}, nil
}

func (e *BitfinexExchange) Name() string {
	return core.ExchangeBitfinex
}

func (e *BitfinexExchange) Close() error {
	return e.client.Close()
}

// Wallets returns every exchange, margin and funding wallet.
func (e *BitfinexExchange) Wallets(ctx context.Context) ([]Wallet, error) {
	result, err := e.dispatcher.Do(ctx, core.OpWallets, nil)
	if err != nil {
		return nil, err
	}
	return result.([]Wallet), nil
}

// Movements returns deposits and withdrawals of the reference currency.
func (e *BitfinexExchange) Movements(ctx context.Context, opts ...exchange.Option) ([]Movement, error) {
	params := historyParams(opts)
	params["currency"] = e.config.ReferenceAsset

	result, err := e.dispatcher.Do(ctx, core.OpMovements, params)
	if err != nil {
		return nil, err
	}
	return result.([]Movement), nil
}

// Trades returns the fills on pairs that involve the reference currency:
// symbols starting with "t" plus the ticker, or ending with the ticker.
func (e *BitfinexExchange) Trades(ctx context.Context, opts ...exchange.Option) ([]Trade, error) {
	result, err := e.dispatcher.Do(ctx, core.OpTradeHistory, historyParams(opts))
	if err != nil {
		return nil, err
	}

	ref := e.config.ReferenceAsset
	trades := result.([]Trade)
	filtered := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if strings.HasPrefix(t.Symbol, "t"+ref) || strings.HasSuffix(t.Symbol, ref) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// ReferenceBalance sums the reference currency across all wallet types.
func (e *BitfinexExchange) ReferenceBalance(ctx context.Context) (*core.AssetBalance, error) {
	wallets, err := e.Wallets(ctx)
	if err != nil {
		return nil, err
	}

	total := core.NewAssetBalance(e.Name(), e.config.ReferenceAsset)
	for _, w := range wallets {
		if w.Currency != e.config.ReferenceAsset {
			continue
		}
		if err := total.Add(w.Balance); err != nil {
			return nil, core.NewDomainError(e.Name(), core.ErrCodeDecode, err.Error())
		}
	}
	return total, nil
}

func historyParams(opts []exchange.Option) core.Params {
	options := exchange.ApplyOptions(opts...)
	params := core.Params{}
	if options.Limit > 0 {
		params["limit"] = strconv.Itoa(options.Limit)
	}
	if !options.StartTime.IsZero() {
		params["start"] = strconv.FormatInt(options.StartTime.UnixMilli(), 10)
	}
	if !options.EndTime.IsZero() {
		params["end"] = strconv.FormatInt(options.EndTime.UnixMilli(), 10)
	}
	return params
}

// Register creates a BitfinexExchange and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create bitfinex exchange: %w", err)
	}
	container.Register(core.ExchangeBitfinex, ex)
	return nil
}
