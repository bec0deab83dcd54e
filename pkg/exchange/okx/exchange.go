package okx

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

// OKXExchange is the account-state facade for OKX.
type OKXExchange struct {
	config     *core.Config
	client     *transport.Client
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger
}

type Option func(*Options)

type Options struct {
	Logger zerolog.Logger
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// New creates an OKXExchange. Credentials must include the passphrase.
func New(config *core.Config, opts ...Option) (*OKXExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger.With().Str("exchange", core.ExchangeOKX).Logger()

	cred, err := auth.FromConfig(core.ExchangeOKX, config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	protocol := NewProtocol(cred, config.Sandbox)
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

	return &OKXExchange{
		config:     config,
		client:     client,
		dispatcher: dispatch.New(protocol, client, dispatchOpts...),
		logger:     logger,
	}, nil
}

func (e *OKXExchange) Name() string {
	return core.ExchangeOKX
}

func (e *OKXExchange) Close() error {
	return e.client.Close()
}

// Balance returns the trading account restricted to the reference currency.
func (e *OKXExchange) Balance(ctx context.Context) ([]Account, error) {
	result, err := e.dispatcher.Do(ctx, core.OpBalance, core.Params{"ccy": e.config.ReferenceAsset})
	if err != nil {
		return nil, err
	}
	return result.([]Account), nil
}

// ReferenceBalance sums the equity of every reference currency detail.
func (e *OKXExchange) ReferenceBalance(ctx context.Context) (*core.AssetBalance, error) {
	accounts, err := e.Balance(ctx)
	if err != nil {
		return nil, err
	}

	total := core.NewAssetBalance(e.Name(), e.config.ReferenceAsset)
	for _, account := range accounts {
		for _, detail := range account.Details {
			if detail.Currency != e.config.ReferenceAsset {
				continue
			}
			if err := total.Add(float64(detail.Equity)); err != nil {
				return nil, core.NewDomainError(e.Name(), core.ErrCodeDecode, err.Error())
			}
		}
	}
	return total, nil
}

// DepositHistory returns deposits of the reference currency, newest first.
func (e *OKXExchange) DepositHistory(ctx context.Context, opts ...exchange.Option) ([]Deposit, error) {
	result, err := e.dispatcher.Do(ctx, core.OpDepositHistory, e.assetParams(opts))
	if err != nil {
		return nil, err
	}
	return result.([]Deposit), nil
}

// WithdrawalHistory returns withdrawals of the reference currency, newest first.
func (e *OKXExchange) WithdrawalHistory(ctx context.Context, opts ...exchange.Option) ([]Withdrawal, error) {
	result, err := e.dispatcher.Do(ctx, core.OpWithdrawalHistory, e.assetParams(opts))
	if err != nil {
		return nil, err
	}
	return result.([]Withdrawal), nil
}

// TradeHistory returns fills on instruments quoted in or based on the
// reference currency. The instrument type defaults to SPOT.
func (e *OKXExchange) TradeHistory(ctx context.Context, opts ...exchange.Option) ([]Fill, error) {
	options := exchange.ApplyOptions(opts...)
	params := core.Params{"instType": options.MarketType.String()}
	if options.Limit > 0 {
		params["limit"] = strconv.Itoa(options.Limit)
	}
	if !options.StartTime.IsZero() {
		params["begin"] = strconv.FormatInt(options.StartTime.UnixMilli(), 10)
	}
	if !options.EndTime.IsZero() {
		params["end"] = strconv.FormatInt(options.EndTime.UnixMilli(), 10)
	}

	result, err := e.dispatcher.Do(ctx, core.OpTradeHistory, params)
	if err != nil {
		return nil, err
	}

	ref := e.config.ReferenceAsset
	fills := result.([]Fill)
	filtered := make([]Fill, 0, len(fills))
	for _, f := range fills {
		if strings.HasPrefix(f.InstrumentID, ref+"-") || strings.HasSuffix(f.InstrumentID, "-"+ref) {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// assetParams maps the time range onto the cursor parameters: "before" asks
// for records newer than a timestamp and "after" for older ones.
func (e *OKXExchange) assetParams(opts []exchange.Option) core.Params {
	options := exchange.ApplyOptions(opts...)
	params := core.Params{"ccy": e.config.ReferenceAsset}
	if options.Limit > 0 {
		params["limit"] = strconv.Itoa(options.Limit)
	}
	if !options.StartTime.IsZero() {
		params["before"] = strconv.FormatInt(options.StartTime.UnixMilli(), 10)
	}
	if !options.EndTime.IsZero() {
		params["after"] = strconv.FormatInt(options.EndTime.UnixMilli(), 10)
	}
	return params
}

// Register creates an OKXExchange and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create okx exchange: %w", err)
	}
	container.Register(core.ExchangeOKX, ex)
	return nil
}
