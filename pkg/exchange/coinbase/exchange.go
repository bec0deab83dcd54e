package coinbase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"nakula/internal/dispatch"
	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/auth"
	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// CoinbaseExchange is the account-state facade for the Coinbase App API.
type CoinbaseExchange struct {
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

// New creates a CoinbaseExchange. The private key PEM is parsed here, so a
// malformed key fails construction rather than the first call.
func New(config *core.Config, opts ...Option) (*CoinbaseExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger.With().Str("exchange", core.ExchangeCoinbase).Logger()

	cred, err := auth.FromConfig(core.ExchangeCoinbase, config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	root := config.BaseURL
	if root == "" {
		root = ProductionURL
		if config.Sandbox {
			root = SandboxURL
		}
	}
	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client, err := transport.NewClient(&transport.Config{
		BaseURL:   root,
		Timeout:   config.Timeout,
		UserAgent: config.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	protocol := NewProtocol(cred, u.Host, config.Sandbox, config.PageLimit)
	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger)}
	if config.RateLimitRequests > 0 {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithPacer(ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)))
	}

	return &CoinbaseExchange{
		config:     config,
		client:     client,
		dispatcher: dispatch.New(protocol, client, dispatchOpts...),
		logger:     logger,
	}, nil
}

func (e *CoinbaseExchange) Name() string {
	return core.ExchangeCoinbase
}

func (e *CoinbaseExchange) Close() error {
	return e.client.Close()
}

// Accounts returns every account, following next_uri until the last page.
func (e *CoinbaseExchange) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := e.paginate(ctx, core.OpAccounts, core.Params{}, func(result any) string {
		page := result.(*AccountPage)
		accounts = append(accounts, page.Accounts...)
		return page.NextURI
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Account returns one account by UUID or ticker.
func (e *CoinbaseExchange) Account(ctx context.Context, id string) (*Account, error) {
	result, err := e.dispatcher.Do(ctx, core.OpAccount, core.Params{"account_id": id})
	if err != nil {
		return nil, err
	}
	return result.(*Account), nil
}

// Transactions returns the full ledger of an account in server order.
func (e *CoinbaseExchange) Transactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var txs []Transaction
	err := e.paginate(ctx, core.OpTransactions, core.Params{"account_id": accountID}, func(result any) string {
		page := result.(*TransactionPage)
		txs = append(txs, page.Transactions...)
		return page.NextURI
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// paginate issues op until collect reports no next page. A next_uri that was
// already visited is an error, not an endless loop.
func (e *CoinbaseExchange) paginate(ctx context.Context, op core.Operation, params core.Params, collect func(any) string) error {
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		result, err := e.dispatcher.Do(ctx, op, params)
		if err != nil {
			return err
		}
		next := collect(result)
		if next == "" {
			return nil
		}
		if seen[next] {
			return core.NewDomainError(e.Name(), core.ErrCodePagination,
				fmt.Sprintf("next_uri %q repeats", next))
		}
		seen[next] = true
		e.logger.Debug().Str("op", op.String()).Int("page", page).Str("next_uri", next).Msg("following next page")
		params["cursor"] = next
	}
}

// ReferenceBalance sums the balances of accounts held in the reference currency.
func (e *CoinbaseExchange) ReferenceBalance(ctx context.Context) (*core.AssetBalance, error) {
	accounts, err := e.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	total := core.NewAssetBalance(e.Name(), e.config.ReferenceAsset)
	for _, a := range accounts {
		if a.Currency.Code != e.config.ReferenceAsset {
			continue
		}
		if err := total.Add(float64(a.Balance.Amount)); err != nil {
			return nil, core.NewDomainError(e.Name(), core.ErrCodeDecode, err.Error())
		}
	}
	return total, nil
}

// Register creates a CoinbaseExchange and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create coinbase exchange: %w", err)
	}
	container.Register(core.ExchangeCoinbase, ex)
	return nil
}
