package coinbase

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"nakula/internal/codec"
	"nakula/pkg/auth"
	"nakula/pkg/core"
)

const (
	ProductionURL = "https://api.coinbase.com"
	SandboxURL    = "https://api-sandbox.coinbase.com"

	// APIVersion is sent as CB-VERSION on every call.
	APIVersion = "2022-01-06"
	// DefaultPageLimit is the page size requested from listings.
	DefaultPageLimit = 100
)

// Protocol implements the core.Protocol interface for Coinbase.
type Protocol struct {
	credential auth.Credential
	signer     auth.BearerJWT
	host       string
	sandbox    bool
	pageLimit  int
	now        func() time.Time
}

// NewProtocol creates a protocol whose tokens name host, the authority of the
// API root. In sandbox mode requests are sent unsigned.
func NewProtocol(cred auth.Credential, host string, sandbox bool, pageLimit int) *Protocol {
	if cred == nil {
		cred = auth.None{}
	}
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	return &Protocol{
		credential: cred,
		host:       host,
		sandbox:    sandbox,
		pageLimit:  pageLimit,
		now:        time.Now,
	}
}

func (p *Protocol) Name() string {
	return core.ExchangeCoinbase
}

func (p *Protocol) BaseURL(sandbox bool) string {
	if sandbox {
		return SandboxURL
	}
	return ProductionURL
}

// BuildRequest constructs the GET for op. Listings take an optional "cursor",
// the next_uri of the previous page, which replaces the first page URL.
func (p *Protocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	var path, query string
	switch op {
	case core.OpAccounts:
		path, query = p.page("/v2/accounts", params["cursor"])
	case core.OpAccount:
		id := params["account_id"]
		if id == "" {
			return nil, missingParam(p.Name(), "account_id")
		}
		path = "/v2/accounts/" + url.PathEscape(id)
	case core.OpTransactions:
		id := params["account_id"]
		if id == "" && params["cursor"] == "" {
			return nil, missingParam(p.Name(), "account_id")
		}
		path, query = p.page("/v2/accounts/"+url.PathEscape(id)+"/transactions", params["cursor"])
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}

	return core.NewRequest(http.MethodGet, path).
		SetRawQuery(query).
		SetHeader("Content-Type", "application/json").
		SetHeader("CB-VERSION", APIVersion).
		SetRequireAuth(!p.sandbox), nil
}

// page returns the path and query of a listing page. The cursor already
// carries its own query, limit included.
func (p *Protocol) page(first, cursor string) (string, string) {
	if cursor == "" {
		return first, "limit=" + strconv.Itoa(p.pageLimit)
	}
	path, query, _ := strings.Cut(cursor, "?")
	return path, query
}

func missingParam(exchange, name string) error {
	return core.NewExchangeError(exchange, core.ErrorTypeUnknown, 0, name+" is required").
		WithCode(core.ErrCodeInvalidConfig)
}

// SignRequest adds a bearer token whose uri claim covers method, host and
// path. The query is not part of the claim.
func (p *Protocol) SignRequest(req *core.Request) error {
	if p.sandbox {
		return nil
	}
	material, err := p.signer.Sign(p.credential, auth.SigningContext{
		Method:    req.Method,
		Host:      p.host,
		Path:      req.Path,
		Timestamp: p.now(),
	})
	if err != nil {
		return err
	}
	material.Apply(req)
	return nil
}

func (p *Protocol) ParseResponse(op core.Operation, resp *core.Response) (any, error) {
	if resp == nil {
		return nil, core.NewDecodeError(p.Name(), op.String(), fmt.Errorf("nil response"))
	}
	if !resp.IsSuccess() {
		return nil, p.parseError(resp)
	}

	env, err := codec.Decode[envelope](p.Name(), "response", resp.Body)
	if err != nil {
		return nil, err
	}

	switch op {
	case core.OpAccounts:
		accounts, err := decodeList[Account](p.Name(), "accounts", env.Data)
		if err != nil {
			return nil, err
		}
		return &AccountPage{Accounts: accounts, NextURI: env.nextURI()}, nil

	case core.OpAccount:
		account, err := codec.Decode[Account](p.Name(), "account", env.Data)
		if err != nil {
			return nil, err
		}
		if err := codec.Validate(p.Name(), "account", &account); err != nil {
			return nil, err
		}
		return &account, nil

	case core.OpTransactions:
		txs, err := decodeList[Transaction](p.Name(), "transactions", env.Data)
		if err != nil {
			return nil, err
		}
		return &TransactionPage{Transactions: txs, NextURI: env.nextURI()}, nil

	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}
}

// parseError reads {"errors":[{"id","message"}]}; the first entry becomes the
// code and detail.
func (p *Protocol) parseError(resp *core.Response) error {
	errType := core.ErrorTypeRemoteAPI
	if resp.StatusCode == http.StatusTooManyRequests {
		errType = core.ErrorTypeRateLimit
	}
	e := core.NewExchangeError(p.Name(), errType, resp.StatusCode,
		fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))

	var body errorBody
	switch err := sonic.Unmarshal(resp.Body, &body); {
	case err != nil:
		return e.WithDetail(codec.UnparsableErrorMessage)
	case len(body.Errors) == 0 || body.Errors[0].Message == "":
		return e.WithDetail(codec.UnknownErrorMessage)
	default:
		e.Code = body.Errors[0].ID
		return e.WithDetail(body.Errors[0].Message)
	}
}

func decodeList[T any](exchange, name string, data []byte) ([]T, error) {
	records, err := codec.Decode[[]T](exchange, name, data)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if err := codec.Validate(exchange, name+"["+strconv.Itoa(i)+"]", &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}
