package binance

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"nakula/internal/codec"
	"nakula/pkg/auth"
	"nakula/pkg/core"
)

const (
	ProductionURL = "https://api.binance.com"
	USURL         = "https://api.binance.us"
	SandboxURL    = "https://testnet.binance.vision"

	// UsedWeightHeader reports the weight consumed in the current minute.
	UsedWeightHeader = "X-MBX-USED-WEIGHT-1M"
	// APIKeyHeader carries the API key on signed calls.
	APIKeyHeader = "X-MBX-APIKEY"
	// MaxWeightPerMinute is the spot request weight budget.
	MaxWeightPerMinute = 6000
)

// Request weights from the published cost table.
const (
	weightExchangeInfo = 20
	weightAccount      = 20
	weightMyTrades     = 20
)

// Protocol implements the core.Protocol interface for Binance exchange.
type Protocol struct {
	credential auth.Credential
	signer     auth.QueryHMAC
	now        func() time.Time
}

// NewProtocol creates a protocol that signs with cred. A zero recvWindow uses
// auth.DefaultRecvWindow.
func NewProtocol(cred auth.Credential, recvWindow time.Duration) *Protocol {
	if cred == nil {
		cred = auth.None{}
	}
	return &Protocol{
		credential: cred,
		signer:     auth.QueryHMAC{RecvWindow: recvWindow},
		now:        time.Now,
	}
}

// Name returns the protocol identifier "binance".
func (p *Protocol) Name() string {
	return core.ExchangeBinance
}

// BaseURL returns the testnet URL when sandbox is true.
func (p *Protocol) BaseURL(sandbox bool) string {
	if sandbox {
		return SandboxURL
	}
	return ProductionURL
}

// BuildRequest constructs the unsigned request for op.
func (p *Protocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpExchangeInfo:
		return core.NewRequest(http.MethodGet, "/api/v3/exchangeInfo").
			SetWeight(weightExchangeInfo), nil
	case core.OpAccount, core.OpBalance:
		return core.NewRequest(http.MethodGet, "/api/v3/account").
			SetWeight(weightAccount).
			SetRequireAuth(true), nil
	case core.OpTradeHistory:
		return p.buildMyTradesRequest(params)
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}
}

func (p *Protocol) buildMyTradesRequest(params core.Params) (*core.Request, error) {
	symbol := params["symbol"]
	if symbol == "" {
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0, "symbol is required").
			WithCode(core.ErrCodeInvalidConfig)
	}

	req := core.NewRequest(http.MethodGet, "/api/v3/myTrades").
		SetQuery("symbol", symbol).
		SetWeight(weightMyTrades).
		SetRequireAuth(true)
	for _, key := range []string{"startTime", "endTime", "fromId", "limit"} {
		if v := params[key]; v != "" {
			req.SetQuery(key, v)
		}
	}
	return req, nil
}

// SignRequest replaces the query with its signed form and adds the API key header.
func (p *Protocol) SignRequest(req *core.Request) error {
	material, err := p.signer.Sign(p.credential, auth.SigningContext{
		Method:    req.Method,
		Path:      req.Path,
		Params:    req.Query,
		Timestamp: p.now(),
	})
	if err != nil {
		return err
	}

	apiKey := p.credential.APIKey()
	if !auth.ValidHeaderValue(apiKey) {
		return core.NewAuthError(core.ErrCodeInvalidHeader,
			"api key contains characters that cannot be transmitted", core.ErrInvalidHeader)
	}
	material.Apply(req)
	req.SetHeader(APIKeyHeader, apiKey)
	return nil
}

// ParseResponse decodes the body of a successful call, or the {code, msg}
// error body of a rejected one. HTTP 429 and 418 are rate limit rejections.
func (p *Protocol) ParseResponse(op core.Operation, resp *core.Response) (any, error) {
	if resp == nil {
		return nil, core.NewDecodeError(p.Name(), op.String(), fmt.Errorf("nil response"))
	}
	if !resp.IsSuccess() {
		return nil, p.parseError(resp)
	}

	switch op {
	case core.OpExchangeInfo:
		info, err := codec.Decode[ExchangeInformation](p.Name(), "exchangeInfo", resp.Body)
		if err != nil {
			return nil, err
		}
		if err := codec.Validate(p.Name(), "exchangeInfo", &info); err != nil {
			return nil, err
		}
		return &info, nil

	case core.OpAccount, core.OpBalance:
		raw, err := codec.Decode[binanceAccount](p.Name(), "account", resp.Body)
		if err != nil {
			return nil, err
		}
		if err := codec.Validate(p.Name(), "account", &raw); err != nil {
			return nil, err
		}
		return normalizeAccount(&raw), nil

	case core.OpTradeHistory:
		raw, err := codec.Decode[[]binanceTrade](p.Name(), "myTrades", resp.Body)
		if err != nil {
			return nil, err
		}
		trades := make([]Trade, 0, len(raw))
		for i := range raw {
			if err := codec.Validate(p.Name(), "myTrades["+strconv.Itoa(i)+"]", &raw[i]); err != nil {
				return nil, err
			}
			trades = append(trades, normalizeTrade(raw[i]))
		}
		return trades, nil

	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}
}

func (p *Protocol) parseError(resp *core.Response) error {
	errType := core.ErrorTypeRemoteAPI
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
		errType = core.ErrorTypeRateLimit
	}

	var apiErr binanceAPIError
	if err := sonic.Unmarshal(resp.Body, &apiErr); err == nil && (apiErr.Code != 0 || apiErr.Msg != "") {
		return core.NewExchangeErrorWithCode(p.Name(), errType, resp.StatusCode,
			strconv.Itoa(apiErr.Code), apiErr.Msg)
	}

	e := core.NewExchangeError(p.Name(), errType, resp.StatusCode,
		fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	if errType == core.ErrorTypeRateLimit {
		e.WithCode(core.ErrCodeRateLimit)
	}
	return e.WithDetail(codec.UnparsableErrorMessage)
}
