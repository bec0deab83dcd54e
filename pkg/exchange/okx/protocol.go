package okx

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nakula/internal/codec"
	"nakula/pkg/auth"
	"nakula/pkg/core"
)

const (
	ProductionURL = "https://www.okx.com"

	// SimulatedTradingHeader routes a call to the demo trading environment.
	SimulatedTradingHeader = "x-simulated-trading"

	successCode = "0"
)

var endpoints = map[core.Operation]string{
	core.OpBalance:           "/api/v5/account/balance",
	core.OpDepositHistory:    "/api/v5/asset/deposit-history",
	core.OpWithdrawalHistory: "/api/v5/asset/withdrawal-history",
	core.OpTradeHistory:      "/api/v5/trade/fills-history",
}

// queryKeys lists the params each operation forwards.
var queryKeys = map[core.Operation][]string{
	core.OpBalance:           {"ccy"},
	core.OpDepositHistory:    {"ccy", "after", "before", "limit"},
	core.OpWithdrawalHistory: {"ccy", "after", "before", "limit"},
	core.OpTradeHistory:      {"instType", "instId", "begin", "end", "limit"},
}

// Protocol implements the core.Protocol interface for OKX.
type Protocol struct {
	credential auth.Credential
	signer     auth.PassphraseHMAC
	sandbox    bool
	now        func() time.Time
}

// NewProtocol creates a protocol signing with cred. With sandbox set every
// request carries the simulated trading header.
func NewProtocol(cred auth.Credential, sandbox bool) *Protocol {
	if cred == nil {
		cred = auth.None{}
	}
	return &Protocol{
		credential: cred,
		sandbox:    sandbox,
		now:        time.Now,
	}
}

func (p *Protocol) Name() string {
	return core.ExchangeOKX
}

// BaseURL returns the single OKX root; demo trading is selected by header.
func (p *Protocol) BaseURL(sandbox bool) string {
	return ProductionURL
}

func (p *Protocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	path, ok := endpoints[op]
	if !ok {
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}

	query := url.Values{}
	for _, key := range queryKeys[op] {
		if v := params[key]; v != "" {
			query.Set(key, v)
		}
	}

	req := core.NewRequest(http.MethodGet, path).
		SetRawQuery(query.Encode()).
		SetHeader("Content-Type", "application/json").
		SetRequireAuth(true)
	if p.sandbox {
		req.SetHeader(SimulatedTradingHeader, "1")
	}
	return req, nil
}

// SignRequest signs the path together with the query exactly as it is sent.
func (p *Protocol) SignRequest(req *core.Request) error {
	material, err := p.signer.Sign(p.credential, auth.SigningContext{
		Method:    req.Method,
		Path:      req.Path,
		Query:     req.RawQuery,
		Body:      req.Body,
		Timestamp: p.now(),
	})
	if err != nil {
		return err
	}
	material.Apply(req)
	return nil
}

// ParseResponse unwraps the envelope and decodes its data array.
func (p *Protocol) ParseResponse(op core.Operation, resp *core.Response) (any, error) {
	if resp == nil {
		return nil, core.NewDecodeError(p.Name(), op.String(), fmt.Errorf("nil response"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(op, resp)
	}

	env, err := codec.ParseEnvelope(resp.Body)
	if err != nil {
		return nil, codec.DecodeError(p.Name(), "envelope", err)
	}
	if env.Code != successCode {
		return nil, core.NewRemoteAPIError(p.Name(), resp.StatusCode, env.Code, env.Msg, env.Detail("sMsg"))
	}

	switch op {
	case core.OpBalance:
		return decodeData[Account](p.Name(), "balance", env.Data)
	case core.OpDepositHistory:
		return decodeData[Deposit](p.Name(), "deposits", env.Data)
	case core.OpWithdrawalHistory:
		return decodeData[Withdrawal](p.Name(), "withdrawals", env.Data)
	case core.OpTradeHistory:
		return decodeData[Fill](p.Name(), "fills", env.Data)
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}
}

func (p *Protocol) statusError(op core.Operation, resp *core.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return core.NewRemoteAPIError(p.Name(), resp.StatusCode, "404",
			fmt.Sprintf("API not found: '%s'", endpoints[op]), "")
	}
	errType := core.ErrorTypeRemoteAPI
	if resp.StatusCode == http.StatusTooManyRequests {
		errType = core.ErrorTypeRateLimit
	}
	return core.NewExchangeErrorWithCode(p.Name(), errType, resp.StatusCode,
		strconv.Itoa(resp.StatusCode), string(resp.Body))
}

func decodeData[T any](exchange, name string, data []byte) ([]T, error) {
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
