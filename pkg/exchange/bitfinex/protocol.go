package bitfinex

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"nakula/internal/codec"
	"nakula/pkg/auth"
	"nakula/pkg/core"
)

const (
	ProductionURL = "https://api.bitfinex.com"

	// authReadPath is the URL prefix of authenticated read endpoints. The signed
	// string uses auth.BitfinexSignaturePrefix in front of the part below it.
	authReadPath = "/v2/auth/r/"
)

// Protocol implements the core.Protocol interface for Bitfinex.
type Protocol struct {
	credential auth.Credential
	signer     auth.HeaderHMAC384
	nonces     *auth.NonceSource
}

// NewProtocol creates a protocol signing with cred. Nonces come from a
// per-protocol source, so one credential should back one Protocol.
func NewProtocol(cred auth.Credential) *Protocol {
	if cred == nil {
		cred = auth.None{}
	}
	return &Protocol{
		credential: cred,
		signer:     auth.HeaderHMAC384{Prefix: auth.BitfinexSignaturePrefix},
		nonces:     auth.NewNonceSource(),
	}
}

func (p *Protocol) Name() string {
	return core.ExchangeBitfinex
}

// BaseURL returns the production root; Bitfinex has no public sandbox.
func (p *Protocol) BaseURL(sandbox bool) string {
	return ProductionURL
}

// BuildRequest constructs the unsigned POST for op. The optional params
// "start", "end" and "limit" go into the JSON body.
func (p *Protocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	var endpoint string
	switch op {
	case core.OpWallets, core.OpBalance:
		endpoint = "wallets"
	case core.OpMovements:
		currency := params["currency"]
		if currency == "" {
			return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0, "currency is required").
				WithCode(core.ErrCodeInvalidConfig)
		}
		endpoint = "movements/" + currency + "/hist"
	case core.OpTradeHistory:
		endpoint = "trades/hist"
		if symbol := params["symbol"]; symbol != "" {
			endpoint = "trades/" + symbol + "/hist"
		}
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}

	body, err := requestBody(params)
	if err != nil {
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0, "invalid request parameters").
			WithCode(core.ErrCodeInvalidConfig).
			WithCause(err)
	}

	return core.NewRequest(http.MethodPost, authReadPath+endpoint).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		SetRequireAuth(true), nil
}

func requestBody(params core.Params) ([]byte, error) {
	fields := make(map[string]int64)
	for _, key := range []string{"start", "end", "limit"} {
		v := params[key]
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		fields[key] = n
	}
	return sonic.ConfigStd.Marshal(fields)
}

// SignRequest adds the bfx-nonce, bfx-apikey and bfx-signature headers.
func (p *Protocol) SignRequest(req *core.Request) error {
	material, err := p.signer.Sign(p.credential, auth.SigningContext{
		Method:    req.Method,
		Path:      strings.TrimPrefix(req.Path, authReadPath),
		Body:      req.Body,
		Timestamp: time.Now(),
		Nonce:     p.nonces.Next(),
	})
	if err != nil {
		return err
	}
	material.Apply(req)
	return nil
}

// ParseResponse decodes the positional records of op, or the
// ["error", code, "message"] body of a rejected call.
func (p *Protocol) ParseResponse(op core.Operation, resp *core.Response) (any, error) {
	if resp == nil {
		return nil, core.NewDecodeError(p.Name(), op.String(), fmt.Errorf("nil response"))
	}
	if !resp.IsSuccess() {
		return nil, p.parseError(resp)
	}

	switch op {
	case core.OpWallets, core.OpBalance:
		return decodeList("wallets", resp.Body, decodeWallet)
	case core.OpMovements:
		return decodeList("movements", resp.Body, decodeMovement)
	case core.OpTradeHistory:
		return decodeList("trades", resp.Body, decodeTrade)
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeUnknown, 0,
			fmt.Sprintf("unsupported operation: %s", op))
	}
}

func (p *Protocol) parseError(resp *core.Response) error {
	errType := core.ErrorTypeRemoteAPI
	if resp.StatusCode == http.StatusTooManyRequests {
		errType = core.ErrorTypeRateLimit
	}

	r := codec.NewTupleReader("error", resp.Body, 3, 0)
	kind := r.String(0, "kind")
	code := r.Raw(1)
	message := r.String(2, "message")
	if r.Err() == nil && kind == "error" {
		codeText, _ := codec.Code(code)
		return core.NewExchangeErrorWithCode(p.Name(), errType, resp.StatusCode, codeText, message)
	}

	return core.NewExchangeError(p.Name(), errType, resp.StatusCode,
		fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))).
		WithDetail(codec.UnparsableErrorMessage)
}
