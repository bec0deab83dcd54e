package okx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/auth"
	"nakula/pkg/core"
)

func TestProtocol_KnownSignature(t *testing.T) {
	ts, err := time.Parse(auth.PassphraseTimestampFormat, "2020-12-08T09:08:57.715Z")
	require.NoError(t, err)

	p := NewProtocol(auth.NewPassphraseKeys("okx-key", "22582BD0CFF14C41EDBF1AB98506286D", "phrase"), false)
	p.now = func() time.Time { return ts }

	req, err := p.BuildRequest(core.OpBalance, core.Params{"ccy": "BTC"})
	require.NoError(t, err)
	require.NoError(t, p.SignRequest(req))

	assert.Equal(t, "/api/v5/account/balance?ccy=BTC", req.PathWithQuery())
	assert.Equal(t, "HiZhvSfMtWJA3uUIVXV3a/bSXNPCWvYFXoGCVS8V4zY=", req.Headers["OK-ACCESS-SIGN"])
	assert.Equal(t, "2020-12-08T09:08:57.715Z", req.Headers["OK-ACCESS-TIMESTAMP"])
	assert.Equal(t, "okx-key", req.Headers["OK-ACCESS-KEY"])
	assert.Equal(t, "phrase", req.Headers["OK-ACCESS-PASSPHRASE"])
	assert.Empty(t, req.Headers[SimulatedTradingHeader])
}

func TestProtocol_BuildRequest(t *testing.T) {
	p := NewProtocol(nil, true)

	req, err := p.BuildRequest(core.OpTradeHistory, core.Params{"instType": "SPOT", "limit": "50", "ignored": "x"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v5/trade/fills-history?instType=SPOT&limit=50", req.PathWithQuery())
	assert.Equal(t, "1", req.Headers[SimulatedTradingHeader])
	assert.True(t, req.RequireAuth)

	req, err = p.BuildRequest(core.OpWithdrawalHistory, core.Params{"ccy": "BTC"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v5/asset/withdrawal-history?ccy=BTC", req.PathWithQuery())

	_, err = p.BuildRequest(core.OpAccounts, nil)
	assert.Error(t, err)
}

func TestProtocol_SignWithoutPassphrase(t *testing.T) {
	p := NewProtocol(auth.NewHMACKeys("k", "s"), false)
	req, err := p.BuildRequest(core.OpBalance, nil)
	require.NoError(t, err)

	err = p.SignRequest(req)

	assert.True(t, core.IsAuthError(err))
	assert.True(t, core.IsErrorCode(err, core.ErrCodeInvalidKey))
}

func TestProtocol_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    string
		message string
		detail  string
	}{
		{
			name:    "first sMsg",
			body:    `{"code":"1","msg":"All operations failed","data":[{"sCode":"51000","sMsg":"Parameter ordId error"},{"sMsg":"second"}]}`,
			code:    "1",
			message: "All operations failed",
			detail:  "Parameter ordId error",
		},
		{
			name:    "empty data",
			body:    `{"code":"50011","msg":"Too Many Requests","data":[]}`,
			code:    "50011",
			message: "Too Many Requests",
			detail:  "Unknown error",
		},
		{
			name:    "record without sMsg",
			body:    `{"code":"51001","msg":"Instrument ID does not exist","data":[{"sCode":"51001"}]}`,
			code:    "51001",
			message: "Instrument ID does not exist",
			detail:  "Unknown error",
		},
		{
			name:    "data not a list",
			body:    `{"code":"50113","msg":"Invalid Sign","data":"oops"}`,
			code:    "50113",
			message: "Invalid Sign",
			detail:  "Failed to parse error message",
		},
	}

	p := NewProtocol(nil, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusOK, Body: []byte(tt.body)})

			var exErr *core.ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, core.ErrorTypeRemoteAPI, exErr.Type)
			assert.Equal(t, tt.code, exErr.Code)
			assert.Equal(t, tt.message, exErr.Message)
			assert.Equal(t, tt.detail, exErr.Detail)
			assert.Equal(t, "okx", exErr.Exchange)
		})
	}
}

func TestProtocol_StatusErrors(t *testing.T) {
	p := NewProtocol(nil, false)

	_, err := p.ParseResponse(core.OpDepositHistory, &core.Response{StatusCode: http.StatusNotFound, Body: []byte("not here")})
	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "404", exErr.Code)
	assert.Equal(t, "API not found: '/api/v5/asset/deposit-history'", exErr.Message)

	_, err = p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusInternalServerError, Body: []byte("boom")})
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeRemoteAPI, exErr.Type)
	assert.Equal(t, "500", exErr.Code)
	assert.Equal(t, "boom", exErr.Message)

	_, err = p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusTooManyRequests, Body: []byte("slow down")})
	assert.True(t, core.IsRateLimitError(err))
}

func TestProtocol_DecodeBalance(t *testing.T) {
	p := NewProtocol(nil, false)
	body := `{"code":"0","msg":"","data":[{"totalEq":"41624.32","uTime":"1614846244194","details":[
		{"ccy":"BTC","eq":"1.5","cashBal":"1.5","availBal":"1.2","frozenBal":"0.3","uTime":"1614846244194"}]}]}`

	result, err := p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusOK, Body: []byte(body)})

	require.NoError(t, err)
	accounts := result.([]Account)
	require.Len(t, accounts, 1)
	assert.InDelta(t, 41624.32, float64(accounts[0].TotalEquity), 1e-9)
	require.Len(t, accounts[0].Details, 1)
	assert.Equal(t, "BTC", accounts[0].Details[0].Currency)
	assert.InDelta(t, 1.5, float64(accounts[0].Details[0].Equity), 1e-9)
	assert.InDelta(t, 0.3, float64(accounts[0].Details[0].FrozenBalance), 1e-9)
}

func TestProtocol_DecodeFailures(t *testing.T) {
	p := NewProtocol(nil, false)

	_, err := p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusOK,
		Body: []byte(`{"code":"0","data":[{"details":[{"ccy":"BTC","eq":"lots"}]}]}`)})
	assert.True(t, core.IsDecodeError(err))

	_, err = p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusOK,
		Body: []byte(`{"code":"0","data":[{"details":[{"ccy":"","eq":"1"}]}]}`)})
	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeDecode, exErr.Type)
	assert.Equal(t, "balance[0].Details[0].Currency", exErr.Path)

	_, err = p.ParseResponse(core.OpBalance, &core.Response{StatusCode: http.StatusOK, Body: []byte(`<html>`)})
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "envelope", exErr.Path)
}

func TestProtocol_DecodeStates(t *testing.T) {
	p := NewProtocol(nil, false)

	deposits, err := p.ParseResponse(core.OpDepositHistory, &core.Response{StatusCode: http.StatusOK, Body: []byte(
		`{"code":"0","data":[
			{"depId":"1","ccy":"BTC","amt":"0.01","state":"2","ts":"1655251200000","actualDepBlkConfirm":"17"},
			{"depId":"2","ccy":"BTC","amt":"0.02","state":"999","ts":"1655251200000"},
			{"depId":"3","ccy":"BTC","amt":"0.03","state":14,"ts":"1655251200000"}]}`)})
	require.NoError(t, err)
	d := deposits.([]Deposit)
	require.Len(t, d, 3)
	assert.Equal(t, DepositSuccessful, d[0].State)
	assert.Equal(t, uint64(17), uint64(d[0].Confirmations))
	assert.Equal(t, time.UnixMilli(1655251200000).UTC(), d[0].Time())
	assert.Equal(t, DepositUnknown, d[1].State)
	assert.Equal(t, "UNKNOWN", d[1].State.String())
	assert.Equal(t, DepositKYCLimit, d[2].State)

	withdrawals, err := p.ParseResponse(core.OpWithdrawalHistory, &core.Response{StatusCode: http.StatusOK, Body: []byte(
		`{"code":"0","data":[
			{"wdId":"1","ccy":"BTC","amt":"0.5","fee":"0.0001","state":"-2","ts":"1655251200000"},
			{"wdId":"2","ccy":"BTC","amt":"0.5","state":"9","ts":"1655251200000"},
			{"wdId":"3","ccy":"BTC","amt":"0.5","state":"17","ts":"1655251200000"},
			{"wdId":"4","ccy":"BTC","amt":"0.5","state":"999","ts":"1655251200000"}]}`)})
	require.NoError(t, err)
	w := withdrawals.([]Withdrawal)
	require.Len(t, w, 4)
	assert.Equal(t, WithdrawalCanceled, w[0].State)
	assert.InDelta(t, 0.0001, float64(w[0].Fee), 1e-12)
	assert.Equal(t, WithdrawalManualReview, w[1].State)
	assert.Equal(t, "TRAVEL_RULE", w[2].State.String())
	assert.Equal(t, WithdrawalUnknown, w[3].State)
}
