package codec

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

type amountRecord struct {
	Free   Float `json:"free"`
	Locked Float `json:"locked"`
	ID     Uint  `json:"id"`
}

func TestFloat_StringAmount(t *testing.T) {
	var rec amountRecord
	require.NoError(t, sonic.Unmarshal([]byte(`{"free":"4723846.89208129","locked":"0.00000000","id":1}`), &rec))

	assert.Equal(t, 4723846.89208129, float64(rec.Free))
	assert.Equal(t, 0.0, float64(rec.Locked))
}

func TestFloat_Forms(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"string", `"39.59000000"`, 39.59, false},
		{"negative_string", `"-5.00000000"`, -5, false},
		{"number", `153.57`, 153.57, false},
		{"null", `null`, 0, false},
		{"non_numeric", `"abc"`, 0, true},
		{"empty", `""`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Float
			err := f.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				var numErr *NumberError
				assert.ErrorAs(t, err, &numErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, float64(f))
		})
	}
}

func TestDecode_NonNumericAmount(t *testing.T) {
	_, err := Decode[amountRecord]("binance", "Balance", []byte(`{"free":"lots","locked":"0"}`))
	require.Error(t, err)
	assert.True(t, core.IsDecodeError(err))

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "Balance", exErr.Path)
	assert.Equal(t, "binance", exErr.Exchange)
}

func TestUint_StringOrNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{`"402088407"`, 402088407, false},
		{`402088407`, 402088407, false},
		{`"18446744073709551615"`, 18446744073709551615, false},
		{`"-1"`, 0, true},
		{`"12a"`, 0, true},
		{`1.5`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var u Uint
			err := u.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, uint64(u))
		})
	}
}

func TestTupleReader_Trade(t *testing.T) {
	raw := []byte(`[402088407,"tBTCUST",1574963975602,34938060782,-0.2,153.57,"MARKET",0.0,-1,-0.061668,"USD",1234]`)

	r := NewTupleReader("trade", raw, 11, 12)
	id := r.Uint64(0, "id")
	symbol := r.String(1, "symbol")
	amount := r.Float64(4, "amount")
	maker := r.Int(8, "maker")
	cid := r.OptUint64(11, "cid")
	require.NoError(t, r.Err())

	assert.Equal(t, uint64(402088407), id)
	assert.Equal(t, "tBTCUST", symbol)
	assert.Equal(t, -0.2, amount)
	assert.Equal(t, -1, maker)
	require.NotNil(t, cid)
	assert.Equal(t, uint64(1234), *cid)
}

func TestTupleReader_OptionalTrailingSlot(t *testing.T) {
	r := NewTupleReader("trade", []byte(`[1,"tBTCUSD",2,3,0.1,1,"LIMIT",1,1,0,"USD"]`), 11, 12)
	assert.Nil(t, r.OptUint64(11, "cid"))
	assert.NoError(t, r.Err())
}

func TestTupleReader_Errors(t *testing.T) {
	t.Run("arity", func(t *testing.T) {
		r := NewTupleReader("wallet", []byte(`["exchange","BTC"]`), 7, 7)
		var slotErr *SlotError
		require.ErrorAs(t, r.Err(), &slotErr)
		assert.Equal(t, "wallet", slotErr.Path())
	})

	t.Run("not_array", func(t *testing.T) {
		r := NewTupleReader("wallet", []byte(`{"a":1}`), 1, 1)
		assert.Error(t, r.Err())
	})

	t.Run("type_mismatch_is_sticky", func(t *testing.T) {
		r := NewTupleReader("trade", []byte(`["x","tBTCUSD"]`), 2, 2)
		assert.Equal(t, uint64(0), r.Uint64(0, "id"))
		assert.Equal(t, "", r.String(1, "symbol"))

		var slotErr *SlotError
		require.ErrorAs(t, r.Err(), &slotErr)
		assert.Equal(t, "trade[0].id", slotErr.Path())

		err := DecodeError("bitfinex", "trades", r.Err())
		var exErr *core.ExchangeError
		require.ErrorAs(t, err, &exErr)
		assert.Equal(t, "trade[0].id", exErr.Path)
	})

	t.Run("required_null", func(t *testing.T) {
		r := NewTupleReader("movement", []byte(`[null]`), 1, 1)
		r.Uint64(0, "id")
		assert.Error(t, r.Err())
	})
}

type status int

const (
	statusUnknown status = iota
	statusPending
	statusDone
)

func TestLookup_UnknownCode(t *testing.T) {
	table := map[string]status{"0": statusPending, "2": statusDone}

	for _, in := range []string{`"2"`, `2`} {
		code, err := Code([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, statusDone, Lookup(table, code, statusUnknown))
	}

	code, err := Code([]byte(`"999"`))
	require.NoError(t, err)
	assert.Equal(t, statusUnknown, Lookup(table, code, statusUnknown))
}

func TestFirstDetail(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"first_item", `[{"sMsg":"Insufficient balance"},{"sMsg":"second"}]`, "Insufficient balance"},
		{"empty_list", `[]`, UnknownErrorMessage},
		{"missing_field", `[{"sCode":"1"}]`, UnknownErrorMessage},
		{"not_a_list", `{"sMsg":"x"}`, UnparsableErrorMessage},
		{"empty", ``, UnparsableErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstDetail([]byte(tt.data), "sMsg"))
		})
	}
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"code":"51000","msg":"Parameter error","data":[{"sMsg":"ccy invalid"}]}`))
	require.NoError(t, err)

	assert.Equal(t, "51000", env.Code)
	assert.Equal(t, "Parameter error", env.Msg)
	assert.Equal(t, "ccy invalid", env.Detail("sMsg"))
}

type validated struct {
	Asset string  `validate:"required"`
	Free  float64 `validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("binance", "balances[0]", validated{Asset: "BTC"}))

	err := Validate("binance", "balances[3]", validated{})
	require.Error(t, err)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeDecode, exErr.Type)
	assert.Equal(t, "balances[3].Asset", exErr.Path)

	err = Validate("binance", "", validated{Asset: "BTC", Free: -1})
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "validated.Free", exErr.Path)
}
