package bitfinex

import (
	"encoding/json"
	"strconv"
	"time"

	"nakula/internal/codec"
	"nakula/pkg/core"
)

// Wallet is one [TYPE, CURRENCY, BALANCE, ...] wallet entry.
type Wallet struct {
	Type              string  `json:"type"`
	Currency          string  `json:"currency"`
	Balance           float64 `json:"balance"`
	UnsettledInterest float64 `json:"unsettled_interest"`
	// AvailableBalance is nil when the exchange has not computed it yet.
	AvailableBalance   *float64       `json:"available_balance"`
	LastChange         string         `json:"last_change"`
	LastChangeMetadata map[string]any `json:"last_change_metadata"`
}

// MovementStatus is the state of a deposit or withdrawal.
type MovementStatus int

const (
	MovementUnknown MovementStatus = iota
	MovementPending
	MovementUnconfirmed
	MovementProcessing
	MovementCompleted
	MovementCanceled
	MovementFailed
)

var movementStatuses = map[string]MovementStatus{
	"PENDING":     MovementPending,
	"UNCONFIRMED": MovementUnconfirmed,
	"PROCESSING":  MovementProcessing,
	"COMPLETED":   MovementCompleted,
	"CANCELED":    MovementCanceled,
	"FAILED":      MovementFailed,
}

func (s MovementStatus) String() string {
	for name, v := range movementStatuses {
		if v == s {
			return name
		}
	}
	return "UNKNOWN"
}

// Movement is a deposit (positive amount) or withdrawal (negative amount).
type Movement struct {
	ID           uint64    `json:"id"`
	Currency     string    `json:"currency"`
	CurrencyName string    `json:"currency_name"`
	Started      time.Time `json:"mts_started"`
	Updated      time.Time `json:"mts_updated"`
	// Status keeps the wire text; State is its parsed form.
	Status                  string         `json:"status"`
	State                   MovementStatus `json:"state"`
	Amount                  float64        `json:"amount"`
	Fees                    float64        `json:"fees"`
	DestinationAddress      string         `json:"destination_address"`
	PaymentID               *string        `json:"payment_id,omitempty"`
	TransactionID           string         `json:"transaction_id"`
	WithdrawTransactionNote *string        `json:"withdraw_transaction_note,omitempty"`
}

// IsDeposit reports whether funds came into the account.
func (m Movement) IsDeposit() bool {
	return m.Amount > 0
}

// Trade is one executed fill.
type Trade struct {
	ID          uint64         `json:"id"`
	Symbol      string         `json:"symbol"`
	Timestamp   time.Time      `json:"mts"`
	OrderID     uint64         `json:"order_id"`
	Amount      float64        `json:"exec_amount"`
	Price       float64        `json:"exec_price"`
	OrderType   string         `json:"order_type"`
	OrderPrice  float64        `json:"order_price"`
	IsMaker     bool           `json:"is_maker"`
	Fee         float64        `json:"fee"`
	FeeCurrency string         `json:"fee_currency"`
	CID         *uint64        `json:"cid,omitempty"`
	Side        core.TradeSide `json:"side"`
}

func decodeWallet(data json.RawMessage) (Wallet, error) {
	r := codec.NewTupleReader("wallet", data, 7, 0)
	w := Wallet{
		Type:               r.String(0, "type"),
		Currency:           r.String(1, "currency"),
		Balance:            r.Float64(2, "balance"),
		UnsettledInterest:  r.Float64(3, "unsettled_interest"),
		AvailableBalance:   r.OptFloat64(4, "available_balance"),
		LastChange:         optString(r, 5, "last_change"),
		LastChangeMetadata: r.Object(6, "last_change_metadata"),
	}
	return w, r.Err()
}

func decodeMovement(data json.RawMessage) (Movement, error) {
	r := codec.NewTupleReader("movement", data, 21, 0)
	m := Movement{
		ID:                      r.Uint64(0, "id"),
		Currency:                r.String(1, "currency"),
		CurrencyName:            r.String(2, "currency_name"),
		Started:                 millis(r.Uint64(5, "mts_started")),
		Updated:                 millis(r.Uint64(6, "mts_updated")),
		Status:                  r.String(9, "status"),
		Amount:                  r.Float64(12, "amount"),
		Fees:                    r.Float64(13, "fees"),
		DestinationAddress:      optString(r, 16, "destination_address"),
		PaymentID:               r.OptString(17, "payment_id"),
		TransactionID:           optString(r, 20, "transaction_id"),
		WithdrawTransactionNote: r.OptString(21, "withdraw_transaction_note"),
	}
	m.State = codec.Lookup(movementStatuses, m.Status, MovementUnknown)
	return m, r.Err()
}

func decodeTrade(data json.RawMessage) (Trade, error) {
	r := codec.NewTupleReader("trade", data, 11, 0)
	t := Trade{
		ID:          r.Uint64(0, "id"),
		Symbol:      r.String(1, "symbol"),
		Timestamp:   millis(r.Uint64(2, "mts")),
		OrderID:     r.Uint64(3, "order_id"),
		Amount:      r.Float64(4, "exec_amount"),
		Price:       r.Float64(5, "exec_price"),
		OrderType:   r.String(6, "order_type"),
		OrderPrice:  r.Float64(7, "order_price"),
		IsMaker:     r.Int(8, "maker") == 1,
		Fee:         r.Float64(9, "fee"),
		FeeCurrency: r.String(10, "fee_currency"),
		CID:         r.OptUint64(11, "cid"),
	}
	switch {
	case t.Amount > 0:
		t.Side = core.SideBuy
	case t.Amount < 0:
		t.Side = core.SideSell
	}
	return t, r.Err()
}

// decodeList splits a top-level array and decodes each element.
func decodeList[T any](name string, body []byte, decode func(json.RawMessage) (T, error)) ([]T, error) {
	items, err := codec.SplitArray(body)
	if err != nil {
		return nil, codec.DecodeError(core.ExchangeBitfinex, name, err)
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := decode(item)
		if err != nil {
			return nil, codec.DecodeError(core.ExchangeBitfinex, name+"["+strconv.Itoa(i)+"]", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// optString reads a string slot that the exchange sometimes leaves null.
func optString(r *codec.TupleReader, i int, field string) string {
	if s := r.OptString(i, field); s != nil {
		return *s
	}
	return ""
}

func millis(ms uint64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}
