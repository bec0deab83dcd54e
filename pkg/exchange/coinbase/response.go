package coinbase

import (
	"encoding/json"
	"time"

	"nakula/internal/codec"
)

// Money is an amount with its currency code. Debits are negative.
type Money struct {
	Amount   codec.Float `json:"amount"`
	Currency string      `json:"currency" validate:"required"`
}

// Currency describes the asset an account holds.
type Currency struct {
	AssetID string `json:"asset_id"`
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name"`
}

// Account is a wallet, fiat or vault account. ID is either a UUID or a ticker.
type Account struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name"`
	Primary   bool       `json:"primary"`
	Type      string     `json:"type"`
	Currency  Currency   `json:"currency"`
	Balance   Money      `json:"balance"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Transaction is one entry of an account's ledger.
type Transaction struct {
	ID           string            `json:"id" validate:"required"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Amount       Money             `json:"amount"`
	NativeAmount Money             `json:"native_amount"`
	Description  *string           `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AccountPage is one page of the accounts listing.
type AccountPage struct {
	Accounts []Account
	// NextURI is the path and query of the next page, empty on the last one.
	NextURI string
}

// TransactionPage is one page of an account's transactions.
type TransactionPage struct {
	Transactions []Transaction
	NextURI      string
}

type pagination struct {
	NextURI *string `json:"next_uri"`
}

type envelope struct {
	Pagination *pagination     `json:"pagination"`
	Data       json.RawMessage `json:"data"`
}

func (e *envelope) nextURI() string {
	if e.Pagination == nil || e.Pagination.NextURI == nil {
		return ""
	}
	return *e.Pagination.NextURI
}

type apiError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}
