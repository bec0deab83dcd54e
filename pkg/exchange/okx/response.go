package okx

import (
	"time"

	"nakula/internal/codec"
	"nakula/pkg/core"
)

// Account is one entry of the balance endpoint's data array.
type Account struct {
	TotalEquity codec.Float     `json:"totalEq"`
	UpdateTime  codec.Uint      `json:"uTime"`
	Details     []BalanceDetail `json:"details" validate:"dive"`
}

// BalanceDetail is the per-currency part of an Account.
type BalanceDetail struct {
	Currency         string      `json:"ccy" validate:"required"`
	Equity           codec.Float `json:"eq"`
	CashBalance      codec.Float `json:"cashBal"`
	AvailableBalance codec.Float `json:"availBal"`
	FrozenBalance    codec.Float `json:"frozenBal"`
	UpdateTime       codec.Uint  `json:"uTime"`
}

// DepositState is the processing state of a deposit.
type DepositState int

const (
	DepositUnknown DepositState = iota
	DepositWaitingConfirmation
	DepositCredited
	DepositSuccessful
	DepositPending
	DepositBlacklisted
	DepositAccountFrozen
	DepositIntercepted
	DepositKYCLimit
)

var depositStates = map[string]DepositState{
	"0":  DepositWaitingConfirmation,
	"1":  DepositCredited,
	"2":  DepositSuccessful,
	"8":  DepositPending,
	"11": DepositBlacklisted,
	"12": DepositAccountFrozen,
	"13": DepositIntercepted,
	"14": DepositKYCLimit,
}

var depositStateNames = map[DepositState]string{
	DepositWaitingConfirmation: "WAITING_CONFIRMATION",
	DepositCredited:            "CREDITED",
	DepositSuccessful:          "SUCCESSFUL",
	DepositPending:             "PENDING",
	DepositBlacklisted:         "BLACKLISTED",
	DepositAccountFrozen:       "ACCOUNT_FROZEN",
	DepositIntercepted:         "INTERCEPTED",
	DepositKYCLimit:            "KYC_LIMIT",
}

func (s DepositState) String() string {
	if name, ok := depositStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// UnmarshalJSON reads the state code. Codes added by the exchange later
// decode to DepositUnknown.
func (s *DepositState) UnmarshalJSON(data []byte) error {
	code, err := codec.Code(data)
	if err != nil {
		return err
	}
	*s = codec.Lookup(depositStates, code, DepositUnknown)
	return nil
}

// WithdrawalState is the processing state of a withdrawal.
type WithdrawalState int

const (
	WithdrawalUnknown WithdrawalState = iota
	WithdrawalCanceling
	WithdrawalCanceled
	WithdrawalFailed
	WithdrawalWaiting
	WithdrawalWithdrawing
	WithdrawalSuccessful
	WithdrawalApproved
	WithdrawalWaitingTransfer
	WithdrawalManualReview
	WithdrawalPendingValidation
	WithdrawalRegulationDelay
	WithdrawalTravelRule
)

var withdrawalStates = map[string]WithdrawalState{
	"-3": WithdrawalCanceling,
	"-2": WithdrawalCanceled,
	"-1": WithdrawalFailed,
	"0":  WithdrawalWaiting,
	"1":  WithdrawalWithdrawing,
	"2":  WithdrawalSuccessful,
	"7":  WithdrawalApproved,
	"10": WithdrawalWaitingTransfer,
	"4":  WithdrawalManualReview,
	"5":  WithdrawalManualReview,
	"6":  WithdrawalManualReview,
	"8":  WithdrawalManualReview,
	"9":  WithdrawalManualReview,
	"12": WithdrawalManualReview,
	"15": WithdrawalPendingValidation,
	"16": WithdrawalRegulationDelay,
	"17": WithdrawalTravelRule,
}

var withdrawalStateNames = map[WithdrawalState]string{
	WithdrawalCanceling:         "CANCELING",
	WithdrawalCanceled:          "CANCELED",
	WithdrawalFailed:            "FAILED",
	WithdrawalWaiting:           "WAITING",
	WithdrawalWithdrawing:       "WITHDRAWING",
	WithdrawalSuccessful:        "SUCCESSFUL",
	WithdrawalApproved:          "APPROVED",
	WithdrawalWaitingTransfer:   "WAITING_TRANSFER",
	WithdrawalManualReview:      "MANUAL_REVIEW",
	WithdrawalPendingValidation: "PENDING_VALIDATION",
	WithdrawalRegulationDelay:   "REGULATION_DELAY",
	WithdrawalTravelRule:        "TRAVEL_RULE",
}

func (s WithdrawalState) String() string {
	if name, ok := withdrawalStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// UnmarshalJSON reads the state code; unknown codes become WithdrawalUnknown.
func (s *WithdrawalState) UnmarshalJSON(data []byte) error {
	code, err := codec.Code(data)
	if err != nil {
		return err
	}
	*s = codec.Lookup(withdrawalStates, code, WithdrawalUnknown)
	return nil
}

// Deposit is one record of the deposit history.
type Deposit struct {
	DepositID     string       `json:"depId"`
	Currency      string       `json:"ccy" validate:"required"`
	Chain         string       `json:"chain"`
	Amount        codec.Float  `json:"amt"`
	From          string       `json:"from"`
	To            string       `json:"to"`
	TransactionID string       `json:"txId"`
	State         DepositState `json:"state"`
	Confirmations codec.Uint   `json:"actualDepBlkConfirm"`
	Timestamp     codec.Uint   `json:"ts"`
}

// Time returns the deposit time.
func (d Deposit) Time() time.Time {
	return millis(d.Timestamp)
}

// Withdrawal is one record of the withdrawal history.
type Withdrawal struct {
	WithdrawalID  string          `json:"wdId"`
	ClientID      string          `json:"clientId"`
	Currency      string          `json:"ccy" validate:"required"`
	Chain         string          `json:"chain"`
	Amount        codec.Float     `json:"amt"`
	Fee           codec.Float     `json:"fee"`
	FeeCurrency   string          `json:"feeCcy"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	TransactionID string          `json:"txId"`
	State         WithdrawalState `json:"state"`
	Timestamp     codec.Uint      `json:"ts"`
}

func (w Withdrawal) Time() time.Time {
	return millis(w.Timestamp)
}

// Fill is one executed trade from the fills history.
type Fill struct {
	InstrumentType string         `json:"instType"`
	InstrumentID   string         `json:"instId" validate:"required"`
	TradeID        string         `json:"tradeId"`
	OrderID        string         `json:"ordId"`
	BillID         string         `json:"billId"`
	Side           core.TradeSide `json:"side"`
	Price          codec.Float    `json:"fillPx"`
	Size           codec.Float    `json:"fillSz"`
	Fee            codec.Float    `json:"fee"`
	FeeCurrency    string         `json:"feeCcy"`
	// ExecType is "T" for taker and "M" for maker fills.
	ExecType  string     `json:"execType"`
	Timestamp codec.Uint `json:"ts"`
}

func (f Fill) Time() time.Time {
	return millis(f.Timestamp)
}

// IsMaker reports whether the fill provided liquidity.
func (f Fill) IsMaker() bool {
	return f.ExecType == "M"
}

func millis(ms codec.Uint) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}
