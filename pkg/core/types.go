package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// TradeSide is the direction of an executed trade.
type TradeSide int

const (
	// SideUnknown is used for values the exchange added after this code was written.
	SideUnknown TradeSide = iota
	// SideBuy indicates the account bought the base asset.
	SideBuy
	// SideSell indicates the account sold the base asset.
	SideSell
)

// String returns the string representation of the trade side.
func (s TradeSide) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON implements json.Marshaler for TradeSide.
func (s TradeSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts either case. Unrecognized values decode to SideUnknown.
func (s *TradeSide) UnmarshalJSON(data []byte) error {
	switch strings.ToUpper(strings.Trim(string(data), `"`)) {
	case "BUY":
		*s = SideBuy
	case "SELL":
		*s = SideSell
	default:
		*s = SideUnknown
	}
	return nil
}

// AssetBalance is the uniform view of how much of one asset an account holds on
// one exchange. Amounts are summed as exact decimals.
type AssetBalance struct {
	Exchange string      `json:"exchange"`
	Asset    string      `json:"asset"`
	Total    apd.Decimal `json:"total"`
	// Entries is the number of amounts summed into Total.
	Entries int `json:"entries"`
}

// NewAssetBalance returns a zero balance.
func NewAssetBalance(exchange, asset string) *AssetBalance {
	return &AssetBalance{Exchange: exchange, Asset: asset}
}

// Add accumulates an amount decoded as float64 using its shortest decimal form,
// so that 0.1 + 0.2 sums to exactly 0.3.
func (b *AssetBalance) Add(amount float64) error {
	var d apd.Decimal
	if _, _, err := d.SetString(strconv.FormatFloat(amount, 'f', -1, 64)); err != nil {
		return fmt.Errorf("convert amount %v: %w", amount, err)
	}
	if _, err := apd.BaseContext.Add(&b.Total, &b.Total, &d); err != nil {
		return fmt.Errorf("add amount %v: %w", amount, err)
	}
	b.Entries++
	return nil
}

// Float64 returns Total as a float64.
func (b *AssetBalance) Float64() float64 {
	f, err := b.Total.Float64()
	if err != nil {
		return 0
	}
	return f
}

func (b *AssetBalance) String() string {
	return fmt.Sprintf("%s %s %s", b.Exchange, b.Total.String(), b.Asset)
}
