package binance

import (
	"time"

	"nakula/internal/codec"
	"nakula/pkg/core"
)

// RateLimit is one entry of the published rate limit table.
type RateLimit struct {
	RateLimitType string `json:"rateLimitType"`
	Interval      string `json:"interval"`
	IntervalNum   int    `json:"intervalNum"`
	Limit         int    `json:"limit"`
}

// Symbol describes one tradable pair.
type Symbol struct {
	Symbol                 string   `json:"symbol" validate:"required"`
	Status                 string   `json:"status"`
	BaseAsset              string   `json:"baseAsset" validate:"required"`
	BaseAssetPrecision     int      `json:"baseAssetPrecision"`
	QuoteAsset             string   `json:"quoteAsset" validate:"required"`
	QuotePrecision         int      `json:"quotePrecision"`
	OrderTypes             []string `json:"orderTypes"`
	IcebergAllowed         bool     `json:"icebergAllowed"`
	IsSpotTradingAllowed   bool     `json:"isSpotTradingAllowed"`
	IsMarginTradingAllowed bool     `json:"isMarginTradingAllowed"`
}

// Involves reports whether asset is the base or the quote of the pair.
func (s Symbol) Involves(asset string) bool {
	return s.BaseAsset == asset || s.QuoteAsset == asset
}

// ExchangeInformation is the answer of /api/v3/exchangeInfo.
type ExchangeInformation struct {
	Timezone   string      `json:"timezone"`
	ServerTime int64       `json:"serverTime"`
	RateLimits []RateLimit `json:"rateLimits"`
	Symbols    []Symbol    `json:"symbols" validate:"dive"`
}

// Balance is the holding of one asset.
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// AccountInformation is the answer of /api/v3/account.
type AccountInformation struct {
	MakerCommission  int64     `json:"makerCommission"`
	TakerCommission  int64     `json:"takerCommission"`
	BuyerCommission  int64     `json:"buyerCommission"`
	SellerCommission int64     `json:"sellerCommission"`
	CanTrade         bool      `json:"canTrade"`
	CanWithdraw      bool      `json:"canWithdraw"`
	CanDeposit       bool      `json:"canDeposit"`
	Balances         []Balance `json:"balances"`
}

// Trade is one fill of the account.
type Trade struct {
	Symbol          string         `json:"symbol"`
	ID              uint64         `json:"id"`
	OrderID         int64          `json:"orderId"`
	Price           float64        `json:"price"`
	Qty             float64        `json:"qty"`
	QuoteQty        float64        `json:"quoteQty"`
	Commission      float64        `json:"commission"`
	CommissionAsset string         `json:"commissionAsset"`
	Time            time.Time      `json:"time"`
	Side            core.TradeSide `json:"side"`
	IsMaker         bool           `json:"isMaker"`
	IsBestMatch     bool           `json:"isBestMatch"`
}

// binanceAPIError is the {code, msg} body of a rejected call.
type binanceAPIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// binanceBalance carries amounts as decimal strings.
type binanceBalance struct {
	Asset  string      `json:"asset" validate:"required"`
	Free   codec.Float `json:"free"`
	Locked codec.Float `json:"locked"`
}

type binanceAccount struct {
	MakerCommission  int64            `json:"makerCommission"`
	TakerCommission  int64            `json:"takerCommission"`
	BuyerCommission  int64            `json:"buyerCommission"`
	SellerCommission int64            `json:"sellerCommission"`
	CanTrade         bool             `json:"canTrade"`
	CanWithdraw      bool             `json:"canWithdraw"`
	CanDeposit       bool             `json:"canDeposit"`
	Balances         []binanceBalance `json:"balances" validate:"dive"`
}

type binanceTrade struct {
	Symbol          string      `json:"symbol"`
	ID              codec.Uint  `json:"id"`
	OrderID         int64       `json:"orderId"`
	Price           codec.Float `json:"price"`
	Qty             codec.Float `json:"qty"`
	QuoteQty        codec.Float `json:"quoteQty"`
	Commission      codec.Float `json:"commission"`
	CommissionAsset string      `json:"commissionAsset"`
	Time            int64       `json:"time" validate:"min=0"`
	IsBuyer         bool        `json:"isBuyer"`
	IsMaker         bool        `json:"isMaker"`
	IsBestMatch     bool        `json:"isBestMatch"`
}

func normalizeAccount(raw *binanceAccount) *AccountInformation {
	account := &AccountInformation{
		MakerCommission:  raw.MakerCommission,
		TakerCommission:  raw.TakerCommission,
		BuyerCommission:  raw.BuyerCommission,
		SellerCommission: raw.SellerCommission,
		CanTrade:         raw.CanTrade,
		CanWithdraw:      raw.CanWithdraw,
		CanDeposit:       raw.CanDeposit,
		Balances:         make([]Balance, 0, len(raw.Balances)),
	}
	for _, b := range raw.Balances {
		account.Balances = append(account.Balances, Balance{
			Asset:  b.Asset,
			Free:   float64(b.Free),
			Locked: float64(b.Locked),
		})
	}
	return account
}

func normalizeTrade(raw binanceTrade) Trade {
	side := core.SideSell
	if raw.IsBuyer {
		side = core.SideBuy
	}
	return Trade{
		Symbol:          raw.Symbol,
		ID:              uint64(raw.ID),
		OrderID:         raw.OrderID,
		Price:           float64(raw.Price),
		Qty:             float64(raw.Qty),
		QuoteQty:        float64(raw.QuoteQty),
		Commission:      float64(raw.Commission),
		CommissionAsset: raw.CommissionAsset,
		Time:            time.UnixMilli(raw.Time).UTC(),
		Side:            side,
		IsMaker:         raw.IsMaker,
		IsBestMatch:     raw.IsBestMatch,
	}
}
