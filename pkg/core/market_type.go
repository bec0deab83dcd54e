package core

// MarketType is the instrument family a trade belongs to.
type MarketType int

// Market type constants. The zero value is spot.
const (
	MarketTypeSpot MarketType = iota
	MarketTypeMargin
	MarketTypeSwap
	MarketTypeFutures
	MarketTypeOptions
)

var marketTypeNames = [...]string{
	"SPOT",
	"MARGIN",
	"SWAP",
	"FUTURES",
	"OPTION",
}

// String returns the instrument type as exchanges spell it in query parameters.
func (m MarketType) String() string {
	if m < 0 || int(m) >= len(marketTypeNames) {
		return "UNKNOWN"
	}
	return marketTypeNames[m]
}
