package ratelimit

import (
	"math"
	"time"

	"nakula/pkg/core"
)

// DefaultMinBackoff is the shortest deferral the budget ever asks for.
const DefaultMinBackoff = 200 * time.Millisecond

// WeightBudget interprets the server's report of weight used in the current
// window. It keeps no state: every decision is computed from the latest response.
type WeightBudget struct {
	// Header carries the used weight, e.g. X-MBX-USED-WEIGHT-1M. Empty disables the budget.
	Header     string
	MaxWeight  int
	Window     time.Duration
	MinBackoff time.Duration
}

// Decision is the outcome of one budget check.
type Decision struct {
	Used      int
	Available int
	Declared  int
	Deficit   int
	Sleep     time.Duration
}

// Throttled reports whether the caller has to wait and retry.
func (d Decision) Throttled() bool {
	return d.Deficit > 0
}

// Enabled reports whether the budget has anything to enforce.
func (b WeightBudget) Enabled() bool {
	return b.Header != "" && b.MaxWeight > 0
}

// Assess compares the declared weight of a request with what is left in the window.
// A declared weight above MaxWeight is treated as MaxWeight so that the request
// can eventually pass once the window has rolled over.
func (b WeightBudget) Assess(used, declared int) Decision {
	if !b.Enabled() {
		return Decision{Used: used, Declared: declared}
	}

	if declared > b.MaxWeight {
		declared = b.MaxWeight
	}
	available := max(0, b.MaxWeight-used)
	d := Decision{Used: used, Available: available, Declared: declared}
	if available >= declared {
		return d
	}

	d.Deficit = declared - available
	proportional := math.Round(float64(d.Deficit) / float64(b.MaxWeight) * float64(b.Window.Milliseconds()))
	minBackoff := b.MinBackoff
	if minBackoff <= 0 {
		minBackoff = DefaultMinBackoff
	}
	d.Sleep = max(minBackoff, time.Duration(proportional)*time.Millisecond)
	return d
}

// AssessResponse reads the used weight from resp; a missing header counts as zero.
func (b WeightBudget) AssessResponse(resp *core.Response, declared int) Decision {
	if !b.Enabled() {
		return Decision{Declared: declared}
	}
	return b.Assess(resp.HeaderInt(b.Header), declared)
}
