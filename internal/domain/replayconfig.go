package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReplayConfig selects how a what-if replay treats each trade's order,
// stop and limit relative to the historical record. The policy factory
// validates it and builds typed policies; unknown modes are configuration
// errors, not data conditions.
type ReplayConfig struct {
	// Date range to replay. Zero values mean unbounded on that side.
	Start time.Time
	End   time.Time

	StopMode  string // STOP_ORIGINAL | STOP_INITIAL_ONLY | STOP_TRAIL_INDICATOR | STOP_TRAIL_DYNAMIC
	LimitMode string // LIMIT_ORIGINAL | LIMIT_FIXED_R | LIMIT_NONE
	OrderMode string // ORDER_ORIGINAL | ORDER_PERCENT_SHIFT

	// STOP_TRAIL_INDICATOR parameters.
	TrailTimeframe *Timeframe
	TrailIndicator *Indicator // EMA8 or EMA25

	// STOP_TRAIL_DYNAMIC parameters.
	ATRMultiple *decimal.Decimal

	// LIMIT_FIXED_R parameters.
	LimitRMultiple *decimal.Decimal

	// ORDER_PERCENT_SHIFT parameters. Positive shifts the order to a
	// better fill for the trade direction, negative to a worse one.
	OrderShiftPercent *decimal.Decimal
}

// Stop mode constants.
const (
	StopModeOriginal       = "STOP_ORIGINAL"
	StopModeInitialOnly    = "STOP_INITIAL_ONLY"
	StopModeTrailIndicator = "STOP_TRAIL_INDICATOR"
	StopModeTrailDynamic   = "STOP_TRAIL_DYNAMIC"
)

// Limit mode constants.
const (
	LimitModeOriginal = "LIMIT_ORIGINAL"
	LimitModeFixedR   = "LIMIT_FIXED_R"
	LimitModeNone     = "LIMIT_NONE"
)

// Order mode constants.
const (
	OrderModeOriginal     = "ORDER_ORIGINAL"
	OrderModePercentShift = "ORDER_PERCENT_SHIFT"
)
