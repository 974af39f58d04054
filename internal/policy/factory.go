package policy

import (
	"errors"

	"fx-trade-lab/internal/domain"
)

// Factory errors. Unknown modes and missing parameters are programming
// errors in the caller and fail fast, unlike missing market data.
var (
	ErrUnknownStopMode       = errors.New("unknown stop mode")
	ErrUnknownLimitMode      = errors.New("unknown limit mode")
	ErrUnknownOrderMode      = errors.New("unknown order mode")
	ErrMissingTrailTimeframe = errors.New("STOP_TRAIL_INDICATOR requires TrailTimeframe")
	ErrMissingTrailIndicator = errors.New("STOP_TRAIL_INDICATOR requires an EMA TrailIndicator")
	ErrMissingATRMultiple    = errors.New("STOP_TRAIL_DYNAMIC requires a positive ATRMultiple")
	ErrMissingLimitRMultiple = errors.New("LIMIT_FIXED_R requires a positive LimitRMultiple")
	ErrMissingOrderShift     = errors.New("ORDER_PERCENT_SHIFT requires OrderShiftPercent")
)

// FromConfig validates cfg and builds the policy set for a replay run.
func FromConfig(cfg domain.ReplayConfig) (*Set, error) {
	stop, err := stopFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	limit, err := limitFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	order, err := orderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Set{Stop: stop, Limit: limit, Order: order}, nil
}

func stopFromConfig(cfg domain.ReplayConfig) (StopPolicy, error) {
	switch cfg.StopMode {
	case domain.StopModeOriginal:
		return OriginalScheduleStop{}, nil
	case domain.StopModeInitialOnly:
		return InitialOnlyStop{}, nil
	case domain.StopModeTrailIndicator:
		if cfg.TrailTimeframe == nil {
			return nil, ErrMissingTrailTimeframe
		}
		if cfg.TrailIndicator == nil ||
			(*cfg.TrailIndicator != domain.IndicatorEMA8 && *cfg.TrailIndicator != domain.IndicatorEMA25) {
			return nil, ErrMissingTrailIndicator
		}
		return IndicatorTrailStop{Timeframe: *cfg.TrailTimeframe, Indicator: *cfg.TrailIndicator}, nil
	case domain.StopModeTrailDynamic:
		if cfg.ATRMultiple == nil || !cfg.ATRMultiple.IsPositive() {
			return nil, ErrMissingATRMultiple
		}
		return DynamicTrailStop{ATRMultiple: *cfg.ATRMultiple}, nil
	default:
		return nil, ErrUnknownStopMode
	}
}

func limitFromConfig(cfg domain.ReplayConfig) (LimitPolicy, error) {
	switch cfg.LimitMode {
	case domain.LimitModeOriginal:
		return OriginalScheduleLimit{}, nil
	case domain.LimitModeNone:
		return NoLimit{}, nil
	case domain.LimitModeFixedR:
		if cfg.LimitRMultiple == nil || !cfg.LimitRMultiple.IsPositive() {
			return nil, ErrMissingLimitRMultiple
		}
		return FixedRLimit{R: *cfg.LimitRMultiple}, nil
	default:
		return nil, ErrUnknownLimitMode
	}
}

func orderFromConfig(cfg domain.ReplayConfig) (OrderAdjuster, error) {
	switch cfg.OrderMode {
	case domain.OrderModeOriginal:
		return OriginalOrder{}, nil
	case domain.OrderModePercentShift:
		if cfg.OrderShiftPercent == nil || cfg.OrderShiftPercent.IsZero() {
			return nil, ErrMissingOrderShift
		}
		return PercentShiftOrder{Percent: *cfg.OrderShiftPercent}, nil
	default:
		return nil, ErrUnknownOrderMode
	}
}
