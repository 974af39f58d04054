package domain

import (
	"fmt"
	"time"
)

// Timeframe is a candle aggregation period.
type Timeframe time.Duration

// Supported timeframes. M1 is the finest granularity the replay steps at;
// coarser timeframes are consulted for trailing-stop decisions.
const (
	TimeframeM1  = Timeframe(1 * time.Minute)
	TimeframeM5  = Timeframe(5 * time.Minute)
	TimeframeM15 = Timeframe(15 * time.Minute)
	TimeframeH1  = Timeframe(1 * time.Hour)
	TimeframeH2  = Timeframe(2 * time.Hour)
	TimeframeH4  = Timeframe(4 * time.Hour)
	TimeframeD1  = Timeframe(24 * time.Hour)
)

// Duration returns the timeframe as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf)
}

// Bucket returns the open time of the candle bucket containing t.
func (tf Timeframe) Bucket(t time.Time) time.Time {
	return t.Truncate(time.Duration(tf))
}

// String returns the conventional short name (M1, H2, D1, ...).
func (tf Timeframe) String() string {
	d := time.Duration(tf)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("M%d", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("H%d", int(d.Hours()))
	default:
		return fmt.Sprintf("D%d", int(d.Hours()/24))
	}
}

// ParseTimeframe converts a short name into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch s {
	case "M1":
		return TimeframeM1, nil
	case "M5":
		return TimeframeM5, nil
	case "M15":
		return TimeframeM15, nil
	case "H1":
		return TimeframeH1, nil
	case "H2":
		return TimeframeH2, nil
	case "H4":
		return TimeframeH4, nil
	case "D1":
		return TimeframeD1, nil
	default:
		return 0, fmt.Errorf("unknown timeframe %q", s)
	}
}
