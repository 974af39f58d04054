package outcome

import (
	"math"
	"sort"

	"fx-trade-lab/internal/domain"
)

// Summary aggregates R-multiples over a result set. Statistics use
// float64; individual trade outcomes stay decimal on the trades
// themselves.
type Summary struct {
	Trades   int
	Counted  int // trades with a computed R-multiple
	Unfilled int // trades that never entered

	Wins    int
	Losses  int
	WinRate float64

	RMean   float64
	RMedian float64
	RStddev float64
	RMin    float64
	RMax    float64

	// MaxDrawdown is the worst peak-to-trough fall of cumulative R, with
	// trades in chronological order.
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// Summarize computes aggregate statistics over trades. Trades are
// ordered by entry time (nil entries last, ID tiebreak) before the
// order-dependent figures are computed. Trades without an R-multiple are
// counted but excluded from the statistics.
func Summarize(trades []*domain.Trade) Summary {
	s := Summary{Trades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.EntryTime == nil && b.EntryTime == nil:
			return a.ID < b.ID
		case a.EntryTime == nil:
			return false
		case b.EntryTime == nil:
			return true
		case !a.EntryTime.Equal(*b.EntryTime):
			return a.EntryTime.Before(*b.EntryTime)
		default:
			return a.ID < b.ID
		}
	})

	var outcomes []float64
	for _, t := range ordered {
		if t.EntryTime == nil {
			s.Unfilled++
		}
		if t.RMultiple == nil {
			continue
		}
		r, _ := t.RMultiple.Float64()
		outcomes = append(outcomes, r)
		if r > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	s.Counted = len(outcomes)
	if s.Counted == 0 {
		return s
	}
	s.WinRate = float64(s.Wins) / float64(s.Counted)

	sorted := make([]float64, len(outcomes))
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	s.RMean = mean(outcomes)
	s.RMedian = percentile(sorted, 0.50)
	s.RStddev = stddev(outcomes, s.RMean)
	s.RMin = sorted[0]
	s.RMax = sorted[len(sorted)-1]
	s.MaxDrawdown = maxDrawdown(outcomes)
	s.MaxConsecutiveLosses = maxConsecutiveLosses(outcomes)
	return s
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation; sorted must be ASC.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// maxDrawdown is the worst fall of cumulative R from its running peak.
func maxDrawdown(outcomes []float64) float64 {
	cumulative, peak, worst := 0.0, 0.0, 0.0
	for _, r := range outcomes {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

func maxConsecutiveLosses(outcomes []float64) int {
	longest, current := 0, 0
	for _, r := range outcomes {
		if r <= 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
