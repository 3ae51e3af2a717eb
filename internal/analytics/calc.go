package analytics

import (
	"errors"
	"math"

	"FinSight/internal/model"
)

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// Range scans the most recent window values and returns the high and low.
// A non-positive window scans everything.
func Range(values []float64, window int) (high, low float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values provided")
	}
	n := len(values)
	start := 0
	if window > 0 && n > window {
		start = n - window
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if values[i] > high {
			high = values[i]
		}
		if values[i] < low {
			low = values[i]
		}
	}
	return high, low, nil
}

// Position returns where current sits within [low, high] (0.0~1.0).
func Position(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// PercentChange returns (to-from)/|from| in percent. ok is false when from is zero.
func PercentChange(from, to float64) (pct float64, ok bool) {
	if from == 0 {
		return 0, false
	}
	return (to - from) / math.Abs(from) * 100, true
}

// GrowthRates returns period-over-period percent changes. A step from zero
// is reported as 0.
func GrowthRates(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		pct, _ := PercentChange(values[i-1], values[i])
		out = append(out, pct)
	}
	return out
}

// AverageGrowth is the mean period-over-period percent change. Steps from a
// zero value are left out. It is 0 when no step qualifies.
func AverageGrowth(values []float64) float64 {
	sum, n := 0.0, 0
	for i := 1; i < len(values); i++ {
		if pct, ok := PercentChange(values[i-1], values[i]); ok {
			sum += pct
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Margin returns income as a percentage of revenue. ok is false when revenue
// is not positive.
func Margin(income, revenue float64) (pct float64, ok bool) {
	if revenue <= 0 {
		return 0, false
	}
	return income / revenue * 100, true
}

// Summarize computes descriptive statistics for a series. smaWindow caps the
// trailing moving-average window.
func Summarize(series model.MetricSeries, smaWindow int) model.SeriesStats {
	values := series.Values()
	stats := model.SeriesStats{Count: len(values)}
	if len(values) == 0 {
		return stats
	}

	stats.First = values[0]
	stats.Last = values[len(values)-1]
	stats.Max, stats.Min, _ = Range(values, 0)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))
	stats.ChangePct, _ = PercentChange(stats.First, stats.Last)
	stats.Growth = GrowthRates(values)

	n := smaWindow
	if n > len(values) {
		n = len(values)
	}
	if n > 0 {
		stats.MovingAvg, _ = SMA(values, n)
		stats.MovingAvgN = n
	}
	return stats
}
