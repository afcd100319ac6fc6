package calculator

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return stat.Mean(values[len(values)-period:], nil), nil
}

// RollingMean returns the trailing mean of window values at each index.
// Entries are nil until the window is full.
func RollingMean(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		m := stat.Mean(values[i-window+1:i+1], nil)
		out[i] = &m
	}
	return out
}

// PctChange returns the percentage change against the value offset rows earlier.
// Entries are nil without enough history or when the earlier value is zero.
func PctChange(values []float64, offset int) []*float64 {
	out := make([]*float64, len(values))
	if offset <= 0 {
		return out
	}
	for i := offset; i < len(values); i++ {
		prev := values[i-offset]
		if prev == 0 {
			continue
		}
		c := (values[i]/prev - 1) * 100
		out[i] = &c
	}
	return out
}

// TrailingStdDev is the sample standard deviation (n-1 denominator) of the last n values.
// Fewer than two values yield 0.
func TrailingStdDev(values []float64, n int) float64 {
	if n > len(values) || n <= 0 {
		n = len(values)
	}
	if n < 2 {
		return 0
	}
	return stat.StdDev(values[len(values)-n:], nil)
}

// Last returns the final element of a rolling series, nil when empty.
func Last(series []*float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}
