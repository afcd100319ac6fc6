package calculator

import (
	"errors"
	"math"

	"StrengthSentinel/internal/model"
)

// PriceRange scans the most recent n bars and returns the highest high and lowest low.
// Bars without intraday data fall back to their close.
func PriceRange(points []model.PricePoint, n int) (high, low float64, err error) {
	if len(points) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	start := len(points) - n
	if start < 0 || n <= 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(points); i++ {
		h, l := barHigh(points[i]), barLow(points[i])
		if h > high {
			high = h
		}
		if l < low {
			low = l
		}
	}
	return high, low, nil
}

// RangePosition returns where the current value sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return Clamp((current-low)/(high-low), 0, 1), nil
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func barHigh(p model.PricePoint) float64 {
	if p.High == 0 {
		return p.Close
	}
	return p.High
}

func barLow(p model.PricePoint) float64 {
	if p.Low == 0 {
		return p.Close
	}
	return p.Low
}
