package strategy

import (
	"StrengthSentinel/internal/calculator"
	"StrengthSentinel/internal/model"
)

// Baseline is the normalized value of the first aligned row.
const Baseline = 100.0

// Volatility thresholds on the trailing standard deviation of normalized.
const (
	HighVolatility   = 5.0
	MediumVolatility = 2.0
)

// Analyze turns the latest normalized value, its short moving averages and the
// trailing standard deviation into the qualitative read. Undefined averages take
// the latest normalized value.
func Analyze(normalized float64, ma5, ma10 *float64, std float64) model.AnalysisResult {
	m5, m10 := normalized, normalized
	if ma5 != nil {
		m5 = *ma5
	}
	if ma10 != nil {
		m10 = *ma10
	}

	level, strength := scoreStrength(normalized)
	trend, trendScore := scoreTrend(normalized, m5, m10)
	rec, recScore := recommend(strength, trendScore)

	return model.AnalysisResult{
		StrengthLevel:       level,
		StrengthScore:       strength,
		Trend:               trend,
		TrendScore:          trendScore,
		Volatility:          classifyVolatility(std),
		VolatilityValue:     std,
		Recommendation:      rec,
		RecommendationScore: recScore,
	}
}

// scoreStrength maps normalized to 0..100. Above baseline, +20 points of
// outperformance saturates the score.
func scoreStrength(n float64) (model.StrengthLevel, float64) {
	if n > Baseline {
		return model.StrengthStronger, calculator.Clamp((n-Baseline)/20*100, 0, 100)
	}
	return model.StrengthWeaker, calculator.Clamp(n/Baseline*100, 0, 100)
}

// scoreTrend orders normalized against MA5 and MA10. First match wins.
func scoreTrend(n, ma5, ma10 float64) (model.Trend, int) {
	switch {
	case n > ma5 && ma5 > ma10:
		return model.TrendStrongUp, 85
	case n > ma10 && ma5 > ma10:
		return model.TrendMildUp, 70
	case n < ma5 && ma5 < ma10:
		return model.TrendStrongDown, 15
	case n < ma10 && ma5 < ma10:
		return model.TrendMildDown, 30
	default:
		return model.TrendSideways, 50
	}
}

func classifyVolatility(std float64) model.Volatility {
	switch {
	case std > HighVolatility:
		return model.VolatilityHigh
	case std > MediumVolatility:
		return model.VolatilityMedium
	default:
		return model.VolatilityLow
	}
}

func recommend(strength float64, trend int) (model.Recommendation, int) {
	switch {
	case strength > 70 && trend > 70:
		return model.RecommendFavorable, 85
	case strength > 50 && trend > 60:
		return model.RecommendCautiouslyFavorable, 70
	case strength < 30 || trend < 30:
		return model.RecommendUnfavorable, 25
	default:
		return model.RecommendNeutral, 50
	}
}
