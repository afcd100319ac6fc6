package model

// StrengthLevel says whether the security beat its benchmark over the window.
type StrengthLevel string

const (
	StrengthStronger StrengthLevel = "stronger-than-benchmark"
	StrengthWeaker   StrengthLevel = "weaker-than-benchmark"
)

// Trend classifies the ordering of normalized vs its short moving averages.
type Trend string

const (
	TrendStrongUp   Trend = "strong-uptrend"
	TrendMildUp     Trend = "mild-uptrend"
	TrendSideways   Trend = "sideways"
	TrendMildDown   Trend = "mild-downtrend"
	TrendStrongDown Trend = "strong-downtrend"
)

// Volatility buckets the trailing standard deviation of the normalized series.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// Recommendation combines strength and trend scores.
type Recommendation string

const (
	RecommendFavorable           Recommendation = "favorable"
	RecommendCautiouslyFavorable Recommendation = "cautiously-favorable"
	RecommendNeutral             Recommendation = "neutral"
	RecommendUnfavorable         Recommendation = "unfavorable"
)

// AnalysisResult is the qualitative read of the latest relative strength row.
type AnalysisResult struct {
	StrengthLevel       StrengthLevel  `json:"strength_level"`
	StrengthScore       float64        `json:"strength_score"`
	Trend               Trend          `json:"trend"`
	TrendScore          int            `json:"trend_score"`
	Volatility          Volatility     `json:"volatility"`
	VolatilityValue     float64        `json:"volatility_value"`
	Recommendation      Recommendation `json:"recommendation"`
	RecommendationScore int            `json:"recommendation_score"`
}
