package recorder

import (
	"time"

	"StrengthSentinel/internal/model"
)

// Sources of an analysis run.
const (
	SourceCLI      = "cli"
	SourceWatch    = "watch"
	SourceTelegram = "telegram"
)

// AnalysisRecord is one successful relative strength computation.
type AnalysisRecord struct {
	RunID      string
	Source     string
	RecordedAt time.Time
	Bundle     *model.Bundle
}

// FailureRecord is one analysis that ended in a Failure.
type FailureRecord struct {
	RunID      string
	Source     string
	RecordedAt time.Time
	Symbol     string
	Benchmark  string
	Kind       model.FailureKind
	Message    string
}

// ChangeRecord is a trend or recommendation change observed on a watched symbol.
type ChangeRecord struct {
	RunID              string
	RecordedAt         time.Time
	Symbol             string
	FromTrend          model.Trend
	ToTrend            model.Trend
	FromRecommendation model.Recommendation
	ToRecommendation   model.Recommendation
}

// HistoryRow is a stored analysis summary.
type HistoryRow struct {
	RunID          string
	RecordedAt     time.Time
	Symbol         string
	Benchmark      string
	AsOf           string
	Normalized     float64
	Trend          model.Trend
	Recommendation model.Recommendation
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAnalysis(rec *AnalysisRecord) error
	RecordFailure(rec *FailureRecord) error
	RecordChange(rec *ChangeRecord) error
	History(symbol string, limit int) ([]HistoryRow, error)
	Close() error
}
