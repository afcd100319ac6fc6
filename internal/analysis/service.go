// Package analysis is the request entry point: it applies the default window,
// collects both series, runs the engine and records the outcome.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"StrengthSentinel/internal/calculator"
	"StrengthSentinel/internal/collector"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/recorder"
	"StrengthSentinel/internal/strategy"
)

// Look-back used when the request has no start date.
const (
	DefaultWindowDays   = 60
	IndicatorWindowDays = 120
)

// Service runs relative strength analyses.
type Service struct {
	Collector  *collector.Collector
	Recorder   recorder.Recorder
	WindowDays int
	RecentRows int
	Clock      func() time.Time
}

// NewService wires a service with the default window and wall clock.
func NewService(c *collector.Collector, rec recorder.Recorder) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{
		Collector:  c,
		Recorder:   rec,
		WindowDays: DefaultWindowDays,
		RecentRows: strategy.DefaultRecent,
		Clock:      time.Now,
	}
}

// Outcome is a Result together with the run id it was recorded under.
type Outcome struct {
	RunID string
	model.Result
}

// Analyze never returns a Go error: every failure is carried in the Result.
func (s *Service) Analyze(ctx context.Context, req model.Request, source string) Outcome {
	runID := uuid.NewString()
	out := Outcome{RunID: runID, Result: s.run(ctx, req)}

	now := s.now()
	if out.OK() {
		if err := s.Recorder.RecordAnalysis(&recorder.AnalysisRecord{
			RunID: runID, Source: source, RecordedAt: now, Bundle: out.Bundle,
		}); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("failed to record analysis")
		}
		log.Info().Str("run_id", runID).Str("symbol", out.Bundle.Symbol).Str("benchmark", out.Bundle.Benchmark.ID).
			Float64("normalized", out.Bundle.Latest.Normalized).Str("trend", string(out.Bundle.Analysis.Trend)).
			Str("recommendation", string(out.Bundle.Analysis.Recommendation)).Msg("analysis complete")
		return out
	}

	if err := s.Recorder.RecordFailure(&recorder.FailureRecord{
		RunID: runID, Source: source, RecordedAt: now,
		Symbol: req.Symbol, Benchmark: req.Benchmark,
		Kind: out.Failure.Kind, Message: out.Failure.Message,
	}); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to record failure")
	}
	log.Warn().Str("run_id", runID).Str("symbol", req.Symbol).Str("kind", string(out.Failure.Kind)).Err(out.Failure).Msg("analysis failed")
	return out
}

func (s *Service) run(ctx context.Context, req model.Request) (res model.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Str("symbol", req.Symbol).Msg("analysis panicked")
			res = model.Failed(model.NewFailure(model.FailureDataUnavailable, nil, "internal error: %v", r))
		}
	}()

	req, f := s.resolveWindow(req, s.WindowDays)
	if f != nil {
		return model.Failed(f)
	}

	pair, err := s.Collector.Collect(ctx, req)
	if err != nil {
		return model.Failed(model.AsFailure(err, model.FailureDataUnavailable))
	}

	bundle, err := strategy.Compute(pair.Security, pair.Index, strategy.Meta{
		Symbol:     pair.Symbol,
		Benchmark:  pair.Benchmark,
		Segment:    pair.Segment,
		Period:     pair.Period,
		RecentRows: s.RecentRows,
	})
	if err != nil {
		return model.Failed(model.AsFailure(err, model.FailureAlignment))
	}
	return model.Succeeded(bundle)
}

// resolveWindow fills default dates: end = today, start = end - days.
func (s *Service) resolveWindow(req model.Request, days int) (model.Request, *model.Failure) {
	if req.End.IsZero() {
		req.End = model.DateOf(s.now())
	}
	if req.Start.IsZero() {
		if days <= 0 {
			days = DefaultWindowDays
		}
		req.Start = req.End.AddDays(-days)
	}
	if req.Start.After(req.End.Time) {
		return req, model.NewFailure(model.FailureInvalidRequest, nil,
			"start %s is after end %s", req.Start, req.End)
	}
	return req, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

// Indicators fetches the security alone and derives the dashboard technicals.
// The default window is longer so that MA60 can fill.
func (s *Service) Indicators(ctx context.Context, req model.Request) (model.PriceIndicators, *model.Failure) {
	req, f := s.resolveWindow(req, IndicatorWindowDays)
	if f != nil {
		return model.PriceIndicators{}, f
	}
	series, err := s.Collector.FetchSecurity(ctx, req)
	if err != nil {
		return model.PriceIndicators{}, model.AsFailure(err, model.FailureDataUnavailable)
	}
	return calculator.ComputeIndicators(series), nil
}
