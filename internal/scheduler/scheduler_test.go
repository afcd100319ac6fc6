package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrengthSentinel/internal/analysis"
	"StrengthSentinel/internal/collector"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/recorder"
	"StrengthSentinel/internal/tracker"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureSender) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type memRecorder struct {
	recorder.NoopRecorder
	mu      sync.Mutex
	changes []*recorder.ChangeRecord
	history []recorder.HistoryRow
}

func (m *memRecorder) RecordChange(rec *recorder.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, rec)
	return nil
}

func (m *memRecorder) History(symbol string, limit int) ([]recorder.HistoryRow, error) {
	return m.history, nil
}

func newTestScheduler(t *testing.T, symbols ...string) (*Scheduler, *captureSender, *memRecorder) {
	t.Helper()
	m := &collector.MockFetcher{
		Price:  100,
		Errors: map[string]error{"AAPL": errors.New("upstream down")},
	}
	rec := &memRecorder{}
	svc := analysis.NewService(collector.NewCollector(m), rec)
	svc.Clock = func() time.Time { return time.Date(2024, time.June, 28, 15, 0, 0, 0, time.UTC) }

	tm, err := tracker.NewManager(filepath.Join(t.TempDir(), "watch.json"))
	require.NoError(t, err)

	sender := &captureSender{}
	return NewScheduler(context.Background(), svc, tm, sender, rec, symbols), sender, rec
}

func otherTrend(t model.Trend) model.Trend {
	if t == model.TrendStrongDown {
		return model.TrendStrongUp
	}
	return model.TrendStrongDown
}

func TestWatchTask(t *testing.T) {
	s, sender, rec := newTestScheduler(t, "600519", "AAPL")

	s.RunWatchNow()
	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "600519")
	assert.Contains(t, msgs[1], "AAPL")
	assert.Contains(t, msgs[1], "❌")

	state := s.Tracker.GetState()
	assert.Equal(t, 1, state.Runs)
	entry, ok := state.Entries["600519"]
	require.True(t, ok)
	assert.Equal(t, "2024-06-28", entry.AsOf.String())
	assert.NotContains(t, state.Entries, "AAPL")
	assert.Empty(t, rec.changes)

	// Rewrite the stored trend so the next pass sees a change.
	s.Tracker.Observe(&model.Bundle{
		Symbol:    "600519",
		Benchmark: model.Benchmark{ID: entry.Benchmark},
		Latest:    model.Latest{Date: entry.AsOf, Normalized: entry.Normalized},
		Analysis:  model.AnalysisResult{Trend: otherTrend(entry.Trend), Recommendation: entry.Recommendation},
	})

	s.NotifyOnChangeOnly = true
	s.RunWatchNow()
	msgs = sender.messages()[2:]
	require.Len(t, msgs, 1, "failures and unchanged reports are suppressed")
	assert.Contains(t, msgs[0], "强弱变化提醒")
	require.Len(t, rec.changes, 1)
	assert.Equal(t, "600519", rec.changes[0].Symbol)
	assert.Equal(t, entry.Trend, rec.changes[0].ToTrend)
	assert.NotEmpty(t, rec.changes[0].RunID)
	assert.Equal(t, 2, s.Tracker.GetState().Runs)
}

func TestWatchTask_PrunesUnwatched(t *testing.T) {
	s, _, _ := newTestScheduler(t, "600519")
	s.Tracker.Observe(&model.Bundle{Symbol: "TSLA", Analysis: model.AnalysisResult{Trend: model.TrendSideways}})

	s.RunWatchNow()
	state := s.Tracker.GetState()
	assert.NotContains(t, state.Entries, "TSLA")
	assert.Contains(t, state.Entries, "600519")
}

func TestWatchTask_NilNotifier(t *testing.T) {
	s, _, _ := newTestScheduler(t, "600519")
	s.Notifier = nil
	assert.NotPanics(t, s.RunWatchNow)
	assert.Equal(t, 1, s.Tracker.GetState().Runs)
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterAll("0 30 15 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron spec"))
}

func TestHandleCommand(t *testing.T) {
	s, _, rec := newTestScheduler(t, "600519")
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, ""), "/rs")
	assert.Contains(t, s.HandleCommand(ctx, "/unknown"), "/history")
	assert.Contains(t, s.HandleCommand(ctx, "/rs"), "用法")

	reply := s.HandleCommand(ctx, "/rs@StrengthBot 600519 hs300")
	assert.Contains(t, reply, "600519")
	assert.Contains(t, reply, "000300")

	reply = s.HandleCommand(ctx, "/rs AAPL")
	assert.Contains(t, reply, "❌")

	reply = s.HandleCommand(ctx, "/ind 600519")
	assert.Contains(t, reply, "MA20")

	assert.Contains(t, s.HandleCommand(ctx, "/watch"), "暂无数据")

	rec.history = []recorder.HistoryRow{{
		RecordedAt: time.Date(2024, 6, 28, 16, 0, 0, 0, time.UTC),
		Symbol:     "600519", Benchmark: "000001", AsOf: "2024-06-28",
		Normalized: 103.5, Trend: model.TrendMildUp,
	}}
	reply = s.HandleCommand(ctx, "/history 600519")
	assert.True(t, strings.Contains(reply, "103.5"), reply)
	assert.Contains(t, reply, "温和上升")
}
