package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"StrengthSentinel/internal/analysis"
	"StrengthSentinel/internal/collector"
	"StrengthSentinel/internal/market"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/notifier"
	"StrengthSentinel/internal/recorder"
	"StrengthSentinel/internal/tracker"
)

// HistoryLimit caps the rows returned by the /history command.
const HistoryLimit = 10

// Sender delivers a formatted message. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the watchlist on a cron spec and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Service  *analysis.Service
	Tracker  *tracker.Manager
	Notifier Sender
	Recorder recorder.Recorder
	Ctx      context.Context

	Symbols            []string
	NotifyOnChangeOnly bool
}

// NewScheduler creates a new Scheduler. A nil sender disables delivery.
func NewScheduler(ctx context.Context, svc *analysis.Service, tm *tracker.Manager, sender Sender, rec recorder.Recorder, symbols []string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Service:  svc,
		Tracker:  tm,
		Notifier: sender,
		Recorder: rec,
		Ctx:      ctx,
		Symbols:  symbols,
	}
}

// RegisterAll registers the watchlist task.
func (s *Scheduler) RegisterAll(watchCron string) error {
	if _, err := s.Cron.AddFunc(watchCron, s.watchTask); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("symbols", len(s.Symbols)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunWatchNow executes the watchlist pass immediately.
func (s *Scheduler) RunWatchNow() {
	s.watchTask()
}

func (s *Scheduler) watchTask() {
	started := time.Now()
	log.Info().Int("symbols", len(s.Symbols)).Msg("running watch task")
	s.pruneState()

	var ok, failed, changes int
	for _, symbol := range s.Symbols {
		if s.Ctx.Err() != nil {
			log.Warn().Msg("watch task cancelled")
			return
		}
		out := s.Service.Analyze(s.Ctx, model.Request{Symbol: symbol}, recorder.SourceWatch)
		if !out.OK() {
			failed++
			evt := log.Error()
			if collector.IsNoData(out.Failure) {
				evt = log.Warn()
			}
			evt.Str("symbol", symbol).Str("kind", string(out.Failure.Kind)).Msg("watch analysis failed")
			if !s.NotifyOnChangeOnly {
				s.trySend(notifier.FormatFailure(symbol, out.Failure))
			}
			continue
		}
		ok++

		prev, changed := s.Tracker.Observe(out.Bundle)
		if changed {
			changes++
			s.recordChange(out.RunID, prev, out.Bundle)
			s.trySend(notifier.FormatChange(prev, out.Bundle))
			continue
		}
		if !s.NotifyOnChangeOnly {
			s.trySend(notifier.FormatReport(out.Bundle))
		}
	}

	s.Tracker.MarkRun()
	log.Info().Int("ok", ok).Int("failed", failed).Int("changes", changes).
		Dur("elapsed", time.Since(started)).Msg("watch task finished")
}

// pruneState forgets symbols that were removed from the watchlist.
func (s *Scheduler) pruneState() {
	watched := make(map[string]bool, len(s.Symbols))
	for _, symbol := range s.Symbols {
		watched[strings.ToUpper(strings.TrimSpace(symbol))] = true
	}
	for symbol := range s.Tracker.GetState().Entries {
		if !watched[symbol] {
			log.Info().Str("symbol", symbol).Msg("dropping unwatched symbol from state")
			s.Tracker.Forget(symbol)
		}
	}
}

func (s *Scheduler) recordChange(runID string, prev model.WatchEntry, b *model.Bundle) {
	log.Info().Str("symbol", b.Symbol).
		Str("from_trend", string(prev.Trend)).Str("to_trend", string(b.Analysis.Trend)).
		Str("from_recommendation", string(prev.Recommendation)).Str("to_recommendation", string(b.Analysis.Recommendation)).
		Msg("watch change detected")
	if err := s.Recorder.RecordChange(&recorder.ChangeRecord{
		RunID:              runID,
		RecordedAt:         time.Now(),
		Symbol:             b.Symbol,
		FromTrend:          prev.Trend,
		ToTrend:            b.Analysis.Trend,
		FromRecommendation: prev.Recommendation,
		ToRecommendation:   b.Analysis.Recommendation,
	}); err != nil {
		log.Error().Err(err).Str("symbol", b.Symbol).Msg("record watch change")
	}
}

const helpText = "可用命令:\n" +
	"• /rs &lt;代码&gt; [基准] 个股相对强弱\n" +
	"• /ind &lt;代码&gt; 技术指标\n" +
	"• /watch 自选监控状态\n" +
	"• /history &lt;代码&gt; 历史记录\n" +
	"• /help 帮助"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/rs@SomeBot" in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/rs", "/strength":
		if len(args) == 0 {
			return "用法: /rs &lt;代码&gt; [基准]"
		}
		req := model.Request{Symbol: args[0]}
		if len(args) > 1 {
			req.Benchmark = market.LookupBenchmark(args[1]).ID
		}
		out := s.Service.Analyze(ctx, req, recorder.SourceTelegram)
		if !out.OK() {
			return notifier.FormatFailure(req.Symbol, out.Failure)
		}
		return notifier.FormatReport(out.Bundle)
	case "/ind", "/indicators":
		if len(args) == 0 {
			return "用法: /ind &lt;代码&gt;"
		}
		ind, f := s.Service.Indicators(ctx, model.Request{Symbol: args[0]})
		if f != nil {
			return notifier.FormatFailure(args[0], f)
		}
		return notifier.FormatIndicators(ind)
	case "/watch":
		state := s.Tracker.GetState()
		return notifier.FormatWatchStatus(&state, s.Symbols)
	case "/history":
		if len(args) == 0 {
			return "用法: /history &lt;代码&gt;"
		}
		rows, err := s.Recorder.History(args[0], HistoryLimit)
		if err != nil {
			log.Error().Err(err).Str("symbol", args[0]).Msg("load history")
			return "❌ 历史记录读取失败"
		}
		return notifier.FormatHistory(strings.ToUpper(args[0]), rows)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Debug().Str("text", notifier.PlainText(text)).Msg("no notifier configured")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
