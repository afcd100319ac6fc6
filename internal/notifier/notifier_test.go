package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrengthSentinel/internal/model"
)

func f64(v float64) *float64 { return &v }

func bundle() *model.Bundle {
	return &model.Bundle{
		Symbol:     "600519",
		Benchmark:  model.Benchmark{ID: "000001", Name: "上证指数"},
		Segment:    model.SegmentDomestic,
		Period:     model.Period{Start: model.NewDate(2024, 1, 1), End: model.NewDate(2024, 3, 1)},
		DataPoints: 40,
		Latest: model.Latest{
			Date:       model.NewDate(2024, 3, 1),
			Price:      1705.5,
			IndexValue: 3015.175,
			Ratio:      0.565638,
			Normalized: 112.345,
			MA5:        f64(110.125),
			MA10:       f64(108),
		},
		Momentum: model.Momentum{Change1D: f64(0.5), Change5D: f64(-1.255)},
		Analysis: model.AnalysisResult{
			StrengthLevel:       model.StrengthStronger,
			StrengthScore:       61.725,
			Trend:               model.TrendStrongUp,
			TrendScore:          85,
			Volatility:          model.VolatilityMedium,
			VolatilityValue:     3.14159,
			Recommendation:      model.RecommendCautiouslyFavorable,
			RecommendationScore: 70,
		},
		Recent: []model.RecentRow{{Date: model.NewDate(2024, 3, 1), SecurityClose: 1705.5, BenchmarkClose: 3015.175, Normalized: 112.345}},
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "600519 相对于 上证指数(000001) 目前强于大盘，走势强势上升，个股相对表现良好，可适度关注", Summary(bundle()))
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(bundle())
	for _, want := range []string{
		"股票代码: 600519",
		"市场类型: A股",
		"分析期间: 2024-01-01 至 2024-03-01",
		"数据点数: 40",
		"指数数值: 3015.18",
		"标准化强弱值: 112.35",
		"20日均线: N/A",
		"5日变化: -1.26%",
		"20日变化: N/A",
		"强弱水平: 强于大盘 (得分: 61.7)",
		"趋势判断: 强势上升 (得分: 85)",
		"波动特征: 中波动 (标准差: 3.14)",
		"综合得分: 70",
		"标准化强弱值 &gt; 100",
	} {
		assert.Contains(t, out, want)
	}
	plain := PlainText(out)
	assert.NotContains(t, plain, "<b>")
	assert.Contains(t, plain, "标准化强弱值 > 100")
}

func TestFormatFailure(t *testing.T) {
	out := FormatFailure("AAPL", model.NewFailure(model.FailureAlignment, nil, "no overlapping data"))
	assert.Contains(t, out, "数据无法对齐")
	assert.Contains(t, out, "no overlapping data")
}

func TestFormatChange(t *testing.T) {
	prev := model.WatchEntry{Symbol: "600519", Trend: model.TrendSideways, Recommendation: model.RecommendCautiouslyFavorable, Normalized: 101}
	out := FormatChange(prev, bundle())
	assert.Contains(t, out, "横盘整理 → 强势上升")
	assert.NotContains(t, out, "建议:")
	assert.Contains(t, out, "101 → 112.35")
}

func TestFormatIndicators(t *testing.T) {
	out := FormatIndicators(model.PriceIndicators{Symbol: "AAPL", Price: 185.6, RSI: f64(75), Support: 180, Resistance: 190})
	assert.Contains(t, out, "RSI(14): 75 🔴超买")
	assert.Contains(t, out, "MA60: N/A")
	assert.Contains(t, out, "20日支撑: 180")
}

func TestFormatWatchStatus(t *testing.T) {
	state := &model.WatchState{Entries: map[string]model.WatchEntry{
		"600519": {Symbol: "600519", Benchmark: "000001", Normalized: 104.2, Trend: model.TrendMildUp, AsOf: model.NewDate(2024, 3, 1)},
	}, Runs: 3}
	out := FormatWatchStatus(state, []string{"600519", "AAPL"})
	assert.Contains(t, out, "600519 vs 000001: 104.2 | 温和上升 (2024-03-01)")
	assert.Contains(t, out, "AAPL: 暂无数据")
	assert.Contains(t, out, "运行次数: 3")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, parts)

	long := strings.Repeat("强", 5) // 15 bytes
	parts = splitMessage(long, 7)
	assert.Equal(t, long, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 7)
	}
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	require.NoError(t, n.Send("hello"))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramSend_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "42", "")
	n.APIBase = srv.URL
	assert.Error(t, n.Send("hello"))
}

func TestDispatch(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		sent = append(sent, body["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL

	var updates []telegramUpdate
	require.NoError(t, json.Unmarshal([]byte(`[
		{"update_id": 7, "message": {"text": " /rs 600519 ", "chat": {"id": 42}}},
		{"update_id": 8, "message": {"text": "/rs AAPL", "chat": {"id": 99}}},
		{"update_id": 9},
		{"update_id": 10, "message": {"text": "/quiet", "chat": {"id": 42}}}
	]`), &updates))

	var handled []string
	offset := n.dispatch(context.Background(), updates, 0, func(_ context.Context, cmd string) string {
		handled = append(handled, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	})

	assert.Equal(t, 11, offset)
	assert.Equal(t, []string{"/rs 600519", "/quiet"}, handled)
	assert.Equal(t, []string{"reply to /rs 600519"}, sent)
}
