package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/recorder"
)

var strengthLabels = map[model.StrengthLevel]string{
	model.StrengthStronger: "强于大盘",
	model.StrengthWeaker:   "弱于大盘",
}

var trendLabels = map[model.Trend]string{
	model.TrendStrongUp:   "强势上升",
	model.TrendMildUp:     "温和上升",
	model.TrendSideways:   "横盘整理",
	model.TrendMildDown:   "温和下降",
	model.TrendStrongDown: "明显下降",
}

var volatilityLabels = map[model.Volatility]string{
	model.VolatilityHigh:   "高波动",
	model.VolatilityMedium: "中波动",
	model.VolatilityLow:    "低波动",
}

var recommendationLabels = map[model.Recommendation]string{
	model.RecommendFavorable:           "个股表现优秀，相对强势明显，建议关注",
	model.RecommendCautiouslyFavorable: "个股相对表现良好，可适度关注",
	model.RecommendNeutral:             "个股表现中性，建议观察",
	model.RecommendUnfavorable:         "个股相对表现较弱，建议谨慎",
}

var segmentLabels = map[model.Segment]string{
	model.SegmentDomestic: "A股",
	model.SegmentHongKong: "港股",
	model.SegmentUS:       "美股",
}

var failureLabels = map[model.FailureKind]string{
	model.FailureDataUnavailable: "数据不可用",
	model.FailureAlignment:       "数据无法对齐",
	model.FailureDegenerateRatio: "数据质量异常",
	model.FailureInvalidRequest:  "请求无效",
}

func label[K comparable](m map[K]string, k K) string {
	if s, ok := m[k]; ok {
		return s
	}
	return fmt.Sprint(k)
}

// TrendLabel returns the display name of a trend.
func TrendLabel(t model.Trend) string { return label(trendLabels, t) }

// RecommendationLabel returns the display sentence of a recommendation.
func RecommendationLabel(r model.Recommendation) string { return label(recommendationLabels, r) }

// num rounds half away from zero to two decimals.
func num(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

func optNum(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return num(*v)
}

func optPct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return num(*v) + "%"
}

func benchmarkName(b model.Benchmark) string {
	if b.Name == "" || b.Name == b.ID {
		return b.ID
	}
	return fmt.Sprintf("%s(%s)", b.Name, b.ID)
}

// Summary is the one-line conclusion of a bundle.
func Summary(b *model.Bundle) string {
	return fmt.Sprintf("%s 相对于 %s 目前%s，走势%s，%s",
		b.Symbol, benchmarkName(b.Benchmark),
		label(strengthLabels, b.Analysis.StrengthLevel),
		TrendLabel(b.Analysis.Trend),
		RecommendationLabel(b.Analysis.Recommendation))
}

// FormatReport formats a relative strength bundle as an HTML Telegram message.
func FormatReport(b *model.Bundle) string {
	var sb strings.Builder
	esc := html.EscapeString
	a := b.Analysis

	sb.WriteString("📊 <b>个股强弱分析报告</b>\n\n")

	sb.WriteString("<b>基本信息:</b>\n")
	sb.WriteString(fmt.Sprintf("- 股票代码: %s\n", esc(b.Symbol)))
	sb.WriteString(fmt.Sprintf("- 对比指数: %s\n", esc(benchmarkName(b.Benchmark))))
	sb.WriteString(fmt.Sprintf("- 市场类型: %s\n", label(segmentLabels, b.Segment)))
	sb.WriteString(fmt.Sprintf("- 分析期间: %s 至 %s\n", b.Period.Start, b.Period.End))
	sb.WriteString(fmt.Sprintf("- 数据点数: %d\n\n", b.DataPoints))

	l := b.Latest
	sb.WriteString(fmt.Sprintf("<b>最新数据 (%s):</b>\n", l.Date))
	sb.WriteString(fmt.Sprintf("- 股票价格: %s\n", num(l.Price)))
	sb.WriteString(fmt.Sprintf("- 指数数值: %s\n", num(l.IndexValue)))
	sb.WriteString(fmt.Sprintf("- 相对强弱比率: %s\n", decimal.NewFromFloat(l.Ratio).Round(6).String()))
	sb.WriteString(fmt.Sprintf("- 标准化强弱值: %s\n", num(l.Normalized)))
	sb.WriteString(fmt.Sprintf("- 5日均线: %s\n", optNum(l.MA5)))
	sb.WriteString(fmt.Sprintf("- 10日均线: %s\n", optNum(l.MA10)))
	sb.WriteString(fmt.Sprintf("- 20日均线: %s\n\n", optNum(l.MA20)))

	sb.WriteString("<b>变化率:</b>\n")
	sb.WriteString(fmt.Sprintf("- 1日变化: %s\n", optPct(b.Momentum.Change1D)))
	sb.WriteString(fmt.Sprintf("- 5日变化: %s\n", optPct(b.Momentum.Change5D)))
	sb.WriteString(fmt.Sprintf("- 20日变化: %s\n\n", optPct(b.Momentum.Change20D)))

	sb.WriteString("<b>分析结论:</b>\n")
	sb.WriteString(fmt.Sprintf("- 强弱水平: %s (得分: %s)\n", label(strengthLabels, a.StrengthLevel), decimal.NewFromFloat(a.StrengthScore).Round(1).String()))
	sb.WriteString(fmt.Sprintf("- 趋势判断: %s (得分: %d)\n", TrendLabel(a.Trend), a.TrendScore))
	sb.WriteString(fmt.Sprintf("- 波动特征: %s (标准差: %s)\n", label(volatilityLabels, a.Volatility), num(a.VolatilityValue)))
	sb.WriteString(fmt.Sprintf("- 投资建议: %s (综合得分: %d)\n\n", RecommendationLabel(a.Recommendation), a.RecommendationScore))

	sb.WriteString("<b>总结:</b>\n")
	sb.WriteString(esc(Summary(b)))
	sb.WriteString("\n\n")

	sb.WriteString("<b>指标解读:</b>\n")
	sb.WriteString("- 标准化强弱值 &gt; 100: 表示个股强于指数\n")
	sb.WriteString("- 标准化强弱值 &lt; 100: 表示个股弱于指数\n")
	sb.WriteString("- 标准化强弱值持续上升: 表示个股相对走强\n")
	sb.WriteString("- 标准化强弱值持续下降: 表示个股相对走弱\n")
	return sb.String()
}

// FormatRecent renders the trailing rows as a compact table.
func FormatRecent(b *model.Bundle) string {
	var sb strings.Builder
	sb.WriteString("<b>近期数据:</b>\n<pre>")
	sb.WriteString(fmt.Sprintf("%-10s %10s %10s %8s %8s %8s\n", "日期", "股价", "指数", "强弱值", "MA5", "MA10"))
	for _, r := range b.Recent {
		sb.WriteString(fmt.Sprintf("%-10s %10s %10s %8s %8s %8s\n",
			r.Date, num(r.SecurityClose), num(r.BenchmarkClose), num(r.Normalized), optNum(r.MA5), optNum(r.MA10)))
	}
	sb.WriteString("</pre>")
	return sb.String()
}

// FormatFailure formats a failed analysis.
func FormatFailure(symbol string, f *model.Failure) string {
	return fmt.Sprintf("❌ 个股强弱分析失败 (%s): %s\n%s",
		html.EscapeString(symbol), label(failureLabels, f.Kind), html.EscapeString(f.Message))
}

// FormatIndicators formats the single-series technicals.
func FormatIndicators(ind model.PriceIndicators) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📈 <b>技术指标</b> | %s (%s)\n\n", html.EscapeString(ind.Symbol), ind.Date))
	sb.WriteString(fmt.Sprintf("当前价格: %s\n", num(ind.Price)))
	sb.WriteString(fmt.Sprintf("MA5: %s | MA10: %s | MA20: %s | MA60: %s\n",
		optNum(ind.MA5), optNum(ind.MA10), optNum(ind.MA20), optNum(ind.MA60)))

	rsiSignal := ""
	if ind.RSI != nil {
		switch {
		case *ind.RSI > 70:
			rsiSignal = " 🔴超买"
		case *ind.RSI < 30:
			rsiSignal = " 🟢超卖"
		default:
			rsiSignal = " 🟡中性"
		}
	}
	sb.WriteString(fmt.Sprintf("RSI(14): %s%s | Wilder: %s\n", optNum(ind.RSI), rsiSignal, optNum(ind.RSIWilder)))
	sb.WriteString(fmt.Sprintf("MACD: %s | 信号线: %s | 柱: %s\n", optNum(ind.MACD), optNum(ind.MACDSignal), optNum(ind.MACDHist)))
	sb.WriteString(fmt.Sprintf("布林带: 上 %s | 中 %s | 下 %s\n", optNum(ind.BollUpper), optNum(ind.BollMiddle), optNum(ind.BollLower)))
	sb.WriteString(fmt.Sprintf("KDJ: K %s | D %s | J %s\n", optNum(ind.K), optNum(ind.D), optNum(ind.J)))
	sb.WriteString(fmt.Sprintf("20日支撑: %s | 20日阻力: %s | 区间位置: %s%%\n",
		num(ind.Support), num(ind.Resistance), num(ind.RangePosition*100)))
	return sb.String()
}

// FormatChange announces a trend or recommendation change on a watched symbol.
func FormatChange(prev model.WatchEntry, b *model.Bundle) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 <b>强弱变化提醒</b> | %s\n\n", html.EscapeString(b.Symbol)))
	if prev.Trend != b.Analysis.Trend {
		sb.WriteString(fmt.Sprintf("趋势: %s → %s\n", TrendLabel(prev.Trend), TrendLabel(b.Analysis.Trend)))
	}
	if prev.Recommendation != b.Analysis.Recommendation {
		sb.WriteString(fmt.Sprintf("建议: %s → %s\n", RecommendationLabel(prev.Recommendation), RecommendationLabel(b.Analysis.Recommendation)))
	}
	sb.WriteString(fmt.Sprintf("标准化强弱值: %s → %s\n\n", num(prev.Normalized), num(b.Latest.Normalized)))
	sb.WriteString(html.EscapeString(Summary(b)))
	return sb.String()
}

// FormatWatchStatus lists the last observation of every watched symbol.
func FormatWatchStatus(state *model.WatchState, symbols []string) string {
	var sb strings.Builder
	sb.WriteString("👀 <b>自选监控</b>\n\n")
	for _, s := range symbols {
		e, ok := state.Entries[strings.ToUpper(s)]
		if !ok {
			sb.WriteString(fmt.Sprintf("%s: 暂无数据\n", html.EscapeString(s)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s vs %s: %s | %s (%s)\n",
			html.EscapeString(e.Symbol), html.EscapeString(e.Benchmark), num(e.Normalized), TrendLabel(e.Trend), e.AsOf))
	}
	sb.WriteString(fmt.Sprintf("\n运行次数: %d", state.Runs))
	if !state.LastRunAt.IsZero() {
		sb.WriteString(fmt.Sprintf(" | 上次运行: %s", state.LastRunAt.Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// FormatHistory lists recorded analyses, newest first.
func FormatHistory(symbol string, rows []recorder.HistoryRow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 <b>历史记录</b> | %s\n\n", html.EscapeString(symbol)))
	if len(rows) == 0 {
		sb.WriteString("暂无记录")
		return sb.String()
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s %s vs %s: %s | %s\n",
			r.RecordedAt.Format(time.DateTime), r.AsOf, html.EscapeString(r.Benchmark), num(r.Normalized), TrendLabel(r.Trend)))
	}
	return sb.String()
}

var tagPattern = regexp.MustCompile(`</?(b|pre)>`)

// PlainText converts a formatted message for terminal output.
func PlainText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}
