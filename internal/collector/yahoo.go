package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"StrengthSentinel/internal/model"
)

// DefaultYahooBaseURL is the public chart endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	Limiter   *rate.Limiter
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. rps <= 0 disables pacing.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration, rps float64) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	f := &YahooFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
	if rps > 0 {
		f.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps an instrument to the ticker Yahoo expects.
func (f *YahooFetcher) yahooSymbol(inst model.Instrument) string {
	symbol := strings.ToUpper(inst.Symbol)
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	switch inst.Segment {
	case model.SegmentDomestic:
		if inst.Kind == model.KindIndex {
			if strings.HasPrefix(symbol, "399") {
				return symbol + ".SZ"
			}
			return symbol + ".SS"
		}
		if isShanghaiSecurity(symbol) {
			return symbol + ".SS"
		}
		return symbol + ".SZ"
	case model.SegmentHongKong:
		if strings.HasPrefix(symbol, "^") {
			return symbol
		}
		// Yahoo lists HK codes with four digits: 00700.HK -> 0700.HK
		code := strings.TrimSuffix(symbol, ".HK")
		for len(code) > 4 && code[0] == '0' {
			code = code[1:]
		}
		if len(code) < 4 {
			code = strings.Repeat("0", 4-len(code)) + code
		}
		return code + ".HK"
	}
	return symbol
}

// isShanghaiSecurity reports whether a domestic security code trades in Shanghai.
func isShanghaiSecurity(code string) bool {
	return code != "" && (code[0] == '6' || code[0] == '5' || code[0] == '9')
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// FetchSeries downloads daily bars between start and end inclusive.
func (f *YahooFetcher) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	ticker := f.yahooSymbol(inst)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(ticker), start.Unix(), end.AddDays(1).Unix())

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return model.PriceSeries{}, noData(f.Name(), inst, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	log.Debug().Str("provider", f.Name()).Str("ticker", ticker).Str("start", start.String()).Str("end", end.String()).Msg("fetching chart")
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("yahoo fetch: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("yahoo read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(body, 200)))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("yahoo decode: %w", err))
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, noData(f.Name(), inst, nil)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if at(quote.Close, i) == 0 {
			continue // null bar (holidays etc.)
		}
		points = append(points, model.PricePoint{
			// exchange local calendar day
			Date:   model.DateOf(time.Unix(ts+result.Meta.GMTOffset, 0).UTC()),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}

	series := trim(inst.Symbol, points, start, end)
	if series.Empty() {
		return model.PriceSeries{}, noData(f.Name(), inst, nil)
	}
	return series, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
