package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"StrengthSentinel/internal/model"
)

// DefaultEastMoneyBaseURL serves daily klines for domestic securities and indices.
const DefaultEastMoneyBaseURL = "https://push2his.eastmoney.com"

const (
	eastMoneyMaxRetries    = 3
	eastMoneyRetryDelay    = 500 * time.Millisecond
	eastMoneyRetryDelay429 = 5 * time.Second
	eastMoneyUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	eastMoneyReferer       = "https://quote.eastmoney.com/"
)

// eastMoneyIndexSecIDs maps index codes to their market-qualified secid.
var eastMoneyIndexSecIDs = map[string]string{
	"000001": "1.000001",
	"000016": "1.000016",
	"000300": "1.000300",
	"000688": "1.000688",
	"000905": "1.000905",
}

// errRetryable marks responses worth another attempt.
var errRetryable = errors.New("retryable")

// EastMoneyFetcher implements Fetcher for the domestic segment using the EastMoney kline API.
type EastMoneyFetcher struct {
	BaseURL    string
	Client     *http.Client
	Limiter    *rate.Limiter
	RetryDelay time.Duration
}

// NewEastMoneyFetcher creates a fetcher with optional proxy support. rps <= 0 disables pacing.
func NewEastMoneyFetcher(baseURL, proxyURL string, timeout time.Duration, rps float64) *EastMoneyFetcher {
	if baseURL == "" {
		baseURL = DefaultEastMoneyBaseURL
	}
	f := &EastMoneyFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Client:     newHTTPClient(proxyURL, timeout),
		RetryDelay: eastMoneyRetryDelay,
	}
	if rps > 0 {
		f.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return f
}

func (f *EastMoneyFetcher) Name() string { return "eastmoney" }

// SecID converts an instrument to an EastMoney secid: Shanghai is market 1, Shenzhen market 0.
func SecID(inst model.Instrument) (string, error) {
	code := strings.TrimSpace(inst.Symbol)
	if len(code) != 6 {
		return "", fmt.Errorf("eastmoney: unsupported code %q", code)
	}
	if inst.Kind == model.KindIndex {
		if id, ok := eastMoneyIndexSecIDs[code]; ok {
			return id, nil
		}
		if strings.HasPrefix(code, "399") {
			return "0." + code, nil
		}
		return "1." + code, nil
	}
	if isShanghaiSecurity(code) {
		return "1." + code, nil
	}
	return "0." + code, nil
}

// FetchSeries downloads forward-adjusted daily klines between start and end inclusive.
func (f *EastMoneyFetcher) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	if inst.Segment != model.SegmentDomestic {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("segment %s not served", inst.Segment))
	}
	secid, err := SecID(inst)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}

	u := fmt.Sprintf("%s/api/qt/stock/kline/get?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56&klt=101&fqt=1&beg=%s&end=%s",
		f.BaseURL, secid, start.Format("20060102"), end.Format("20060102"))

	body, err := f.getWithRetry(ctx, u)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}

	points, err := parseKlines(body)
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}
	series := trim(inst.Symbol, points, start, end)
	if series.Empty() {
		return model.PriceSeries{}, noData(f.Name(), inst, nil)
	}
	return series, nil
}

func (f *EastMoneyFetcher) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < eastMoneyMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.RetryDelay
			if lastStatus == http.StatusTooManyRequests {
				backoff = eastMoneyRetryDelay429
			}
			log.Warn().Str("provider", f.Name()).Int("attempt", attempt).Int("status", lastStatus).Dur("backoff", backoff).Msg("retrying kline request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, status, err := f.get(ctx, u)
		if err == nil {
			return body, nil
		}
		lastErr, lastStatus = err, status
		if !errors.Is(err, errRetryable) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", eastMoneyMaxRetries, lastErr)
}

func (f *EastMoneyFetcher) get(ctx context.Context, u string) ([]byte, int, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", eastMoneyUserAgent)
	req.Header.Set("Referer", eastMoneyReferer)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	log.Debug().Str("provider", f.Name()).Str("url", u).Msg("fetching klines")
	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", errRetryable, err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, truncate(body, 200))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			err = fmt.Errorf("%w: %v", errRetryable, err)
		}
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// parseKlines reads data.klines rows of "date,open,close,high,low,volume".
func parseKlines(body []byte) ([]model.PricePoint, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, errors.New("eastmoney: no data.klines")
	}
	arr := klines.Array()
	out := make([]model.PricePoint, 0, len(arr))
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 5 {
			continue
		}
		date, err := model.ParseDate(parts[0])
		if err != nil {
			continue
		}
		closeVal, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		p := model.PricePoint{Date: date, Close: closeVal}
		p.Open, _ = strconv.ParseFloat(parts[1], 64)
		p.High, _ = strconv.ParseFloat(parts[3], 64)
		p.Low, _ = strconv.ParseFloat(parts[4], 64)
		if len(parts) >= 6 {
			p.Volume, _ = strconv.ParseFloat(parts[5], 64)
		}
		out = append(out, p)
	}
	return out, nil
}
