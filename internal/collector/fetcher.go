package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StrengthSentinel/internal/model"
)

// ErrNoData is the single outcome for empty results, unreachable providers and
// malformed responses. Every fetch error wraps it.
var ErrNoData = errors.New("no data")

// Fetcher retrieves daily closes for one instrument over [start, end].
type Fetcher interface {
	FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error)
	Name() string
}

// noData wraps a provider specific cause so errors.Is(err, ErrNoData) holds.
func noData(provider string, inst model.Instrument, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s %s: %w", provider, inst.Symbol, ErrNoData)
	}
	return fmt.Errorf("%s %s: %w: %v", provider, inst.Symbol, ErrNoData, cause)
}

const defaultHTTPTimeout = 30 * time.Second

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// trim keeps the points inside [start, end] and drops unusable bars.
func trim(symbol string, points []model.PricePoint, start, end model.Date) model.PriceSeries {
	kept := points[:0]
	for _, p := range points {
		if p.Close == 0 && p.Open == 0 && p.High == 0 && p.Low == 0 {
			continue // null bar (holiday, suspension)
		}
		kept = append(kept, p)
	}
	return model.NewPriceSeries(symbol, kept).Between(start, end)
}
