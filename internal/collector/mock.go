package collector

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"StrengthSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without a fixed series get a generated one around Price.
type MockFetcher struct {
	Price  float64
	Series map[string]model.PriceSeries
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) FetchSeries(_ context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[inst.Symbol]++
	m.mu.Unlock()

	if err, ok := m.Errors[inst.Symbol]; ok {
		return model.PriceSeries{}, noData(m.Name(), inst, err)
	}
	if s, ok := m.Series[inst.Symbol]; ok {
		s = s.Between(start, end)
		if s.Empty() {
			return model.PriceSeries{}, noData(m.Name(), inst, nil)
		}
		return s, nil
	}
	if m.Price <= 0 {
		return model.PriceSeries{}, noData(m.Name(), inst, nil)
	}
	s := generateMockSeries(inst.Symbol, m.Price, start, end)
	if s.Empty() {
		return model.PriceSeries{}, noData(m.Name(), inst, nil)
	}
	return s, nil
}

// generateMockSeries builds weekday bars with a per-symbol drift so that
// different symbols diverge from each other deterministically.
func generateMockSeries(symbol string, basePrice float64, start, end model.Date) model.PriceSeries {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	drift := (float64(h.Sum32()%21) - 10) * 0.0004

	var points []model.PricePoint
	i := 0
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + drift*float64(i))
		points = append(points, model.PricePoint{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return model.NewPriceSeries(symbol, points)
}
