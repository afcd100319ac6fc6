package collector

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/phuslu/log"

	"StrengthSentinel/internal/market"
	"StrengthSentinel/internal/model"
)

// Pair is a security and its benchmark fetched over the same window.
type Pair struct {
	Symbol    string
	Segment   model.Segment
	Benchmark model.Benchmark
	Security  model.PriceSeries
	Index     model.PriceSeries
	Period    model.Period
}

// Collector resolves the benchmark for a request and fetches both series.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

type fetchResult struct {
	series model.PriceSeries
	err    error
}

// Collect fetches the security and its benchmark concurrently. A default
// benchmark without data is replaced by its fallback; an explicit override never is.
func (c *Collector) Collect(ctx context.Context, req model.Request) (*Pair, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, model.NewFailure(model.FailureInvalidRequest, nil, "symbol is required")
	}

	class := market.Classify(symbol)
	bench := class.Benchmark
	overridden := strings.TrimSpace(req.Benchmark) != ""
	if overridden {
		bench = market.LookupBenchmark(req.Benchmark)
	}

	sec := market.SecurityInstrument(symbol, class)
	var wg sync.WaitGroup
	var secRes, benchRes fetchResult
	wg.Add(2)
	go func() {
		defer wg.Done()
		secRes.series, secRes.err = c.Fetcher.FetchSeries(ctx, sec, req.Start, req.End)
	}()
	go func() {
		defer wg.Done()
		benchRes.series, benchRes.err = c.Fetcher.FetchSeries(ctx, market.IndexInstrument(bench), req.Start, req.End)
	}()
	wg.Wait()

	if secRes.err != nil || secRes.series.Empty() {
		return nil, model.NewFailure(model.FailureDataUnavailable, secRes.err, "no price data for %s", symbol)
	}

	if benchRes.err != nil || benchRes.series.Empty() {
		fb, ok := market.Fallback(bench)
		if overridden || !ok {
			return nil, model.NewFailure(model.FailureDataUnavailable, benchRes.err, "no price data for index %s", bench.ID)
		}
		log.Warn().Str("symbol", symbol).Str("benchmark", bench.ID).Str("fallback", fb.ID).Err(benchRes.err).Msg("default benchmark unavailable, using fallback")
		bench = fb
		benchRes.series, benchRes.err = c.Fetcher.FetchSeries(ctx, market.IndexInstrument(bench), req.Start, req.End)
		if benchRes.err != nil || benchRes.series.Empty() {
			return nil, model.NewFailure(model.FailureDataUnavailable, benchRes.err, "no price data for index %s", bench.ID)
		}
	}

	log.Info().Str("symbol", symbol).Str("benchmark", bench.ID).Int("security_points", secRes.series.Len()).Int("index_points", benchRes.series.Len()).Msg("series collected")
	return &Pair{
		Symbol:    symbol,
		Segment:   class.Segment,
		Benchmark: bench,
		Security:  secRes.series,
		Index:     benchRes.series,
		Period:    model.Period{Start: req.Start, End: req.End},
	}, nil
}

// IsNoData reports whether err is a fetch miss rather than a programming error.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// FetchSecurity fetches only the security leg of a request.
func (c *Collector) FetchSecurity(ctx context.Context, req model.Request) (model.PriceSeries, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return model.PriceSeries{}, model.NewFailure(model.FailureInvalidRequest, nil, "symbol is required")
	}
	inst := market.SecurityInstrument(symbol, market.Classify(symbol))
	series, err := c.Fetcher.FetchSeries(ctx, inst, req.Start, req.End)
	if err != nil || series.Empty() {
		return model.PriceSeries{}, model.NewFailure(model.FailureDataUnavailable, err, "no price data for %s", symbol)
	}
	return series, nil
}
