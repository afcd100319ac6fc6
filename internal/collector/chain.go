package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"StrengthSentinel/internal/model"
)

// Chain tries fetchers in order and returns the first non-empty series.
type Chain []Fetcher

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name()
	}
	return strings.Join(names, ">")
}

func (c Chain) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	if len(c) == 0 {
		return model.PriceSeries{}, noData("chain", inst, errors.New("no providers configured"))
	}
	var errs []error
	for _, f := range c {
		series, err := f.FetchSeries(ctx, inst, start, end)
		if err == nil && !series.Empty() {
			return series, nil
		}
		if err == nil {
			err = noData(f.Name(), inst, nil)
		}
		log.Warn().Str("provider", f.Name()).Str("instrument", inst.String()).Err(err).Msg("provider failed, trying next")
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return model.PriceSeries{}, fmt.Errorf("%w: all providers failed: %w", ErrNoData, errors.Join(errs...))
}

// Router picks a fetcher by the instrument's market segment.
type Router struct {
	Routes   map[model.Segment]Fetcher
	Fallback Fetcher
}

func (r *Router) Name() string { return "router" }

func (r *Router) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	f, ok := r.Routes[inst.Segment]
	if !ok || f == nil {
		f = r.Fallback
	}
	if f == nil {
		return model.PriceSeries{}, noData(r.Name(), inst, fmt.Errorf("no route for segment %s", inst.Segment))
	}
	return f.FetchSeries(ctx, inst, start, end)
}
