package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/phuslu/log"

	"StrengthSentinel/internal/model"
)

// barsClient is the part of the Alpaca market data client used here.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFetcher implements Fetcher for US equities. Alpaca has no index bars.
type AlpacaFetcher struct {
	client barsClient
	loc    *time.Location
}

// NewAlpacaFetcher creates a fetcher backed by the Alpaca market data API.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return newAlpacaFetcher(marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}))
}

func newAlpacaFetcher(client barsClient) *AlpacaFetcher {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &AlpacaFetcher{client: client, loc: loc}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// FetchSeries downloads daily bars between start and end inclusive.
func (f *AlpacaFetcher) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	if inst.Kind == model.KindIndex {
		return model.PriceSeries{}, noData(f.Name(), inst, errors.New("indices not served"))
	}
	if inst.Segment != model.SegmentUS {
		return model.PriceSeries{}, noData(f.Name(), inst, fmt.Errorf("segment %s not served", inst.Segment))
	}
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}

	log.Debug().Str("provider", f.Name()).Str("symbol", inst.Symbol).Str("start", start.String()).Str("end", end.String()).Msg("fetching bars")
	bars, err := f.client.GetBars(inst.Symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start.Time,
		End:       end.AddDays(1).Time,
	})
	if err != nil {
		return model.PriceSeries{}, noData(f.Name(), inst, err)
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, model.PricePoint{
			Date:   model.DateOf(bar.Timestamp.In(f.loc)),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: float64(bar.Volume),
		})
	}
	series := trim(inst.Symbol, points, start, end)
	if series.Empty() {
		return model.PriceSeries{}, noData(f.Name(), inst, nil)
	}
	return series, nil
}
