package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrengthSentinel/internal/model"
)

func TestYahooSymbol(t *testing.T) {
	f := NewYahooFetcher("", "", 0, 0)
	tests := []struct {
		inst model.Instrument
		want string
	}{
		{model.Instrument{Symbol: "600519", Kind: model.KindSecurity, Segment: model.SegmentDomestic}, "600519.SS"},
		{model.Instrument{Symbol: "000001", Kind: model.KindSecurity, Segment: model.SegmentDomestic}, "000001.SZ"},
		{model.Instrument{Symbol: "000001", Kind: model.KindIndex, Segment: model.SegmentDomestic}, "000001.SS"},
		{model.Instrument{Symbol: "399001", Kind: model.KindIndex, Segment: model.SegmentDomestic}, "399001.SZ"},
		{model.Instrument{Symbol: "00700.HK", Kind: model.KindSecurity, Segment: model.SegmentHongKong}, "0700.HK"},
		{model.Instrument{Symbol: "5.HK", Kind: model.KindSecurity, Segment: model.SegmentHongKong}, "0005.HK"},
		{model.Instrument{Symbol: "^HSI", Kind: model.KindIndex, Segment: model.SegmentHongKong}, "^HSI"},
		{model.Instrument{Symbol: "AAPL", Kind: model.KindSecurity, Segment: model.SegmentUS}, "AAPL"},
		{model.Instrument{Symbol: "SPX", Kind: model.KindIndex, Segment: model.SegmentUS}, "^GSPC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.yahooSymbol(tt.inst), tt.inst.String())
	}
}

const yahooPayload = `{"chart":{"result":[{"meta":{"symbol":"600519.SS","gmtoffset":28800},
"timestamp":[%d,%d,%d],
"indicators":{"quote":[{"open":[1700.0,null,1712.5],"high":[1710.0,null,1720.0],"low":[1690.0,null,1705.0],
"close":[1705.5,null,1718.0],"volume":[12000,null,15000]}]}}],"error":null}}`

func TestYahooFetcher_FetchSeries(t *testing.T) {
	// 01:30 UTC is 09:30 in Shanghai on the same day; 17:00 UTC is already the next day there
	d1 := time.Date(2024, 1, 2, 1, 30, 0, 0, time.UTC).Unix()
	d2 := time.Date(2024, 1, 3, 1, 30, 0, 0, time.UTC).Unix()
	d3 := time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC).Unix()

	var gotPath, gotPeriod1 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPeriod1 = r.URL.Query().Get("period1")
		fmt.Fprintf(w, yahooPayload, d1, d2, d3)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second, 0)
	inst := model.Instrument{Symbol: "600519", Kind: model.KindSecurity, Segment: model.SegmentDomestic}
	start := model.NewDate(2024, time.January, 1)
	s, err := f.FetchSeries(context.Background(), inst, start, model.NewDate(2024, time.January, 10))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/600519.SS", gotPath)
	assert.Equal(t, fmt.Sprint(start.Unix()), gotPeriod1)
	require.Equal(t, 2, s.Len(), "null bar skipped")
	assert.Equal(t, "600519", s.Symbol)
	assert.Equal(t, "2024-01-02", s.Points[0].Date.String())
	assert.Equal(t, "2024-01-04", s.Points[1].Date.String())
	assert.Equal(t, 1718.0, s.Points[1].Close)
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"http error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"malformed", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			f := NewYahooFetcher(srv.URL, "", time.Second, 0)
			_, err := f.FetchSeries(context.Background(), model.Instrument{Symbol: "AAPL", Segment: model.SegmentUS}, testStart, testEnd)
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

func TestSecID(t *testing.T) {
	tests := []struct {
		inst model.Instrument
		want string
	}{
		{model.Instrument{Symbol: "600519", Kind: model.KindSecurity}, "1.600519"},
		{model.Instrument{Symbol: "000001", Kind: model.KindSecurity}, "0.000001"},
		{model.Instrument{Symbol: "300750", Kind: model.KindSecurity}, "0.300750"},
		{model.Instrument{Symbol: "000001", Kind: model.KindIndex}, "1.000001"},
		{model.Instrument{Symbol: "000300", Kind: model.KindIndex}, "1.000300"},
		{model.Instrument{Symbol: "399001", Kind: model.KindIndex}, "0.399001"},
	}
	for _, tt := range tests {
		got, err := SecID(tt.inst)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.inst.String())
	}
	_, err := SecID(model.Instrument{Symbol: "AAPL"})
	assert.Error(t, err)
}

const klinePayload = `{"rc":0,"data":{"code":"600519","klines":[
"2024-01-02,1700.00,1705.50,1710.00,1690.00,12000",
"2024-01-03,1706.00,1712.00,1715.00,1701.00,13000",
"garbage",
"2024-01-04,1712.00,1718.00,1720.00,1705.00,15000"]}}`

func TestEastMoneyFetcher_FetchSeries(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		assert.Equal(t, "/api/qt/stock/kline/get", r.URL.Path)
		_, _ = w.Write([]byte(klinePayload))
	}))
	defer srv.Close()

	f := NewEastMoneyFetcher(srv.URL, "", time.Second, 0)
	inst := model.Instrument{Symbol: "600519", Kind: model.KindSecurity, Segment: model.SegmentDomestic}
	s, err := f.FetchSeries(context.Background(), inst, model.NewDate(2024, time.January, 1), model.NewDate(2024, time.January, 3))
	require.NoError(t, err)

	assert.Contains(t, query, "secid=1.600519")
	assert.Contains(t, query, "beg=20240101")
	assert.Contains(t, query, "end=20240103")
	require.Equal(t, 2, s.Len(), "rows outside the window and malformed rows dropped")
	assert.Equal(t, 1705.5, s.Points[0].Close)
	assert.Equal(t, 1710.0, s.Points[0].High)
	assert.Equal(t, 13000.0, s.Points[1].Volume)
}

func TestEastMoneyFetcher_RetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(klinePayload))
	}))
	defer srv.Close()

	f := NewEastMoneyFetcher(srv.URL, "", time.Second, 0)
	f.RetryDelay = time.Millisecond
	inst := model.Instrument{Symbol: "000300", Kind: model.KindIndex, Segment: model.SegmentDomestic}
	s, err := f.FetchSeries(context.Background(), inst, model.NewDate(2024, time.January, 1), model.NewDate(2024, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestEastMoneyFetcher_NoRetryOnClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := NewEastMoneyFetcher(srv.URL, "", time.Second, 0)
	f.RetryDelay = time.Millisecond
	_, err := f.FetchSeries(context.Background(), model.Instrument{Symbol: "600519", Segment: model.SegmentDomestic}, testStart, testEnd)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEastMoneyFetcher_NoKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rc":0,"data":null}`))
	}))
	defer srv.Close()

	f := NewEastMoneyFetcher(srv.URL, "", time.Second, 0)
	_, err := f.FetchSeries(context.Background(), model.Instrument{Symbol: "600519", Segment: model.SegmentDomestic}, testStart, testEnd)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestEastMoneyFetcher_RefusesOtherSegments(t *testing.T) {
	f := NewEastMoneyFetcher("http://127.0.0.1:1", "", time.Second, 0)
	_, err := f.FetchSeries(context.Background(), model.Instrument{Symbol: "AAPL", Segment: model.SegmentUS}, testStart, testEnd)
	assert.ErrorIs(t, err, ErrNoData)
}

type fakeBars struct {
	bars []marketdata.Bar
	err  error
	req  marketdata.GetBarsRequest
}

func (f *fakeBars) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, f.err
}

func TestAlpacaFetcher(t *testing.T) {
	// daily bars are stamped at midnight New York time
	fake := &fakeBars{bars: []marketdata.Bar{
		{Timestamp: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), Open: 187, High: 188, Low: 183, Close: 185.6, Volume: 82488700},
		{Timestamp: time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), Open: 184, High: 185, Low: 182, Close: 184.2, Volume: 58414500},
	}}
	f := newAlpacaFetcher(fake)
	inst := model.Instrument{Symbol: "AAPL", Kind: model.KindSecurity, Segment: model.SegmentUS}

	s, err := f.FetchSeries(context.Background(), inst, testStart, testEnd)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "2024-01-02", s.Points[0].Date.String())
	assert.Equal(t, 184.2, s.Points[1].Close)
	assert.Equal(t, marketdata.OneDay, fake.req.TimeFrame)

	_, err = f.FetchSeries(context.Background(), model.Instrument{Symbol: "^GSPC", Kind: model.KindIndex, Segment: model.SegmentUS}, testStart, testEnd)
	assert.ErrorIs(t, err, ErrNoData)

	fake.err = errors.New("forbidden")
	_, err = f.FetchSeries(context.Background(), inst, testStart, testEnd)
	assert.ErrorIs(t, err, ErrNoData)
}
