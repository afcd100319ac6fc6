package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/timshannon/badgerhold/v4"

	"StrengthSentinel/internal/model"
)

// Cache is a badgerhold store of previously fetched series.
type Cache struct {
	store *badgerhold.Store
	path  string
}

// OpenCache opens (or creates) the cache directory.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open series cache: %w", err)
	}
	log.Debug().Str("path", path).Msg("series cache opened")
	return &Cache{store: store, path: path}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

type cachedBar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type cachedSeries struct {
	Key       string
	Symbol    string
	Bars      []cachedBar
	FetchedAt time.Time
}

func (c *Cache) get(key string) (*cachedSeries, error) {
	var entry cachedSeries
	err := c.store.Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return &entry, nil
}

func (c *Cache) put(key string, series model.PriceSeries, at time.Time) error {
	entry := cachedSeries{Key: key, Symbol: series.Symbol, FetchedAt: at, Bars: make([]cachedBar, len(series.Points))}
	for i, p := range series.Points {
		entry.Bars[i] = cachedBar{Date: p.Date.String(), Open: p.Open, High: p.High, Low: p.Low, Close: p.Close, Volume: p.Volume}
	}
	if err := c.store.Upsert(key, &entry); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

func (e *cachedSeries) series() (model.PriceSeries, error) {
	points := make([]model.PricePoint, len(e.Bars))
	for i, b := range e.Bars {
		d, err := model.ParseDate(b.Date)
		if err != nil {
			return model.PriceSeries{}, err
		}
		points[i] = model.PricePoint{Date: d, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return model.NewPriceSeries(e.Symbol, points), nil
}

// CachedFetcher memoizes another fetcher's results for TTL. Cache failures
// degrade to a live fetch.
type CachedFetcher struct {
	Inner Fetcher
	Cache *Cache
	TTL   time.Duration
	Now   func() time.Time
}

// NewCachedFetcher wraps inner with the given cache.
func NewCachedFetcher(inner Fetcher, cache *Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Inner: inner, Cache: cache, TTL: ttl, Now: time.Now}
}

func (f *CachedFetcher) Name() string { return "cached:" + f.Inner.Name() }

func cacheKey(provider string, inst model.Instrument, start, end model.Date) string {
	return strings.ToLower(strings.Join([]string{
		provider, string(inst.Segment), string(inst.Kind), inst.Symbol, start.String(), end.String(),
	}, "|"))
}

func (f *CachedFetcher) FetchSeries(ctx context.Context, inst model.Instrument, start, end model.Date) (model.PriceSeries, error) {
	key := cacheKey(f.Inner.Name(), inst, start, end)
	now := f.Now()

	if entry, err := f.Cache.get(key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if entry != nil && (f.TTL <= 0 || now.Sub(entry.FetchedAt) < f.TTL) {
		if series, err := entry.series(); err == nil && !series.Empty() {
			log.Debug().Str("key", key).Int("points", series.Len()).Msg("cache hit")
			return series, nil
		}
	}

	series, err := f.Inner.FetchSeries(ctx, inst, start, end)
	if err != nil {
		return series, err
	}
	if err := f.Cache.put(key, series, now); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return series, nil
}
