package main

import (
	"fmt"
	"os"

	"github.com/phuslu/log"

	"StrengthSentinel/internal/analysis"
	"StrengthSentinel/internal/collector"
	"StrengthSentinel/internal/config"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/recorder"
)

// setupLogging replaces the default logger according to the logging section.
// Logs go to stderr so that --json output on stdout stays clean.
func setupLogging(cfg *config.Config) {
	logger := log.Logger{
		Level:      log.ParseLevel(cfg.Logging.Level),
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if cfg.Logging.Format == "json" {
		logger.TimeFormat = ""
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	} else {
		logger.Writer = &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true, EndWithMessage: true}
	}
	log.DefaultLogger = logger
}

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg      *config.Config
	service  *analysis.Service
	recorder recorder.Recorder
	cache    *collector.Cache
}

func newApp(cfg *config.Config, mock bool) (*app, error) {
	a := &app{cfg: cfg}

	fetcher, cache, err := buildFetcher(cfg, mock)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	log.Info().Str("fetcher", fetcher.Name()).Msg("data source ready")

	a.recorder = openRecorder(cfg.Database.SQLitePath, mock)
	a.service = analysis.NewService(collector.NewCollector(fetcher), a.recorder)
	a.service.WindowDays = cfg.Analysis.WindowDays
	a.service.RecentRows = cfg.Analysis.RecentRows
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("close cache")
		}
	}
}

// buildFetcher assembles the per-segment provider chains:
// domestic eastmoney > yahoo, hongkong yahoo, us alpaca > yahoo.
func buildFetcher(cfg *config.Config, mock bool) (collector.Fetcher, *collector.Cache, error) {
	if mock {
		return &collector.MockFetcher{Price: 100}, nil, nil
	}

	ds := cfg.DataSource
	yahoo := collector.NewYahooFetcher(ds.YahooBaseURL, ds.Proxy, ds.Timeout, ds.YahooRPS)
	eastmoney := collector.NewEastMoneyFetcher(ds.EastMoneyBaseURL, ds.Proxy, ds.Timeout, ds.EastMoneyRPS)

	us := collector.Chain{yahoo}
	if cfg.AlpacaEnabled() {
		us = collector.Chain{collector.NewAlpacaFetcher(ds.AlpacaAPIKey, ds.AlpacaSecretKey), yahoo}
	}

	var fetcher collector.Fetcher = &collector.Router{
		Routes: map[model.Segment]collector.Fetcher{
			model.SegmentDomestic: collector.Chain{eastmoney, yahoo},
			model.SegmentHongKong: yahoo,
			model.SegmentUS:       us,
		},
		Fallback: yahoo,
	}

	if !cfg.Cache.Enabled {
		return fetcher, nil, nil
	}
	cache, err := collector.OpenCache(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return collector.NewCachedFetcher(fetcher, cache, cfg.Cache.TTL), cache, nil
}

func openRecorder(path string, mock bool) recorder.Recorder {
	if path == "" || mock {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}
