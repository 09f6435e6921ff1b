package fakestock

import (
	"context"
	"log/slog"
	"time"

	"finsim/internal/history"
)

var _ history.Source = (*Source)(nil)

// Source serves synthetic history directly, without the HTTP round trip.
// Generated series are cached so a symbol replays identically across
// restarts.
type Source struct {
	days  int
	cache *Cache
	log   *slog.Logger
}

// NewSource creates a synthetic Source. dataDir may be empty to skip the
// parquet cache.
func NewSource(days int, dataDir string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		days:  days,
		cache: NewCache(dataDir),
		log:   log.With("source", "synthetic"),
	}
}

// Name returns "synthetic".
func (s *Source) Name() string { return "synthetic" }

// Load returns the cached series for symbol, generating and caching it on a
// miss. A cache write failure only logs; the generated series is still
// served.
func (s *Source) Load(_ context.Context, symbol string) (history.History, error) {
	bars, news, ok := s.cache.Load(symbol)
	if !ok {
		bars, news = Generate(symbol, s.days, time.Now().UTC())
		if err := s.cache.Save(symbol, bars, news); err != nil {
			s.log.Warn("cache write failed", "symbol", symbol, "error", err)
		}
	}

	series, months := history.Finalize(bars)
	s.log.Info("history loaded", "symbol", symbol, "bars", len(series), "cached", ok)

	return history.History{Symbol: symbol, Bars: series, Months: months, News: news}, nil
}
