// Package history loads, normalizes, and groups daily price series and the
// news articles that accompany them. It is the only network-facing piece of
// the simulation core.
package history

import (
	"context"
	"errors"

	"finsim/internal/domain"
)

// ErrLoadFailed marks a failed history fetch: transport error or non-2xx
// response. It is terminal to the load attempt; callers surface it verbatim
// and do not retry.
var ErrLoadFailed = errors.New("load failed")

// ErrNoData marks a fetch that succeeded but returned zero bars. This is a
// distinct condition from ErrLoadFailed: the series is validly empty.
var ErrNoData = errors.New("no data for symbol")

// History is a fully normalized series for one symbol: bars sorted strictly
// ascending by timestamp, month groups partitioning them, and the article
// list returned by the same fetch.
type History struct {
	Symbol string
	Bars   []domain.PriceBar
	Months []domain.MonthGroup
	News   []domain.NewsArticle
}

// Source loads the history for a symbol. Implementations: the sandbox HTTP
// endpoint, the in-process synthetic generator, and the Alpaca market-data
// API.
type Source interface {
	// Name returns the source identifier (e.g. "http", "synthetic", "alpaca").
	Name() string

	// Load fetches and normalizes the series for symbol. A failed fetch
	// returns an error wrapping ErrLoadFailed; an empty series is returned
	// as a History with zero bars and a nil error.
	Load(ctx context.Context, symbol string) (History, error)
}
