// Package fakestock generates deterministic synthetic price history and
// news, serves it over HTTP in the {data, news} wire shape, and caches
// generated series as parquet files.
package fakestock

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"finsim/internal/domain"
)

// Generate produces a daily random-walk series for the symbol covering the
// trailing window of calendar days, weekends skipped. The walk is seeded
// from the symbol name, so the same symbol always yields the same series
// for the same window.
func Generate(symbol string, days int, end time.Time) ([]domain.PriceBar, []domain.NewsArticle) {
	seed := symbolSeed(symbol)
	rng := rand.New(rand.NewSource(int64(seed)))

	end = end.Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	// Starting price in [20, 520), fixed per symbol.
	price := 20 + float64(seed%500)

	var bars []domain.PriceBar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		open := price
		drift := rng.NormFloat64() * 1.5 // percent move for the day
		price = price * (1 + drift/100)
		if price < 1 {
			price = 1
		}

		hi := math.Max(open, price) * (1 + rng.Float64()*0.01)
		lo := math.Min(open, price) * (1 - rng.Float64()*0.01)

		bars = append(bars, domain.PriceBar{
			Timestamp:     d,
			Open:          round2(open),
			High:          round2(hi),
			Low:           round2(lo),
			CurrentPrice:  round2(price),
			Change:        round2(price - open),
			ChangePercent: round2((price - open) / open * 100),
			Volume:        100000 + rng.Int63n(900000),
		})
	}

	return bars, generateNews(symbol, bars)
}

// generateNews fabricates a handful of articles pinned to days spread
// through the series. A separate seed keeps the article stream stable when
// the walk parameters change.
func generateNews(symbol string, bars []domain.PriceBar) []domain.NewsArticle {
	if len(bars) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(int64(symbolSeed(symbol)) + 1))

	headlines := []string{
		"%s posts quarterly results above street estimates",
		"%s announces expansion into new markets",
		"Analysts revise %s price targets after earnings call",
		"%s board approves share buyback program",
		"Supply chain pressures weigh on %s margins",
		"%s unveils new product lineup at annual event",
		"Institutional investors increase stake in %s",
		"%s faces regulatory review in key market",
	}
	bodies := []string{
		"The company reported numbers that surprised most observers, with management striking an optimistic tone on the outlook for the coming quarters.",
		"Industry watchers see the move as part of a broader strategic shift that has been underway for several quarters.",
		"Trading volumes picked up noticeably following the announcement, with the stock seeing above-average activity through the session.",
		"Executives declined to give specific guidance but pointed to steady demand trends across the company's main segments.",
	}

	n := 4 + rng.Intn(4)
	articles := make([]domain.NewsArticle, 0, n)
	for i := 0; i < n; i++ {
		bar := bars[rng.Intn(len(bars))]
		articles = append(articles, domain.NewsArticle{
			Headline: fmt.Sprintf(headlines[rng.Intn(len(headlines))], symbol),
			Date:     bar.Timestamp.Format("Jan 2, 2006"),
			Article:  bodies[rng.Intn(len(bodies))],
		})
	}
	return articles
}

func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
