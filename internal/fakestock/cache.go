package fakestock

import (
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"finsim/internal/domain"
)

// BarRecord is the parquet row shape for one cached synthetic bar.
type BarRecord struct {
	Timestamp     int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open          float64 `parquet:"open"`
	High          float64 `parquet:"high"`
	Low           float64 `parquet:"low"`
	CurrentPrice  float64 `parquet:"current_price"`
	Change        float64 `parquet:"change"`
	ChangePercent float64 `parquet:"change_percent"`
	Volume        int64   `parquet:"volume"`
}

// NewsRecord is the parquet row shape for one cached article.
type NewsRecord struct {
	Headline string `parquet:"headline"`
	Date     string `parquet:"date"`
	Article  string `parquet:"article"`
}

// Cache persists generated series under <dir>/fakestock as parquet files,
// one bar file and one news file per symbol.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. An empty dir disables caching;
// every method becomes a miss or a no-op.
func NewCache(dir string) *Cache {
	if dir != "" {
		dir = filepath.Join(dir, "fakestock")
	}
	return &Cache{dir: dir}
}

func (c *Cache) barPath(symbol string) string {
	return filepath.Join(c.dir, symbol+".parquet")
}

func (c *Cache) newsPath(symbol string) string {
	return filepath.Join(c.dir, symbol+"-news.parquet")
}

// Load returns the cached series for symbol, or ok=false on a miss.
func (c *Cache) Load(symbol string) ([]domain.PriceBar, []domain.NewsArticle, bool) {
	if c.dir == "" {
		return nil, nil, false
	}

	records, err := parquet.ReadFile[BarRecord](c.barPath(symbol))
	if err != nil || len(records) == 0 {
		return nil, nil, false
	}

	bars := make([]domain.PriceBar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.PriceBar{
			Timestamp:     time.UnixMilli(r.Timestamp).UTC(),
			Open:          r.Open,
			High:          r.High,
			Low:           r.Low,
			CurrentPrice:  r.CurrentPrice,
			Change:        r.Change,
			ChangePercent: r.ChangePercent,
			Volume:        r.Volume,
		})
	}

	var news []domain.NewsArticle
	if newsRecords, err := parquet.ReadFile[NewsRecord](c.newsPath(symbol)); err == nil {
		for _, r := range newsRecords {
			news = append(news, domain.NewsArticle{Headline: r.Headline, Date: r.Date, Article: r.Article})
		}
	}

	return bars, news, true
}

// Save writes the series for symbol, replacing any previous files.
func (c *Cache) Save(symbol string, bars []domain.PriceBar, news []domain.NewsArticle) error {
	if c.dir == "" || len(bars) == 0 {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Timestamp:     b.Timestamp.UnixMilli(),
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			CurrentPrice:  b.CurrentPrice,
			Change:        b.Change,
			ChangePercent: b.ChangePercent,
			Volume:        b.Volume,
		})
	}
	if err := parquet.WriteFile(c.barPath(symbol), records); err != nil {
		return err
	}

	if len(news) > 0 {
		newsRecords := make([]NewsRecord, 0, len(news))
		for _, a := range news {
			newsRecords = append(newsRecords, NewsRecord{Headline: a.Headline, Date: a.Date, Article: a.Article})
		}
		if err := parquet.WriteFile(c.newsPath(symbol), newsRecords); err != nil {
			return err
		}
	}
	return nil
}
