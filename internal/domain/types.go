// Package domain defines the shared data types for the finsim platform:
// daily price bars, month groupings, news articles, and ledger transactions.
package domain

import "time"

// TxType identifies the direction of a ledger transaction.
type TxType string

const (
	TxBuy  TxType = "BUY"
	TxSell TxType = "SELL"
)

// PriceBar is one trading day of a symbol's history. Within a loaded series
// timestamps are unique and bars are sorted ascending before use.
type PriceBar struct {
	Timestamp     time.Time
	Open          float64
	High          float64
	Low           float64
	CurrentPrice  float64 // close-equivalent for the day
	Change        float64
	ChangePercent float64
	Volume        int64

	// Display fields derived at load time.
	FormattedDate string // e.g. "Mar 4"
	MonthKey      string // e.g. "2024-3"
}

// MonthGroup is the ordered run of bars sharing one calendar month. Groups
// partition the series; they are derived from it and never mutated on
// their own. Used for month-boundary chart markers.
type MonthGroup struct {
	Key   string
	Label string // e.g. "Mar '24"
	Bars  []PriceBar
}

// NewsArticle is an opaque display payload returned alongside the series.
type NewsArticle struct {
	Headline string `json:"headline"`
	Date     string `json:"date"`
	Article  string `json:"article"`
}

// Transaction records a single one-share trade. Immutable once appended;
// the transaction log is the sole audit trail for valuation and history.
type Transaction struct {
	Type      TxType
	Symbol    string
	Price     float64
	Shares    int
	Timestamp time.Time // wall clock at the moment the trade was taken
	DayIndex  int       // playback index the trade was taken at
	Date      string    // display date of the bar at DayIndex
}
