package simapi

import (
	"finsim/internal/domain"
	"finsim/internal/sim"
)

// StateJSON is the wire form of a session snapshot.
type StateJSON struct {
	SessionID        string  `json:"session_id"`
	Symbol           string  `json:"symbol"`
	DayIndex         int     `json:"day_index"`
	DayCount         int     `json:"day_count"`
	Playing          bool    `json:"playing"`
	SpeedMs          int     `json:"speed_ms"`
	Cash             float64 `json:"cash"`
	Shares           int     `json:"shares"`
	PortfolioValue   float64 `json:"portfolio_value"`
	TotalValue       float64 `json:"total_value"`
	CurrentBar       BarJSON `json:"current_bar"`
	ArticleIndex     int     `json:"article_index"`
	ArticleCount     int     `json:"article_count"`
	TransactionCount int     `json:"transaction_count"`
}

// BarJSON is the wire form of one price bar.
type BarJSON struct {
	Timestamp     string  `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	FormattedDate string  `json:"formatted_date"`
	MonthKey      string  `json:"month_key"`
}

// MonthJSON is the wire form of one month group, bar payloads elided: the
// series endpoint already carries the bars and the groups are keyed into it.
type MonthJSON struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Bars  int    `json:"bars"`
}

// TransactionJSON is the wire form of one ledger entry.
type TransactionJSON struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Shares    int     `json:"shares"`
	Timestamp string  `json:"timestamp"`
	DayIndex  int     `json:"day_index"`
	Date      string  `json:"date"`
}

// TradeResponse reports the outcome of a buy or sell attempt. A rejected
// trade is a normal response, not an error status.
type TradeResponse struct {
	Accepted    bool             `json:"accepted"`
	Transaction *TransactionJSON `json:"transaction,omitempty"`
	State       StateJSON        `json:"state"`
}

// SeriesResponse carries the full loaded series and its month groups.
type SeriesResponse struct {
	Symbol string      `json:"symbol"`
	Bars   []BarJSON   `json:"bars"`
	Months []MonthJSON `json:"months"`
}

// NewsResponse carries the session's article list.
type NewsResponse struct {
	Symbol   string               `json:"symbol"`
	Articles []domain.NewsArticle `json:"articles"`
}

// TransactionsResponse carries a transaction log slice.
type TransactionsResponse struct {
	SessionID    string            `json:"session_id"`
	Transactions []TransactionJSON `json:"transactions"`
}

func convertState(st sim.State) StateJSON {
	return StateJSON{
		SessionID:        st.SessionID,
		Symbol:           st.Symbol,
		DayIndex:         st.DayIndex,
		DayCount:         st.DayCount,
		Playing:          st.Playing,
		SpeedMs:          int(st.Speed.Milliseconds()),
		Cash:             st.Cash,
		Shares:           st.Shares,
		PortfolioValue:   st.PortfolioValue,
		TotalValue:       st.TotalValue,
		CurrentBar:       convertBar(st.CurrentBar),
		ArticleIndex:     st.ArticleIndex,
		ArticleCount:     st.ArticleCount,
		TransactionCount: st.TransactionCount,
	}
}

func convertBar(b domain.PriceBar) BarJSON {
	return BarJSON{
		Timestamp:     b.Timestamp.Format("2006-01-02"),
		Open:          b.Open,
		High:          b.High,
		Low:           b.Low,
		CurrentPrice:  b.CurrentPrice,
		Change:        b.Change,
		ChangePercent: b.ChangePercent,
		Volume:        b.Volume,
		FormattedDate: b.FormattedDate,
		MonthKey:      b.MonthKey,
	}
}

func convertTransaction(tx domain.Transaction) TransactionJSON {
	return TransactionJSON{
		Type:      string(tx.Type),
		Symbol:    tx.Symbol,
		Price:     tx.Price,
		Shares:    tx.Shares,
		Timestamp: tx.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		DayIndex:  tx.DayIndex,
		Date:      tx.Date,
	}
}

func convertTransactions(txs []domain.Transaction) []TransactionJSON {
	out := make([]TransactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, convertTransaction(tx))
	}
	return out
}
