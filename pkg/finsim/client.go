// Package finsim provides a Go SDK for the finsim-server session API.
package finsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a finsim-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// State is a session snapshot as served by the API.
type State struct {
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
	CurrentBar       Bar     `json:"current_bar"`
	ArticleIndex     int     `json:"article_index"`
	ArticleCount     int     `json:"article_count"`
	TransactionCount int     `json:"transaction_count"`
}

// Bar is one day of price history.
type Bar struct {
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

// Month is one month group of the series.
type Month struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Bars  int    `json:"bars"`
}

// Transaction is one ledger entry.
type Transaction struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Shares    int     `json:"shares"`
	Timestamp string  `json:"timestamp"`
	DayIndex  int     `json:"day_index"`
	Date      string  `json:"date"`
}

// TradeResult reports a buy or sell outcome. Accepted is false when the
// server rejected the trade; that is not an error.
type TradeResult struct {
	Accepted    bool         `json:"accepted"`
	Transaction *Transaction `json:"transaction,omitempty"`
	State       State        `json:"state"`
}

// Series is the full loaded price history for a session.
type Series struct {
	Symbol string  `json:"symbol"`
	Bars   []Bar   `json:"bars"`
	Months []Month `json:"months"`
}

// NewsArticle is one article from the session's news feed.
type NewsArticle struct {
	Headline string `json:"headline"`
	Date     string `json:"date"`
	Article  string `json:"article"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finsim: %d %s", e.StatusCode, e.Message)
}

// OpenSession starts a new simulation session over the symbol's history.
func (c *Client) OpenSession(ctx context.Context, symbol string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"symbol": symbol}, &st)
	return st, err
}

// GetState fetches the current session snapshot.
func (c *Client) GetState(ctx context.Context, sessionID string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID, nil, &st)
	return st, err
}

// CloseSession ends the session.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

// SwitchSymbol reloads the session onto a different symbol, resetting
// playback and the ledger.
func (c *Client) SwitchSymbol(ctx context.Context, sessionID, symbol string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/symbol", map[string]string{"symbol": symbol}, &st)
	return st, err
}

// Play starts automatic day advancement.
func (c *Client) Play(ctx context.Context, sessionID string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/play", nil, &st)
	return st, err
}

// Pause stops automatic day advancement.
func (c *Client) Pause(ctx context.Context, sessionID string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/pause", nil, &st)
	return st, err
}

// Seek jumps playback to the given day index.
func (c *Client) Seek(ctx context.Context, sessionID string, index int) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/seek", map[string]int{"index": index}, &st)
	return st, err
}

// Advance steps one day forward.
func (c *Client) Advance(ctx context.Context, sessionID string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/advance", nil, &st)
	return st, err
}

// Retreat steps one day back.
func (c *Client) Retreat(ctx context.Context, sessionID string) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/retreat", nil, &st)
	return st, err
}

// SetSpeed sets the playback delay in milliseconds. The server clamps the
// value; the returned state carries the applied speed.
func (c *Client) SetSpeed(ctx context.Context, sessionID string, speedMs int) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPut, "/api/sessions/"+sessionID+"/speed", map[string]int{"speed_ms": speedMs}, &st)
	return st, err
}

// SelectArticle pins the news display to the given article index.
func (c *Client) SelectArticle(ctx context.Context, sessionID string, index int) (State, error) {
	var st State
	err := c.do(ctx, http.MethodPut, "/api/sessions/"+sessionID+"/article", map[string]int{"index": index}, &st)
	return st, err
}

// Buy purchases one share at the visible day's price.
func (c *Client) Buy(ctx context.Context, sessionID string) (TradeResult, error) {
	var res TradeResult
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/buy", nil, &res)
	return res, err
}

// Sell disposes of one share at the visible day's price.
func (c *Client) Sell(ctx context.Context, sessionID string) (TradeResult, error) {
	var res TradeResult
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/sell", nil, &res)
	return res, err
}

// GetSeries fetches the full price series and month groups.
func (c *Client) GetSeries(ctx context.Context, sessionID string) (Series, error) {
	var s Series
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/series", nil, &s)
	return s, err
}

// GetNews fetches the session's article list.
func (c *Client) GetNews(ctx context.Context, sessionID string) ([]NewsArticle, error) {
	var resp struct {
		Articles []NewsArticle `json:"articles"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/news", nil, &resp)
	return resp.Articles, err
}

// GetTransactions fetches the full transaction log.
func (c *Client) GetTransactions(ctx context.Context, sessionID string) ([]Transaction, error) {
	return c.getTransactions(ctx, "/api/sessions/"+sessionID+"/transactions")
}

// GetTransactionsAt fetches the transactions taken at the given day index.
func (c *Client) GetTransactionsAt(ctx context.Context, sessionID string, dayIndex int) ([]Transaction, error) {
	q := url.Values{"day": {strconv.Itoa(dayIndex)}}
	return c.getTransactions(ctx, "/api/sessions/"+sessionID+"/transactions?"+q.Encode())
}

// GetTransactionsThrough fetches the transactions taken at or before the
// given day index.
func (c *Client) GetTransactionsThrough(ctx context.Context, sessionID string, dayIndex int) ([]Transaction, error) {
	q := url.Values{"through": {strconv.Itoa(dayIndex)}}
	return c.getTransactions(ctx, "/api/sessions/"+sessionID+"/transactions?"+q.Encode())
}

func (c *Client) getTransactions(ctx context.Context, path string) ([]Transaction, error) {
	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Transactions, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
