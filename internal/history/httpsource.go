package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"finsim/internal/domain"
)

// rawBar is the wire shape of one bar from the history endpoint. Numeric
// fields the endpoint omits decode to zero, which is the deliberate
// defensive default, not an error condition.
type rawBar struct {
	Timestamp     string  `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

type historyResponse struct {
	Data []rawBar             `json:"data"`
	News []domain.NewsArticle `json:"news"`
}

// Compile-time interface check.
var _ Source = (*HTTPSource)(nil)

// HTTPSource loads history from the external fakestockdata-style endpoint:
// GET <endpoint>?stock=SYMBOL&days=N&interval=1d returning {data, news}.
type HTTPSource struct {
	endpoint string
	days     int
	interval string
	client   *http.Client
	log      *slog.Logger
}

// NewHTTPSource creates an HTTPSource for the given endpoint URL.
func NewHTTPSource(endpoint string, days int, interval string, timeout time.Duration, log *slog.Logger) *HTTPSource {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSource{
		endpoint: endpoint,
		days:     days,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		log:      log.With("source", "http"),
	}
}

// Name returns "http".
func (s *HTTPSource) Name() string { return "http" }

// Load issues a single GET to the endpoint and normalizes the response.
// There is no retry; any transport or status failure wraps ErrLoadFailed.
func (s *HTTPSource) Load(ctx context.Context, symbol string) (History, error) {
	q := url.Values{}
	q.Set("stock", symbol)
	q.Set("days", strconv.Itoa(s.days))
	q.Set("interval", s.interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return History{}, fmt.Errorf("%w: building request: %v", ErrLoadFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return History{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return History{}, fmt.Errorf("%w: status %d", ErrLoadFailed, resp.StatusCode)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return History{}, fmt.Errorf("%w: decoding response: %v", ErrLoadFailed, err)
	}

	bars := make([]domain.PriceBar, 0, len(body.Data))
	for _, r := range body.Data {
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			s.log.Warn("skipping bar with bad timestamp", "symbol", symbol, "timestamp", r.Timestamp)
			continue
		}
		bars = append(bars, domain.PriceBar{
			Timestamp:     ts,
			Open:          r.Open,
			High:          r.High,
			Low:           r.Low,
			CurrentPrice:  r.CurrentPrice,
			Change:        r.Change,
			ChangePercent: r.ChangePercent,
			Volume:        r.Volume,
		})
	}

	series, months := Finalize(bars)
	s.log.Info("history loaded", "symbol", symbol, "bars", len(series), "news", len(body.News))

	return History{Symbol: symbol, Bars: series, Months: months, News: body.News}, nil
}

// parseTimestamp accepts the timestamp formats the endpoint has been seen
// to emit: RFC3339, RFC3339 without zone, and a bare date.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
