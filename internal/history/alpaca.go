package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"finsim/internal/domain"
	"finsim/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource loads real daily bars and news from the Alpaca market-data
// API, so the sandbox can replay actual history instead of synthetic data.
type AlpacaSource struct {
	client  *marketdata.Client
	days    int
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL may be empty to use the SDK default.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, days, rateLimitPerMin int, log *slog.Logger) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &AlpacaSource{
		client:  marketdata.NewClient(opts),
		days:    days,
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     log.With("source", "alpaca"),
	}
}

// Name returns "alpaca".
func (s *AlpacaSource) Name() string { return "alpaca" }

// Load fetches daily bars and news for the trailing window. API calls are
// rate limited and retried; a final failure wraps ErrLoadFailed.
func (s *AlpacaSource) Load(ctx context.Context, symbol string) (History, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -s.days)

	if err := s.limiter.Wait(ctx); err != nil {
		return History{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		alpacaBars, err = s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		return err
	})
	if err != nil {
		return History{}, fmt.Errorf("%w: GetBars %s: %v", ErrLoadFailed, symbol, err)
	}

	bars := make([]domain.PriceBar, 0, len(alpacaBars))
	prevClose := 0.0
	for _, ab := range alpacaBars {
		change := 0.0
		changePct := 0.0
		if prevClose > 0 {
			change = ab.Close - prevClose
			changePct = change / prevClose * 100
		}
		bars = append(bars, domain.PriceBar{
			Timestamp:     ab.Timestamp,
			Open:          ab.Open,
			High:          ab.High,
			Low:           ab.Low,
			CurrentPrice:  ab.Close,
			Change:        change,
			ChangePercent: changePct,
			Volume:        int64(ab.Volume),
		})
		prevClose = ab.Close
	}

	news, err := s.loadNews(ctx, symbol, start, end)
	if err != nil {
		// News is decoration for the sandbox; a bar series without
		// articles is still a usable load.
		s.log.Warn("news fetch failed", "symbol", symbol, "error", err)
		news = nil
	}

	series, months := Finalize(bars)
	s.log.Info("history loaded", "symbol", symbol, "bars", len(series), "news", len(news))

	return History{Symbol: symbol, Bars: series, Months: months, News: news}, nil
}

func (s *AlpacaSource) loadNews(ctx context.Context, symbol string, start, end time.Time) ([]domain.NewsArticle, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	alpacaNews, err := s.client.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              start,
		End:                end,
		TotalLimit:         50,
		ExcludeContentless: true,
		Sort:               marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]domain.NewsArticle, 0, len(alpacaNews))
	for _, a := range alpacaNews {
		body := a.Summary
		if body == "" {
			body = a.Headline
		}
		articles = append(articles, domain.NewsArticle{
			Headline: a.Headline,
			Date:     a.CreatedAt.Format("Jan 2, 2006"),
			Article:  body,
		})
	}
	return articles, nil
}
