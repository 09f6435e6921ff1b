// Package sim implements the paper-trading simulation: playback over a
// loaded price series, a one-share-per-trade ledger, news rotation, and the
// session lifecycle that ties them together.
package sim

import (
	"log/slog"
	"sync"
	"time"

	"finsim/internal/domain"
	"finsim/internal/history"
)

// Config holds per-session parameters. Zero values are replaced by the
// sandbox defaults in withDefaults.
type Config struct {
	StartCash    float64
	Speed        time.Duration // delay between simulated days
	MinSpeed     time.Duration
	MaxSpeed     time.Duration
	NewsInterval time.Duration
	Runner       IntervalRunner
	Logger       *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.StartCash == 0 {
		c.StartCash = 10000
	}
	if c.MinSpeed == 0 {
		c.MinSpeed = 100 * time.Millisecond
	}
	if c.MaxSpeed == 0 {
		c.MaxSpeed = time.Second
	}
	if c.Speed == 0 {
		c.Speed = 500 * time.Millisecond
	}
	if c.NewsInterval == 0 {
		c.NewsInterval = 10 * time.Second
	}
	if c.Runner == nil {
		c.Runner = TickerRunner{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// State is an immutable snapshot of a session, safe to hand to subscribers
// and HTTP handlers.
type State struct {
	SessionID        string
	Symbol           string
	DayIndex         int
	DayCount         int
	Playing          bool
	Speed            time.Duration
	Cash             float64
	Shares           int
	PortfolioValue   float64
	TotalValue       float64
	CurrentBar       domain.PriceBar
	ArticleIndex     int
	ArticleCount     int
	TransactionCount int
}

// Session is one user's simulation over one symbol's history. All state
// lives under a single mutex; timer callbacks, HTTP handlers, and stream
// subscribers all funnel through it.
type Session struct {
	id  string
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	hist     history.History
	visible  int
	playing  bool
	speed    time.Duration
	ledger   *Ledger
	article  int
	playIv   Interval
	newsIv   Interval
	subs     map[chan State]struct{}
	closed   bool
}

// NewSession creates a session over the given history, which must hold at
// least one bar (the manager enforces that before constructing a session).
func NewSession(id string, h history.History, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		id:   id,
		cfg:  cfg,
		log:  cfg.Logger.With("session", id, "symbol", h.Symbol),
		hist: h,
		subs: make(map[chan State]struct{}),
	}
	s.resetLocked(h)
	return s
}

// resetLocked re-seats the session on a fresh history: playback stopped,
// ledger back to starting cash, article rotation at zero. The chart opens
// showing the first two days when the series allows it.
func (s *Session) resetLocked(h history.History) {
	s.stopLocked()
	s.hist = h
	s.visible = min(1, len(h.Bars)-1)
	s.speed = clampSpeed(s.cfg.Speed, s.cfg)
	s.ledger = NewLedger(s.cfg.StartCash)
	s.article = 0
}

func clampSpeed(d time.Duration, cfg Config) time.Duration {
	if d < cfg.MinSpeed {
		return cfg.MinSpeed
	}
	if d > cfg.MaxSpeed {
		return cfg.MaxSpeed
	}
	return d
}

func (s *Session) ID() string { return s.id }

// Reset re-seats the session on a new history under its existing id:
// playback stops, the ledger returns to starting cash, and the day index
// rewinds. Subscribers stay attached and see the fresh state.
func (s *Session) Reset(h history.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked(h)
	s.log = s.cfg.Logger.With("session", s.id, "symbol", h.Symbol)
	s.log.Info("session reset", "bars", len(h.Bars))
	s.publishLocked()
}

func (s *Session) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Symbol
}

// Play starts automatic day advancement. It is a no-op while already
// playing, after Close, or when the series end has been reached.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.playing || s.visible >= len(s.hist.Bars)-1 {
		return
	}
	s.playing = true
	s.playIv = s.cfg.Runner.Start(s.speed, s.tick)
	if len(s.hist.News) > 0 {
		s.newsIv = s.cfg.Runner.Start(s.cfg.NewsInterval, s.rotateArticle)
	}
	s.log.Debug("playback started", "day", s.visible, "speed", s.speed)
	s.publishLocked()
}

// Pause stops automatic advancement. Both the day timer and the news timer
// are torn down together.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.stopLocked()
	s.publishLocked()
}

// tick advances the visible day by one. Landing on the final bar ends
// playback immediately, so no tick ever fires past the series end.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		// A tick already in flight when Pause or Close won the lock.
		return
	}
	next := s.visible + 1
	if next > len(s.hist.Bars)-1 {
		// Already at the end, usually after a seek while playing. Stopping
		// flips Playing, so subscribers still get a snapshot.
		s.stopLocked()
		s.publishLocked()
		return
	}
	s.visible = next
	if s.visible == len(s.hist.Bars)-1 {
		s.stopLocked()
		s.log.Debug("playback reached series end", "day", s.visible)
	}
	s.publishLocked()
}

// rotateArticle cycles to the next news article while playing.
func (s *Session) rotateArticle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || len(s.hist.News) == 0 {
		return
	}
	s.article = (s.article + 1) % len(s.hist.News)
	s.publishLocked()
}

// stopLocked halts playback and releases both timers. Callers hold s.mu.
func (s *Session) stopLocked() {
	s.playing = false
	if s.playIv != nil {
		s.playIv.Stop()
		s.playIv = nil
	}
	if s.newsIv != nil {
		s.newsIv.Stop()
		s.newsIv = nil
	}
}

// SetSpeed changes the day-advance delay, clamped to the configured range.
// An active playback timer is restarted at the new cadence.
func (s *Session) SetSpeed(d time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampSpeed(d, s.cfg)
	if s.playing && s.playIv != nil {
		s.playIv.Stop()
		s.playIv = s.cfg.Runner.Start(s.speed, s.tick)
	}
	s.publishLocked()
	return s.speed
}

// Seek jumps the visible day to index, clamped into the series. Playback
// state is left alone: a playing session keeps playing after a seek.
func (s *Session) Seek(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekLocked(index)
}

func (s *Session) seekLocked(index int) {
	if index < 0 {
		index = 0
	}
	if last := len(s.hist.Bars) - 1; index > last {
		index = last
	}
	s.visible = index
	s.publishLocked()
}

// Advance steps the visible day forward by one.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekLocked(s.visible + 1)
}

// Retreat steps the visible day back by one.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekLocked(s.visible - 1)
}

// Buy purchases one share at the visible day's price. ok is false when the
// ledger rejects the trade; the session is unchanged in that case.
func (s *Session) Buy() (domain.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Transaction{}, false
	}
	bar := s.hist.Bars[s.visible]
	tx, ok := s.ledger.Buy(s.hist.Symbol, bar.CurrentPrice, s.visible, bar.FormattedDate)
	if ok {
		s.log.Info("trade", "type", tx.Type, "price", tx.Price, "day", tx.DayIndex, "cash", s.ledger.Cash())
		s.publishLocked()
	}
	return tx, ok
}

// Sell disposes of one share at the visible day's price.
func (s *Session) Sell() (domain.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Transaction{}, false
	}
	bar := s.hist.Bars[s.visible]
	tx, ok := s.ledger.Sell(s.hist.Symbol, bar.CurrentPrice, s.visible, bar.FormattedDate)
	if ok {
		s.log.Info("trade", "type", tx.Type, "price", tx.Price, "day", tx.DayIndex, "cash", s.ledger.Cash())
		s.publishLocked()
	}
	return tx, ok
}

// SelectArticle pins the news rotation to the given article index, clamped
// into range. A no-op when the session carries no news.
func (s *Session) SelectArticle(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.hist.News)
	if n == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	s.article = index
	s.publishLocked()
}

// State returns a point-in-time snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	bar := s.hist.Bars[s.visible]
	shares := s.ledger.Holdings(s.hist.Symbol)
	return State{
		SessionID:        s.id,
		Symbol:           s.hist.Symbol,
		DayIndex:         s.visible,
		DayCount:         len(s.hist.Bars),
		Playing:          s.playing,
		Speed:            s.speed,
		Cash:             s.ledger.Cash(),
		Shares:           shares,
		PortfolioValue:   PortfolioValue(shares, bar.CurrentPrice),
		TotalValue:       TotalValue(s.ledger.Cash(), shares, bar.CurrentPrice),
		CurrentBar:       bar,
		ArticleIndex:     s.article,
		ArticleCount:     len(s.hist.News),
		TransactionCount: len(s.ledger.Transactions()),
	}
}

// Series returns a copy of the full price series.
func (s *Session) Series() []domain.PriceBar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PriceBar, len(s.hist.Bars))
	copy(out, s.hist.Bars)
	return out
}

// VisibleSeries returns a copy of the series up to and including the
// visible day, the window the chart renders.
func (s *Session) VisibleSeries() []domain.PriceBar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PriceBar, s.visible+1)
	copy(out, s.hist.Bars[:s.visible+1])
	return out
}

// Months returns the month groups of the series.
func (s *Session) Months() []domain.MonthGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MonthGroup, len(s.hist.Months))
	copy(out, s.hist.Months)
	return out
}

// News returns the session's article list.
func (s *Session) News() []domain.NewsArticle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NewsArticle, len(s.hist.News))
	copy(out, s.hist.News)
	return out
}

// Transactions returns the full transaction log.
func (s *Session) Transactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Transactions()
}

// TransactionsAt returns the transactions taken at exactly dayIndex.
func (s *Session) TransactionsAt(dayIndex int) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TransactionsAt(dayIndex)
}

// TransactionsThrough returns the transactions taken at or before dayIndex.
func (s *Session) TransactionsThrough(dayIndex int) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TransactionsThrough(dayIndex)
}

// Subscribe registers a channel that receives a State snapshot after every
// mutation. Slow subscribers miss intermediate snapshots instead of
// blocking the session.
func (s *Session) Subscribe() chan State {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan State, 8)
	s.subs[ch] = struct{}{}
	ch <- s.stateLocked()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Session) Unsubscribe(ch chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	st := s.stateLocked()
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

// Close ends the session: timers stopped, subscribers closed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.log.Debug("session closed")
}
