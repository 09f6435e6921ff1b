package sim

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"finsim/internal/domain"
	"finsim/internal/history"
)

// manualRunner hands out intervals whose ticks are fired by the test, so
// playback can be stepped deterministically.
type manualRunner struct {
	mu        sync.Mutex
	intervals []*manualInterval
}

type manualInterval struct {
	d  time.Duration
	fn func()

	mu      sync.Mutex
	stopped bool
}

func (r *manualRunner) Start(d time.Duration, fn func()) Interval {
	iv := &manualInterval{d: d, fn: fn}
	r.mu.Lock()
	r.intervals = append(r.intervals, iv)
	r.mu.Unlock()
	return iv
}

// active returns the started intervals that have not been stopped, in
// start order.
func (r *manualRunner) active() []*manualInterval {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*manualInterval
	for _, iv := range r.intervals {
		iv.mu.Lock()
		stopped := iv.stopped
		iv.mu.Unlock()
		if !stopped {
			out = append(out, iv)
		}
	}
	return out
}

// activeWith returns the single active interval with the given period.
func (r *manualRunner) activeWith(t *testing.T, d time.Duration) *manualInterval {
	t.Helper()
	var found *manualInterval
	for _, iv := range r.active() {
		if iv.d == d {
			if found != nil {
				t.Fatalf("more than one active interval with period %v", d)
			}
			found = iv
		}
	}
	if found == nil {
		t.Fatalf("no active interval with period %v", d)
	}
	return found
}

func (iv *manualInterval) Stop() {
	iv.mu.Lock()
	iv.stopped = true
	iv.mu.Unlock()
}

// fire invokes the callback the way a ticker would: only while running.
func (iv *manualInterval) fire() {
	iv.mu.Lock()
	stopped := iv.stopped
	iv.mu.Unlock()
	if !stopped {
		iv.fn()
	}
}

func makeHistory(days, articles int) history.History {
	bars := make([]domain.PriceBar, days)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Timestamp:    base.AddDate(0, 0, i),
			CurrentPrice: float64(100 + i),
		}
	}
	series, months := history.Finalize(bars)
	news := make([]domain.NewsArticle, articles)
	for i := range news {
		news[i] = domain.NewsArticle{Headline: fmt.Sprintf("article %d", i)}
	}
	return history.History{Symbol: "INFY", Bars: series, Months: months, News: news}
}

func newTestSession(days, articles int) (*Session, *manualRunner) {
	r := &manualRunner{}
	s := NewSession("test", makeHistory(days, articles), Config{Runner: r})
	return s, r
}

func TestSessionInitialState(t *testing.T) {
	s, _ := newTestSession(5, 2)
	defer s.Close()

	st := s.State()
	if st.DayIndex != 1 {
		t.Errorf("initial DayIndex = %d, want 1", st.DayIndex)
	}
	if st.Playing {
		t.Error("new session is playing")
	}
	if st.Cash != 10000 {
		t.Errorf("Cash = %v, want 10000", st.Cash)
	}
	if st.Speed != 500*time.Millisecond {
		t.Errorf("Speed = %v, want 500ms", st.Speed)
	}
	if st.DayCount != 5 || st.ArticleCount != 2 {
		t.Errorf("DayCount=%d ArticleCount=%d", st.DayCount, st.ArticleCount)
	}
}

func TestSessionSingleBarSeries(t *testing.T) {
	s, r := newTestSession(1, 0)
	defer s.Close()

	if st := s.State(); st.DayIndex != 0 {
		t.Errorf("DayIndex = %d, want 0", st.DayIndex)
	}

	// Already at the series end, so Play is a no-op and no timer starts.
	s.Play()
	if s.State().Playing {
		t.Error("single-bar session started playing")
	}
	if got := len(r.active()); got != 0 {
		t.Errorf("%d intervals running, want 0", got)
	}
}

func TestSessionPlaybackStopsAtSeriesEnd(t *testing.T) {
	s, r := newTestSession(5, 0)
	defer s.Close()

	s.Play()
	if !s.State().Playing {
		t.Fatal("not playing after Play")
	}
	play := r.activeWith(t, 500*time.Millisecond)

	// Index starts at 1; three ticks land on the final index 4.
	for i := 0; i < 3; i++ {
		play.fire()
	}

	st := s.State()
	if st.DayIndex != 4 {
		t.Fatalf("DayIndex = %d, want 4", st.DayIndex)
	}
	if st.Playing {
		t.Error("still playing after landing on the final bar")
	}
	if got := len(r.active()); got != 0 {
		t.Errorf("%d intervals still running after auto-stop", got)
	}

	// A straggler tick must not move past the end.
	play.fire()
	if st := s.State(); st.DayIndex != 4 {
		t.Errorf("DayIndex moved to %d after auto-stop", st.DayIndex)
	}

	// The series end is terminal for playback.
	s.Play()
	if s.State().Playing {
		t.Error("Play restarted at the series end")
	}
}

func TestSessionPlaybackFromIndexZero(t *testing.T) {
	s, r := newTestSession(5, 0)
	defer s.Close()

	s.Seek(0)
	s.Play()
	play := r.activeWith(t, 500*time.Millisecond)

	// Four ticks walk 0 through 4; the fourth lands on the last bar and
	// stops playback, and a fifth never advances anything.
	for i := 0; i < 4; i++ {
		play.fire()
	}
	st := s.State()
	if st.DayIndex != 4 || st.Playing {
		t.Fatalf("after 4 ticks: DayIndex=%d Playing=%v, want 4/false", st.DayIndex, st.Playing)
	}
	play.fire()
	if got := s.State().DayIndex; got != 4 {
		t.Errorf("fifth tick moved DayIndex to %d", got)
	}
}

func TestSessionSeekToEndWhilePlayingPublishesStop(t *testing.T) {
	s, r := newTestSession(5, 0)
	defer s.Close()

	ch := s.Subscribe()
	<-ch // initial snapshot

	s.Play()
	play := r.activeWith(t, 500*time.Millisecond)
	s.Seek(4)

	// Seek left the timer running. Its next tick has nowhere to go and ends
	// playback; subscribers must see that transition.
	play.fire()

	st := s.State()
	if st.Playing || st.DayIndex != 4 {
		t.Fatalf("after tick at series end: DayIndex=%d Playing=%v, want 4/false", st.DayIndex, st.Playing)
	}
	if got := len(r.active()); got != 0 {
		t.Errorf("%d intervals still running", got)
	}

	var last State
drain:
	for {
		select {
		case snap := <-ch:
			last = snap
		default:
			break drain
		}
	}
	if last.Playing {
		t.Error("subscriber never saw Playing go false")
	}
	if last.DayIndex != 4 {
		t.Errorf("final snapshot DayIndex = %d, want 4", last.DayIndex)
	}
}

func TestSessionPauseTearsDownBothTimers(t *testing.T) {
	s, r := newTestSession(10, 3)
	defer s.Close()

	s.Play()
	if got := len(r.active()); got != 2 {
		t.Fatalf("%d intervals after Play, want 2 (day + news)", got)
	}

	s.Pause()
	if s.State().Playing {
		t.Error("still playing after Pause")
	}
	if got := len(r.active()); got != 0 {
		t.Errorf("%d intervals after Pause, want 0", got)
	}

	// Play after Pause starts fresh timers.
	s.Play()
	if got := len(r.active()); got != 2 {
		t.Errorf("%d intervals after resume, want 2", got)
	}
}

func TestSessionSpeedClampAndRestart(t *testing.T) {
	s, r := newTestSession(10, 0)
	defer s.Close()

	if got := s.SetSpeed(50 * time.Millisecond); got != 100*time.Millisecond {
		t.Errorf("SetSpeed(50ms) = %v, want clamp to 100ms", got)
	}
	if got := s.SetSpeed(5 * time.Second); got != time.Second {
		t.Errorf("SetSpeed(5s) = %v, want clamp to 1s", got)
	}
	if got := s.SetSpeed(300 * time.Millisecond); got != 300*time.Millisecond {
		t.Errorf("SetSpeed(300ms) = %v", got)
	}

	// Changing speed mid-playback swaps in a timer at the new cadence.
	s.Play()
	r.activeWith(t, 300*time.Millisecond)
	s.SetSpeed(700 * time.Millisecond)
	play := r.activeWith(t, 700*time.Millisecond)
	if got := len(r.active()); got != 1 {
		t.Errorf("%d intervals active, want only the restarted one", got)
	}

	before := s.State().DayIndex
	play.fire()
	if got := s.State().DayIndex; got != before+1 {
		t.Errorf("restarted timer advanced to %d, want %d", got, before+1)
	}
}

func TestSessionSeekClampsAndKeepsPlaybackState(t *testing.T) {
	s, _ := newTestSession(10, 0)
	defer s.Close()

	s.Seek(7)
	if got := s.State().DayIndex; got != 7 {
		t.Errorf("DayIndex = %d, want 7", got)
	}
	s.Seek(-3)
	if got := s.State().DayIndex; got != 0 {
		t.Errorf("Seek(-3) landed on %d, want 0", got)
	}
	s.Seek(99)
	if got := s.State().DayIndex; got != 9 {
		t.Errorf("Seek(99) landed on %d, want 9", got)
	}

	s.Seek(2)
	s.Play()
	s.Seek(5)
	if !s.State().Playing {
		t.Error("Seek paused an active playback")
	}

	s.Pause()
	s.Advance()
	if got := s.State().DayIndex; got != 6 {
		t.Errorf("Advance landed on %d, want 6", got)
	}
	s.Retreat()
	s.Retreat()
	if got := s.State().DayIndex; got != 4 {
		t.Errorf("Retreat landed on %d, want 4", got)
	}
	if s.State().Playing {
		t.Error("Advance/Retreat started playback")
	}
}

func TestSessionNewsRotation(t *testing.T) {
	s, r := newTestSession(10, 3)
	defer s.Close()

	s.Play()
	news := r.activeWith(t, 10*time.Second)

	news.fire()
	if got := s.State().ArticleIndex; got != 1 {
		t.Errorf("ArticleIndex = %d, want 1", got)
	}
	news.fire()
	news.fire() // wraps around
	if got := s.State().ArticleIndex; got != 0 {
		t.Errorf("ArticleIndex after wrap = %d, want 0", got)
	}

	// Rotation only runs while playing.
	s.Pause()
	news.fire()
	if got := s.State().ArticleIndex; got != 0 {
		t.Errorf("ArticleIndex advanced to %d while paused", got)
	}
}

func TestSessionNoNewsNoRotationTimer(t *testing.T) {
	s, r := newTestSession(10, 0)
	defer s.Close()

	s.Play()
	if got := len(r.active()); got != 1 {
		t.Errorf("%d intervals for a session without news, want 1", got)
	}
}

func TestSessionSelectArticle(t *testing.T) {
	s, _ := newTestSession(10, 4)
	defer s.Close()

	s.SelectArticle(2)
	if got := s.State().ArticleIndex; got != 2 {
		t.Errorf("ArticleIndex = %d, want 2", got)
	}
	s.SelectArticle(99)
	if got := s.State().ArticleIndex; got != 3 {
		t.Errorf("SelectArticle(99) landed on %d, want 3", got)
	}
	s.SelectArticle(-1)
	if got := s.State().ArticleIndex; got != 0 {
		t.Errorf("SelectArticle(-1) landed on %d, want 0", got)
	}
}

func TestSessionTrading(t *testing.T) {
	s, _ := newTestSession(10, 0)
	defer s.Close()

	// Price at index 1 is 101.
	tx, ok := s.Buy()
	if !ok {
		t.Fatal("buy rejected")
	}
	if tx.Price != 101 || tx.DayIndex != 1 {
		t.Errorf("buy tx = %+v", tx)
	}

	st := s.State()
	if st.Cash != 10000-101 {
		t.Errorf("Cash = %v", st.Cash)
	}
	if st.Shares != 1 || st.PortfolioValue != 101 {
		t.Errorf("Shares=%d PortfolioValue=%v", st.Shares, st.PortfolioValue)
	}
	if st.TotalValue != 10000 {
		t.Errorf("TotalValue right after buy = %v, want 10000", st.TotalValue)
	}

	// Advance two days; the position is worth the new day's price.
	s.Seek(3)
	st = s.State()
	if st.PortfolioValue != 103 {
		t.Errorf("PortfolioValue at day 3 = %v, want 103", st.PortfolioValue)
	}
	if st.TotalValue != 10000-101+103 {
		t.Errorf("TotalValue = %v", st.TotalValue)
	}

	tx, ok = s.Sell()
	if !ok {
		t.Fatal("sell rejected")
	}
	if tx.Price != 103 || tx.DayIndex != 3 {
		t.Errorf("sell tx = %+v", tx)
	}
	st = s.State()
	if st.Cash != 10002 || st.Shares != 0 {
		t.Errorf("after round trip: Cash=%v Shares=%d", st.Cash, st.Shares)
	}

	// Nothing left to sell; the rejection leaves everything in place.
	if _, ok := s.Sell(); ok {
		t.Error("sell accepted with no holdings")
	}
	if got := len(s.Transactions()); got != 2 {
		t.Errorf("transaction log has %d entries, want 2", got)
	}
	if got := len(s.TransactionsAt(3)); got != 1 {
		t.Errorf("TransactionsAt(3) = %d entries, want 1", got)
	}
}

func TestSessionSubscribe(t *testing.T) {
	s, _ := newTestSession(10, 0)
	defer s.Close()

	ch := s.Subscribe()

	st := <-ch
	if st.DayIndex != 1 {
		t.Fatalf("initial snapshot DayIndex = %d, want 1", st.DayIndex)
	}

	s.Advance()
	st = <-ch
	if st.DayIndex != 2 {
		t.Errorf("snapshot after Advance has DayIndex %d, want 2", st.DayIndex)
	}

	s.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}
}

func TestSessionCloseStopsTimersAndSubscribers(t *testing.T) {
	s, r := newTestSession(10, 2)

	ch := s.Subscribe()
	<-ch

	s.Play()
	s.Close()

	if got := len(r.active()); got != 0 {
		t.Errorf("%d intervals running after Close", got)
	}
	// Drain any snapshot published before Close, then expect closed.
	for {
		if _, open := <-ch; !open {
			break
		}
	}

	// Close is idempotent and a closed session rejects trades.
	s.Close()
	if _, ok := s.Buy(); ok {
		t.Error("buy accepted on a closed session")
	}
}

func TestSessionVisibleSeries(t *testing.T) {
	s, _ := newTestSession(10, 0)
	defer s.Close()

	s.Seek(4)
	vis := s.VisibleSeries()
	if len(vis) != 5 {
		t.Fatalf("VisibleSeries has %d bars, want 5", len(vis))
	}
	if vis[4].CurrentPrice != 104 {
		t.Errorf("last visible price = %v, want 104", vis[4].CurrentPrice)
	}
	if got := len(s.Series()); got != 10 {
		t.Errorf("Series has %d bars, want 10", got)
	}
}
