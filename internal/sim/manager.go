package sim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"finsim/internal/history"
)

// Manager owns the live sessions and the history source they load from.
type Manager struct {
	source history.Source
	cfg    Config
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(source history.Source, cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	cfg.Logger = log
	return &Manager{
		source:   source,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Open loads the symbol's history and starts a new session over it. A
// source failure surfaces as history.ErrLoadFailed; a source that answers
// with zero bars surfaces as history.ErrNoData, since a session cannot run
// on an empty series.
func (m *Manager) Open(ctx context.Context, symbol string) (*Session, error) {
	h, err := m.load(ctx, symbol)
	if err != nil {
		return nil, err
	}

	id := randomID()
	s := NewSession(id, h, m.cfg)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("session opened", "session", id, "symbol", symbol, "bars", len(h.Bars))
	return s, nil
}

// Get looks up a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Switch reloads the session onto a different symbol. The session id
// survives; playback, ledger, and day index start over.
func (m *Manager) Switch(ctx context.Context, id, symbol string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}

	h, err := m.load(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.Reset(h)
	return s, nil
}

// Close tears down a session and forgets it. Returns false for unknown ids.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	m.log.Info("session closed", "session", id)
	return true
}

// CloseAll tears down every live session, for server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) load(ctx context.Context, symbol string) (history.History, error) {
	h, err := m.source.Load(ctx, symbol)
	if err != nil {
		return history.History{}, err
	}
	if len(h.Bars) == 0 {
		return history.History{}, fmt.Errorf("%w: %s", history.ErrNoData, symbol)
	}
	return h, nil
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
