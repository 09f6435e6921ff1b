// Package simapi exposes simulation sessions over a JSON HTTP API plus a
// WebSocket stream of state snapshots.
package simapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finsim/internal/domain"
	"finsim/internal/history"
	"finsim/internal/sim"
)

// Server serves the session API.
type Server struct {
	manager *sim.Manager
	log     *slog.Logger
}

func NewServer(manager *sim.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{manager: manager, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleOpen)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleState)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleClose)

	mux.HandleFunc("POST /api/sessions/{id}/symbol", s.handleSwitch)
	mux.HandleFunc("POST /api/sessions/{id}/play", s.handlePlay)
	mux.HandleFunc("POST /api/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/sessions/{id}/seek", s.handleSeek)
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/sessions/{id}/retreat", s.handleRetreat)
	mux.HandleFunc("PUT /api/sessions/{id}/speed", s.handleSpeed)
	mux.HandleFunc("PUT /api/sessions/{id}/article", s.handleArticle)
	mux.HandleFunc("POST /api/sessions/{id}/buy", s.handleBuy)
	mux.HandleFunc("POST /api/sessions/{id}/sell", s.handleSell)

	mux.HandleFunc("GET /api/sessions/{id}/series", s.handleSeries)
	mux.HandleFunc("GET /api/sessions/{id}/news", s.handleNews)
	mux.HandleFunc("GET /api/sessions/{id}/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/sessions/{id}/stream", s.handleStream)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session resolves the path id, writing a 404 on a miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sim.Session, bool) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

// writeLoadError maps a history-source failure to a status: an unreachable
// or misbehaving source is a bad gateway, a symbol with no bars is a 404.
func (s *Server) writeLoadError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case errors.Is(err, history.ErrNoData):
		writeError(w, http.StatusNotFound, "no price history for "+symbol)
	case errors.Is(err, history.ErrLoadFailed):
		writeError(w, http.StatusBadGateway, "loading price history failed")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	sess, err := s.manager.Open(r.Context(), symbol)
	if err != nil {
		s.log.Error("opening session", "symbol", symbol, "error", err)
		s.writeLoadError(w, symbol, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(convertState(sess.State()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Close(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	id := r.PathValue("id")
	if _, ok := s.manager.Get(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	sess, err := s.manager.Switch(r.Context(), id, symbol)
	if err != nil {
		s.log.Error("switching symbol", "session", id, "symbol", symbol, "error", err)
		s.writeLoadError(w, symbol, err)
		return
	}
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Play()
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Pause()
	writeJSON(w, convertState(sess.State()))
}

type seekRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess.Seek(req.Index)
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Advance()
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Retreat()
	writeJSON(w, convertState(sess.State()))
}

type speedRequest struct {
	SpeedMs int `json:"speed_ms"`
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SpeedMs <= 0 {
		writeError(w, http.StatusBadRequest, "speed_ms must be a positive integer")
		return
	}
	sess.SetSpeed(time.Duration(req.SpeedMs) * time.Millisecond)
	writeJSON(w, convertState(sess.State()))
}

type articleRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess.SelectArticle(req.Index)
	writeJSON(w, convertState(sess.State()))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	tx, accepted := sess.Buy()
	resp := TradeResponse{Accepted: accepted, State: convertState(sess.State())}
	if accepted {
		j := convertTransaction(tx)
		resp.Transaction = &j
	}
	writeJSON(w, resp)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	tx, accepted := sess.Sell()
	resp := TradeResponse{Accepted: accepted, State: convertState(sess.State())}
	if accepted {
		j := convertTransaction(tx)
		resp.Transaction = &j
	}
	writeJSON(w, resp)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	bars := sess.Series()
	months := sess.Months()

	resp := SeriesResponse{
		Symbol: sess.Symbol(),
		Bars:   make([]BarJSON, 0, len(bars)),
		Months: make([]MonthJSON, 0, len(months)),
	}
	for _, b := range bars {
		resp.Bars = append(resp.Bars, convertBar(b))
	}
	for _, m := range months {
		resp.Months = append(resp.Months, MonthJSON{Key: m.Key, Label: m.Label, Bars: len(m.Bars)})
	}
	writeJSON(w, resp)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	articles := sess.News()
	if articles == nil {
		articles = []domain.NewsArticle{}
	}
	writeJSON(w, NewsResponse{Symbol: sess.Symbol(), Articles: articles})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	// "day" filters to one exact day index, "through" to everything at or
	// before one. Unfiltered returns the full log.
	txs := sess.Transactions()
	if day := r.URL.Query().Get("day"); day != "" {
		n, err := parseDay(day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be a non-negative integer")
			return
		}
		txs = sess.TransactionsAt(n)
	} else if through := r.URL.Query().Get("through"); through != "" {
		n, err := parseDay(through)
		if err != nil {
			writeError(w, http.StatusBadRequest, "through must be a non-negative integer")
			return
		}
		txs = sess.TransactionsThrough(n)
	}

	writeJSON(w, TransactionsResponse{
		SessionID:    sess.ID(),
		Transactions: convertTransactions(txs),
	})
}

func parseDay(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid day")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
