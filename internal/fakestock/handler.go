package fakestock

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"finsim/internal/domain"
)

type wireBar struct {
	Timestamp     string  `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

type wireResponse struct {
	Data []wireBar            `json:"data"`
	News []domain.NewsArticle `json:"news"`
}

// Handler serves GET /fakestockdata?stock=SYM&days=N&interval=1d with the
// {data, news} payload an HTTPSource consumes. It shares the generator and
// cache with the direct Source, so both paths serve identical series.
type Handler struct {
	source *Source
	log    *slog.Logger
}

func NewHandler(source *Source, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{source: source, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /fakestockdata", h.handleData)
}

func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("stock")
	if symbol == "" {
		symbol = "INFY"
	}

	days := h.source.days
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	hist, err := h.source.Load(r.Context(), symbol)
	if err != nil {
		h.log.Error("generating series", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "generating series")
		return
	}

	bars := hist.Bars
	if days < len(bars) {
		bars = bars[len(bars)-days:]
	}

	resp := wireResponse{Data: make([]wireBar, 0, len(bars)), News: hist.News}
	for _, b := range bars {
		resp.Data = append(resp.Data, wireBar{
			Timestamp:     b.Timestamp.Format(time.RFC3339),
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			CurrentPrice:  b.CurrentPrice,
			Change:        b.Change,
			ChangePercent: b.ChangePercent,
			Volume:        b.Volume,
		})
	}
	writeJSON(w, resp)
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
