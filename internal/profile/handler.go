package profile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler exposes the profile store over HTTP.
type Handler struct {
	store *Store
	log   *slog.Logger
}

func NewHandler(store *Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/profiles/{user}", h.handlePut)
	mux.HandleFunc("GET /api/profiles/{user}", h.handleGet)
	mux.HandleFunc("DELETE /api/profiles/{user}", h.handleDelete)
}

type profileRequest struct {
	IncomeAnswer   string `json:"income_answer"`
	SavingAnswer   string `json:"saving_answer"`
	RiskAnswer     string `json:"risk_answer"`
	DurationAnswer string `json:"duration_answer"`
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p := &Profile{
		UserID:         r.PathValue("user"),
		IncomeAnswer:   req.IncomeAnswer,
		SavingAnswer:   req.SavingAnswer,
		RiskAnswer:     req.RiskAnswer,
		DurationAnswer: req.DurationAnswer,
	}
	if err := h.store.Save(r.Context(), p); err != nil {
		h.log.Error("saving profile", "user", p.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving profile")
		return
	}
	writeJSON(w, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), r.PathValue("user"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.log.Error("loading profile", "user", r.PathValue("user"), "error", err)
		writeError(w, http.StatusInternalServerError, "loading profile")
		return
	}
	writeJSON(w, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("user")); err != nil {
		h.log.Error("deleting profile", "user", r.PathValue("user"), "error", err)
		writeError(w, http.StatusInternalServerError, "deleting profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
