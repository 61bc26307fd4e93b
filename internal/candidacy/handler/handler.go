// Package handler exposes the read-only candidacy query surface consumed by
// the case-worker API layer.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/internal/candidacy/service"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
	"dialogmotekandidat/pkg/platform/httputil"
)

const personidentHeader = "Nav-Personident"

type Handler struct {
	reader *service.Reader
	logger *slog.Logger
}

func New(reader *service.Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// Routes mounts the query endpoints. Callers wrap them in auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/kandidat", h.current)
	r.Get("/api/v1/kandidat/historikk", h.history)
}

type currentResponse struct {
	Kandidat bool       `json:"kandidat"`
	Arsak    string     `json:"arsak,omitempty"`
	At       *time.Time `json:"at,omitempty"`
}

type historyEntry struct {
	UUID          string  `json:"uuid"`
	CreatedAt     string  `json:"createdAt"`
	Kandidat      bool    `json:"kandidat"`
	Arsak         string  `json:"arsak"`
	ArsakDetalj   string  `json:"arsakDetalj,omitempty"`
	TilfelleStart *string `json:"tilfelleStart,omitempty"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	personident, err := personidentFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.reader.CurrentState(r.Context(), personident)
	if err != nil {
		h.logger.Error("derive current candidacy failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "derive current candidacy"))
		return
	}

	resp := currentResponse{Kandidat: state.IsCandidate()}
	if state.Latest != nil {
		resp.Arsak = string(state.Latest.Kind)
		at := state.Latest.CreatedAt
		resp.At = &at
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	personident, err := personidentFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.reader.History(r.Context(), personident)
	if err != nil {
		h.logger.Error("list candidacy history failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list candidacy history"))
		return
	}

	entries := make([]historyEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, toHistoryEntry(event))
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func toHistoryEntry(event models.Event) historyEntry {
	entry := historyEntry{
		UUID:        event.ID.String(),
		CreatedAt:   event.CreatedAt.Format(time.RFC3339Nano),
		Kandidat:    event.IsCandidate,
		Arsak:       string(event.Kind),
		ArsakDetalj: event.Detail,
	}
	if event.WindowStart != nil {
		start := event.WindowStart.Format("2006-01-02")
		entry.TilfelleStart = &start
	}
	return entry
}

func personidentFrom(r *http.Request) (domain.Personident, error) {
	raw := r.Header.Get(personidentHeader)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "missing Nav-Personident header")
	}
	return domain.ParsePersonident(raw)
}
