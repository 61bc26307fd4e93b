// Package handler exposes the override endpoints case workers use to
// suppress or close a candidacy.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dialogmotekandidat/internal/override/models"
	"dialogmotekandidat/internal/override/service"
	"dialogmotekandidat/internal/platform/middleware"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
	"dialogmotekandidat/pkg/platform/httputil"
)

const personidentHeader = "Nav-Personident"

// ExceptionSource lists a person's exception audit rows.
type ExceptionSource interface {
	ListByPersonident(ctx context.Context, personident domain.Personident) ([]models.Exception, error)
}

type Handler struct {
	service    *service.Service
	exceptions ExceptionSource
	logger     *slog.Logger
}

func New(svc *service.Service, exceptions ExceptionSource, logger *slog.Logger) *Handler {
	return &Handler{service: svc, exceptions: exceptions, logger: logger}
}

// Routes mounts the override endpoints. Callers wrap them in auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/v1/unntak", h.createException)
	r.Get("/api/v1/unntak", h.listExceptions)
	r.Post("/api/v1/ikke-aktuell", h.createNotApplicable)
}

type exceptionRequest struct {
	Arsak       string `json:"arsak"`
	Beskrivelse string `json:"beskrivelse"`
}

type exceptionResponse struct {
	UUID        string `json:"uuid"`
	CreatedAt   string `json:"createdAt"`
	CreatedBy   string `json:"createdBy"`
	Arsak       string `json:"arsak"`
	Beskrivelse string `json:"beskrivelse,omitempty"`
}

func (h *Handler) createException(w http.ResponseWriter, r *http.Request) {
	personident, err := personidentFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	exception, err := h.service.CreateException(r.Context(), service.NewException{
		Personident: personident,
		Reason:      models.ExceptionReason(req.Arsak),
		Note:        req.Beskrivelse,
		CreatedBy:   middleware.GetSubject(r.Context()),
	})
	if err != nil {
		h.logger.Error("create exception failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toExceptionResponse(exception))
}

func (h *Handler) listExceptions(w http.ResponseWriter, r *http.Request) {
	personident, err := personidentFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	exceptions, err := h.exceptions.ListByPersonident(r.Context(), personident)
	if err != nil {
		h.logger.Error("list exceptions failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list exceptions"))
		return
	}

	out := make([]exceptionResponse, 0, len(exceptions))
	for _, e := range exceptions {
		out = append(out, toExceptionResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) createNotApplicable(w http.ResponseWriter, r *http.Request) {
	personident, err := personidentFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	closure, err := h.service.CreateNotApplicable(r.Context(), service.NewNotApplicable{
		Personident: personident,
		Reason:      models.NotApplicableReason(req.Arsak),
		Note:        req.Beskrivelse,
		CreatedBy:   middleware.GetSubject(r.Context()),
	})
	if err != nil {
		h.logger.Error("create not-applicable closure failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, exceptionResponse{
		UUID:        closure.ID.String(),
		CreatedAt:   closure.CreatedAt.Format(time.RFC3339Nano),
		CreatedBy:   closure.CreatedBy,
		Arsak:       string(closure.Reason),
		Beskrivelse: closure.Note,
	})
}

func toExceptionResponse(e models.Exception) exceptionResponse {
	return exceptionResponse{
		UUID:        e.ID.String(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
		CreatedBy:   e.CreatedBy,
		Arsak:       string(e.Reason),
		Beskrivelse: e.Note,
	}
}

func personidentFrom(r *http.Request) (domain.Personident, error) {
	raw := r.Header.Get(personidentHeader)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "missing Nav-Personident header")
	}
	return domain.ParsePersonident(raw)
}
