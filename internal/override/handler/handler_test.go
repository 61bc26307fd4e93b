package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	candidacymodels "dialogmotekandidat/internal/candidacy/models"
	candidacyservice "dialogmotekandidat/internal/candidacy/service"
	candidacystore "dialogmotekandidat/internal/candidacy/store"
	"dialogmotekandidat/internal/override/handler"
	"dialogmotekandidat/internal/override/service"
	"dialogmotekandidat/internal/override/store"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
)

const testIdent = "12345678910"

type noopMetrics struct{}

func (noopMetrics) ExceptionCreated()     {}
func (noopMetrics) NotApplicableCreated() {}

type HandlerSuite struct {
	suite.Suite
	events *candidacystore.MemoryStore
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	exceptions := store.NewMemoryExceptions()
	closures := store.NewMemoryClosures()
	s.events = candidacystore.NewMemory()
	outbox := candidacystore.NewMemoryOutbox()
	recorder := candidacyservice.NewRecorder(s.events, outbox)

	svc, err := service.New(exceptions, closures, s.events, recorder,
		database.PassthroughTransactor{}, noopMetrics{}, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)

	h := handler.New(svc, exceptions, slog.New(slog.DiscardHandler))
	s.router = chi.NewRouter()
	h.Routes(s.router)
}

func (s *HandlerSuite) makeCandidate() {
	windowStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.events.Append(s.T().Context(),
		candidacymodels.NewFromCheckpointEvent(domain.Personident(testIdent), time.Now().UTC(), windowStart)))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Nav-Personident", testIdent)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestCreateException() {
	s.makeCandidate()

	rec := s.do(http.MethodPost, "/api/v1/unntak",
		`{"arsak":"MEDISINSKE_GRUNNER","beskrivelse":"innlagt"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var body struct {
		UUID  string `json:"uuid"`
		Arsak string `json:"arsak"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.NotEmpty(body.UUID)
	s.Equal("MEDISINSKE_GRUNNER", body.Arsak)

	rec = s.do(http.MethodGet, "/api/v1/unntak", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var listed []struct {
		Arsak string `json:"arsak"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listed))
	s.Require().Len(listed, 1)
}

func (s *HandlerSuite) TestReservedReasonIsBadRequest() {
	rec := s.do(http.MethodPost, "/api/v1/unntak", `{"arsak":"DIALOGMOTE_GJENNOMFORT"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestNotApplicableConflictsWithoutCandidacy() {
	rec := s.do(http.MethodPost, "/api/v1/ikke-aktuell", `{"arsak":"FRISKMELDT"}`)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestNotApplicableClosesCandidate() {
	s.makeCandidate()
	rec := s.do(http.MethodPost, "/api/v1/ikke-aktuell", `{"arsak":"FRISKMELDT"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	events, err := s.events.ListByPersonident(s.T().Context(), domain.Personident(testIdent))
	s.Require().NoError(err)
	s.False(candidacymodels.CurrentState(events).IsCandidate())
}

func (s *HandlerSuite) TestMalformedBodyIsBadRequest() {
	rec := s.do(http.MethodPost, "/api/v1/unntak", "{")
	s.Equal(http.StatusBadRequest, rec.Code)
}
