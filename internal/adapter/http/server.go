package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/intake"
	"github.com/couchcryptid/case-intake/internal/report"
	"github.com/couchcryptid/case-intake/internal/store"
)

const maxBodyBytes = 1 << 20

// CaseService is the intake API the HTTP front end drives.
type CaseService interface {
	Submit(ctx context.Context, form domain.CaseForm) (domain.Case, error)
	Get(id string) (domain.Case, bool)
	List() []domain.Case
	Report() report.Summary
	Reload(ctx context.Context) error
	CheckReadiness(ctx context.Context) error
}

// Server exposes the case intake routes plus health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	cases      CaseService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with case, report, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, cases CaseService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		cases:  cases,
		logger: logger,
	}

	mux.HandleFunc("GET /cases", s.handleList)
	mux.HandleFunc("POST /cases", s.handleCreate)
	mux.HandleFunc("POST /cases/reload", s.handleReload)
	mux.HandleFunc("GET /cases/{id}", s.handleGet)
	mux.HandleFunc("PUT /cases/{id}", s.handleUpdate)
	mux.HandleFunc("GET /cases/{id}/detail", s.handleDetail)
	mux.HandleFunc("GET /report", s.handleReport)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(cases))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type caseList struct {
	Cases []domain.Case `json:"cases"`
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, caseList{Cases: s.cases.List()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cases.Get(r.PathValue("id"))
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorBody{Error: store.ErrNotFound.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cases.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, store.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	writeText(w, report.Detail(c)+"\n")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := decodeForm(w, r)
	if !ok {
		return
	}
	form.ID = ""
	s.submit(w, r, form, http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	form, ok := decodeForm(w, r)
	if !ok {
		return
	}
	form.ID = r.PathValue("id")
	s.submit(w, r, form, http.StatusOK)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, form domain.CaseForm, status int) {
	c, err := s.cases.Submit(r.Context(), form)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, status, c)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.cases.Reload(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, caseList{Cases: s.cases.List()})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	writeText(w, s.cases.Report().String())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Fields: verr.Fields})
	case errors.Is(err, store.ErrNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		var saveErr *intake.SaveError
		if errors.As(err, &saveErr) {
			s.logger.Error("case accepted but not persisted", "case_id", saveErr.Case.ID, "error", saveErr.Err)
		} else {
			s.logger.Error("request failed", "error", err)
		}
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func decodeForm(w http.ResponseWriter, r *http.Request) (domain.CaseForm, bool) {
	var form domain.CaseForm
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&form); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return domain.CaseForm{}, false
	}
	return form, true
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
