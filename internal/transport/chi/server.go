package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esmirror/internal/domain"
	healthuc "github.com/kailas-cloud/esmirror/internal/usecase/health"
)

// maxBodyBytes bounds request bodies accepted for document and bulk writes.
const maxBodyBytes = 10 << 20

// ErrorCode is a machine-readable error identifier in API responses.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest    ErrorCode = "bad_request"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeNotInMirror   ErrorCode = "not_in_mirror"
	ErrorCodeInvalidInput  ErrorCode = "invalid_input"
	ErrorCodeUnavailable   ErrorCode = "search_unavailable"
	ErrorCodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DocumentService is the document use case served over HTTP.
type DocumentService interface {
	Put(ctx context.Context, index, typ string, id int, data any) (*domain.Response, error)
	Get(ctx context.Context, index, typ string, id int) (*domain.Response, error)
	SimpleSearch(ctx context.Context, index, typ, query string) (*domain.Response, error)
	PutRecords(ctx context.Context, index, typ string, records []domain.Record) ([]int, error)
}

// MirrorReader exposes the local mirror contents.
type MirrorReader interface {
	Snapshot() map[string]map[string][]int
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the mirror client operations over HTTP.
type Server struct {
	documents     DocumentService
	mirror        MirrorReader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(documents DocumentService, mirror MirrorReader, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		documents: documents,
		mirror:    mirror,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		invalidFileHandler,
		sentinelHandler(domain.ErrInvalidState, http.StatusNotFound, ErrorCodeNotInMirror),
	}
	return s
}

// Routes registers all API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/_mirror", s.GetMirror)

	r.Route("/{index}/{type}", func(r chi.Router) {
		r.Get("/_search", s.SimpleSearch)
		r.Post("/_records", s.PutRecords)
		r.Put("/{id}", s.PutDocument)
		r.Get("/{id}", s.GetDocument)
	})
}

// PutDocument handles PUT /{index}/{type}/{id}.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var data any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.documents.Put(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "type"), id, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, resp)
}

// GetDocument handles GET /{index}/{type}/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	resp, err := s.documents.Get(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "type"), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, resp)
}

// SimpleSearch handles GET /{index}/{type}/_search?q=.
func (s *Server) SimpleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	resp, err := s.documents.SimpleSearch(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "type"), query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, resp)
}

// putRecordsResponse is the reply of a bulk write.
type putRecordsResponse struct {
	IDs []int `json:"ids"`
}

// PutRecords handles POST /{index}/{type}/_records with a JSON array of records.
func (s *Server) PutRecords(w http.ResponseWriter, r *http.Request) {
	var records []domain.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ids, err := s.documents.PutRecords(r.Context(), chi.URLParam(r, "index"), chi.URLParam(r, "type"), records)
	if err != nil {
		s.logger.Warn("bulk write stopped early", zap.Ints("written", ids), zap.Error(err))
		s.handleDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusCreated, putRecordsResponse{IDs: ids})
}

// GetMirror handles GET /_mirror.
func (s *Server) GetMirror(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mirror.Snapshot())
}

// healthResponse is the reply of GET /health.
type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "document id must be an integer, got "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

// writeRaw relays a search service reply unchanged, whatever its status.
func writeRaw(w http.ResponseWriter, resp *domain.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Typed domain errors carry safe, caller-supplied identifiers, so their message is returned.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		var ude *domain.UnknownDocumentError
		var ute *domain.UnknownTypeError
		switch {
		case errors.As(err, &ude):
			msg = ude.Error()
		case errors.As(err, &ute):
			msg = ute.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func invalidFileHandler(w http.ResponseWriter, err error) bool {
	var ife *domain.InvalidFileError
	if !errors.As(err, &ife) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeInvalidInput, ife.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error("search service unreachable", zap.Error(err))
	writeError(w, http.StatusBadGateway, ErrorCodeUnavailable, "search service unavailable")
}
