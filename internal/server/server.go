// Package server exposes the session workflow over HTTP: upload a file
// into a session, plan code for an instruction, review it, execute it,
// and read or delete the session table. Plans are never executed by the
// planning endpoint; execution is always a separate, explicit request.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shpitdev/reshape/internal/clean"
	"github.com/shpitdev/reshape/internal/ingest"
	"github.com/shpitdev/reshape/internal/metrics"
	"github.com/shpitdev/reshape/internal/util"
	"github.com/shpitdev/reshape/pkg/sanitize"
	"github.com/shpitdev/reshape/pkg/script/interp"
	"github.com/shpitdev/reshape/pkg/session"
	"github.com/shpitdev/reshape/pkg/synth"
	"github.com/shpitdev/reshape/pkg/table"
)

// uploadOverhead covers multipart framing on top of the file size cap.
const uploadOverhead = 1 << 20

// Options configures a Server. Zero values get working defaults.
type Options struct {
	Store      session.Store
	Controller *synth.Controller
	Validator  *sanitize.Validator
	Metrics    metrics.Backend
	Logger     *log.Logger

	// MaxUploadBytes caps uploaded file size. Defaults to
	// ingest.MaxFileSize.
	MaxUploadBytes int64

	// CleanWorkers sizes the cleaning pool for clean=1 uploads.
	CleanWorkers int
}

// Server handles the session API. All state lives in the store; the
// server itself is safe for concurrent use.
type Server struct {
	store        session.Store
	controller   *synth.Controller
	validator    *sanitize.Validator
	metrics      metrics.Backend
	logger       *log.Logger
	maxUpload    int64
	cleanWorkers int
}

// New wires a Server. Store is required; a nil controller plans from
// the rule synthesizer only.
func New(opts Options) *Server {
	if opts.Validator == nil {
		opts.Validator = sanitize.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Controller == nil {
		opts.Controller = synth.NewController(nil, opts.Validator, opts.Logger)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = ingest.MaxFileSize
	}
	return &Server{
		store:        opts.Store,
		controller:   opts.Controller,
		validator:    opts.Validator,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		maxUpload:    opts.MaxUploadBytes,
		cleanWorkers: opts.CleanWorkers,
	}
}

// Handler returns the route table.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSessionSubtree)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s.handleCreate(w, r)
}

// handleSessionSubtree routes /v1/sessions/{id}[/plan|/execute].
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		s.writeError(w, http.StatusNotFound, errors.New("session id is required"))
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGet(w, r, id)
		case http.MethodDelete:
			s.handleDelete(w, r, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		}
	case len(parts) == 2 && parts[1] == "plan":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		s.handlePlan(w, r, id)
	case len(parts) == 2 && parts[1] == "execute":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		s.handleExecute(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, errors.New("unknown route"))
	}
}

type sessionSummary struct {
	SessionID string       `json:"session_id"`
	RowCount  int          `json:"row_count"`
	Schema    table.Schema `json:"schema"`
	Sample    []table.Row  `json:"sample"`
	Cleaning  *clean.Stats `json:"cleaning,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+uploadOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, s.uploadLimitError())
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("multipart upload with a file part is required: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, s.uploadLimitError())
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > s.maxUpload {
		s.writeError(w, http.StatusRequestEntityTooLarge, s.uploadLimitError())
		return
	}

	parsed, err := ingest.Parse(header.Filename, data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	tbl, err := parsed.Normalize()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	s.metrics.IncCounter(metrics.MetricUploads, 1, metrics.Labels{"format": format})

	var cleaning *clean.Stats
	if wantClean(r.FormValue("clean")) {
		cleaned, stats, err := clean.Apply(r.Context(), tbl, s.cleanWorkers)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		tbl = cleaned
		cleaning = &stats
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:        session.NewID(),
		Source:    header.Filename,
		Table:     tbl,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(r.Context(), sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncCounter(metrics.MetricSessions, 1, metrics.Labels{"op": "created"})
	s.logger.Printf("server: session %s created source=%q rows=%d", sess.ID, header.Filename, tbl.RowCount())

	s.writeJSON(w, http.StatusCreated, sessionSummary{
		SessionID: sess.ID,
		RowCount:  tbl.RowCount(),
		Schema:    tbl.Schema(),
		Sample:    tbl.Head(synth.SampleRows).Records(),
		Cleaning:  cleaning,
	})
}

type sessionState struct {
	RowCount int          `json:"row_count"`
	Schema   table.Schema `json:"schema"`
	Rows     []table.Row  `json:"rows"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionState{
		RowCount: sess.Table.RowCount(),
		Schema:   sess.Table.Schema(),
		Rows:     sess.Table.Records(),
	})
}

type planRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	plan, err := s.controller.Plan(r.Context(), synth.Request{
		Schema:      sess.Table.Schema(),
		Sample:      sess.Table.Head(synth.SampleRows).Records(),
		Instruction: req.Instruction,
	})
	if err != nil {
		var verr *sanitize.ValidationError
		if errors.As(err, &verr) {
			s.metrics.IncCounter(metrics.MetricValidationRejections, 1, metrics.Labels{"origin": "plan"})
		}
		s.writeError(w, statusOf(err), err)
		return
	}
	s.metrics.IncCounter(metrics.MetricPlans, 1, metrics.Labels{"source": string(plan.Source)})
	s.writeJSON(w, http.StatusOK, plan)
}

type executeRequest struct {
	Code string `json:"code"`
}

type executeResponse struct {
	RowCount int          `json:"row_count"`
	Schema   table.Schema `json:"schema"`
	Rows     []table.Row  `json:"rows"`
	Result   *any         `json:"result,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	// Code is re-validated at execution time no matter where it came
	// from; the plan endpoint's acceptance does not transfer.
	code, err := s.validator.Validate(req.Code)
	if err != nil {
		s.metrics.IncCounter(metrics.MetricValidationRejections, 1, metrics.Labels{"origin": "execute"})
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	start := time.Now()
	out, result, err := interp.Execute(sess.Table, code)
	s.metrics.ObserveDuration(metrics.MetricExecuteDuration, time.Since(start).Seconds(), nil)
	if err != nil {
		s.metrics.IncCounter(metrics.MetricExecutions, 1, metrics.Labels{"status": "error"})
		s.writeError(w, statusOf(err), err)
		return
	}
	s.metrics.IncCounter(metrics.MetricExecutions, 1, metrics.Labels{"status": "ok"})

	sess.Table = out
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(r.Context(), sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Printf("server: session %s executed rows=%d", sess.ID, out.RowCount())

	resp := executeResponse{
		RowCount: out.RowCount(),
		Schema:   out.Schema(),
		Rows:     out.Records(),
	}
	if result != nil {
		resp.Result = &result
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.metrics.IncCounter(metrics.MetricSessions, 1, metrics.Labels{"op": "deleted"})
	s.logger.Printf("server: session %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadLimitError() error {
	return fmt.Errorf("upload exceeds the %d MiB limit", s.maxUpload>>20)
}

func wantClean(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// statusOf maps domain errors onto HTTP statuses: missing sessions are
// 404, rejected or failed programs are 422, everything else is 500.
func statusOf(err error) int {
	var verr *sanitize.ValidationError
	var xerr *interp.ExecutionError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &xerr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("server: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: util.RedactSecrets(err.Error())})
}
