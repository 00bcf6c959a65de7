// Package server exposes the content pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                                                     -> {status, build}
//	POST /v1/parse                      {text}                        -> action result
//	POST /v1/place                      {existing, viewport, request} -> {x, y}
//	POST /v1/materialize                {text, snapshot, hints}       -> {cleaned_message, groups}
//	POST /v1/canvases/{id}/turns        {message}                     -> {cleaned_message, groups}
//	GET  /v1/canvases/{id}/elements                                   -> {elements}
//
// Each canvas ID owns an in-process [canvas.Board] and a session in the
// configured [session.Store]. Turns on one canvas are serialized.
//
// Errors are returned as {"error": {"code", "message"}}. Provider failures
// map to 502 and provider timeouts to 504.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/canvasflow/pkg/action"
	"github.com/matzehuels/canvasflow/pkg/buildinfo"
	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/history"
	"github.com/matzehuels/canvasflow/pkg/pipeline"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/session"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// maxBodyBytes bounds request bodies. Snapshots can be large; messages are
// limited separately by errors.MaxMessageLength.
const maxBodyBytes = 8 << 20

// Options configures a [Server].
type Options struct {
	// Runner handles canvas turns. Nil disables the turns route (503).
	Runner *pipeline.Runner

	// Pipeline handles stateless materialization. Defaults to Runner's.
	Pipeline *pipeline.Pipeline

	// Solver handles /v1/place. Defaults to placement.New().
	Solver *placement.Solver

	// Sessions stores canvas conversations. Defaults to a MemoryStore.
	Sessions session.Store

	// Hints are the defaults merged under per-request hints.
	Hints synth.Hints

	// Viewport is the initial viewport of new canvases.
	Viewport canvas.Viewport

	HistoryLimit int
	SessionTTL   time.Duration

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	logger *log.Logger

	now func() time.Time

	mu       sync.Mutex
	canvases map[string]*canvasState
}

// Boards are dropped once idle for longer than SessionTTL, the same lifetime
// as their conversation.
type canvasState struct {
	mu      sync.Mutex // serializes turns
	board   *canvas.Board
	expires time.Time // guarded by Server.mu
}

// evictInterval is how often ListenAndServe sweeps idle canvases.
const evictInterval = time.Minute

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Pipeline == nil {
		if opts.Runner != nil {
			opts.Pipeline = opts.Runner.Pipeline
		} else {
			opts.Pipeline = pipeline.New(nil, pipeline.Options{Logger: opts.Logger})
		}
	}
	if opts.Solver == nil {
		opts.Solver = placement.New(placement.WithLogger(opts.Logger))
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		canvases: make(map[string]*canvasState),
	}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/place", s.handlePlace)
		r.Post("/materialize", s.handleMaterialize)
		r.Route("/canvases/{id}", func(r chi.Router) {
			r.Post("/turns", s.handleTurn)
			r.Get("/elements", s.handleElements)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweep(sweepCtx, evictInterval)

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(errors.ErrCodeInternal, err, "serve %s", addr)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

type parseRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := errors.ValidateMessage(req.Text); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, action.Parse(req.Text))
}

type placeRequest struct {
	Existing []canvas.Geometry `json:"existing"`
	Viewport canvas.Viewport   `json:"viewport"`
	Request  placement.Request `json:"request"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Request.Strategy != "" {
		if _, err := placement.ParseStrategy(string(req.Request.Strategy)); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := errors.ValidateDimension("width", req.Request.Width); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := errors.ValidateDimension("height", req.Request.Height); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := s.opts.Solver.Solve(req.Existing, req.Viewport, req.Request)
	writeJSON(w, http.StatusOK, p)
}

type materializeRequest struct {
	Text     string          `json:"text"`
	Snapshot canvas.Snapshot `json:"snapshot"`
	Hints    *synth.Hints    `json:"hints,omitempty"`
}

type contentResponse struct {
	CleanedMessage string           `json:"cleaned_message"`
	Groups         []canvas.Group   `json:"groups"`
	Dropped        []action.Dropped `json:"dropped,omitempty"`
}

func newContentResponse(res *pipeline.Result) contentResponse {
	groups := res.Groups
	if groups == nil {
		groups = []canvas.Group{}
	}
	return contentResponse{CleanedMessage: res.CleanedMessage, Groups: groups, Dropped: res.Dropped}
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	var req materializeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := errors.ValidateMessage(req.Text); err != nil {
		s.writeError(w, r, err)
		return
	}
	hints := s.opts.Hints
	if req.Hints != nil {
		hints = mergeHints(hints, *req.Hints)
	}
	res, err := s.opts.Pipeline.Materialize(r.Context(), req.Text, req.Snapshot, hints)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContentResponse(res))
}

type turnRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateCanvasID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.opts.Runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("UNAVAILABLE", "no provider configured"))
		return
	}
	var req turnRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := errors.ValidateMessage(req.Message); err != nil {
		s.writeError(w, r, err)
		return
	}

	cs := s.canvas(id)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	ctx := r.Context()
	sess, err := session.Load(ctx, s.opts.Sessions, id, s.opts.HistoryLimit)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "load session %s", id))
		return
	}
	res, turnErr := s.opts.Runner.TurnOn(ctx, sess, req.Message, cs.board)

	// The user turn is kept even when the provider fails.
	sess.Touch(s.opts.SessionTTL)
	if err := s.opts.Sessions.Set(ctx, sess); err != nil {
		s.logger.Warn("failed to save session", "canvas", id, "error", err)
	}

	if turnErr != nil {
		s.writeError(w, r, turnErr)
		return
	}
	writeJSON(w, http.StatusOK, newContentResponse(res.Result))
}

type elementsResponse struct {
	Elements []canvas.Element `json:"elements"`
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateCanvasID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mu.Lock()
	cs, ok := s.canvases[id]
	if ok && s.now().After(cs.expires) {
		delete(s.canvases, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "canvas %s not found", id))
		return
	}
	elems := cs.board.Members()
	if elems == nil {
		elems = []canvas.Element{}
	}
	writeJSON(w, http.StatusOK, elementsResponse{Elements: elems})
}

// canvas returns the state for id, creating it on first use or after it
// expired, and extends its lifetime.
func (s *Server) canvas(id string) *canvasState {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	cs, ok := s.canvases[id]
	if !ok || now.After(cs.expires) {
		cs = &canvasState{board: canvas.NewBoard(s.opts.Viewport)}
		s.canvases[id] = cs
	}
	cs.expires = now.Add(s.opts.SessionTTL)
	return cs
}

// evictExpired drops canvases idle past their TTL and returns how many were
// removed.
func (s *Server) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, cs := range s.canvases {
		if now.After(cs.expires) {
			delete(s.canvases, id)
			n++
		}
	}
	return n
}

// sweep evicts idle canvases and expired sessions every interval until ctx
// is done.
func (s *Server) sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.evictExpired(); n > 0 {
				s.logger.Debug("evicted idle canvases", "count", n)
			}
			if err := s.opts.Sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

// mergeHints overlays the non-zero fields of req onto base.
func mergeHints(base, req synth.Hints) synth.Hints {
	if req.Strategy != "" {
		base.Strategy = req.Strategy
	}
	if req.Padding != 0 {
		base.Padding = req.Padding
	}
	if req.Anchor != nil {
		base.Anchor = req.Anchor
	}
	if req.Preferred != nil {
		base.Preferred = req.Preferred
	}
	if req.NoteColor != "" {
		base.NoteColor = req.NoteColor
	}
	return base
}

// =============================================================================
// Encoding
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, msg string) map[string]errorPayload {
	return map[string]errorPayload{"error": {Code: code, Message: msg}}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody(code, errors.UserMessage(err)))
}

func statusFor(err error) int {
	code := errors.GetCode(err)
	switch {
	case code == errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case code.Upstream():
		return http.StatusBadGateway
	case code.NotFound():
		return http.StatusNotFound
	case code.Invalid() && code != errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
