package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/callflow/internal/logging"
	presentation "github.com/aretw0/callflow/internal/presentation/graph"
	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/session"
)

// Server serves the session API.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	graph   func() *graph.Graph
	metrics http.Handler
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGraph sets the source of the graph served by GET /v1/graph.
// It is a function so hot reloads are visible.
func WithGraph(fn func() *graph.Graph) Option {
	return func(s *Server) {
		s.graph = fn
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: mgr,
		Streams:  NewStreamManager(),
		version:  "dev",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/graph", s.GetGraph)
		r.Post("/sessions", s.StartSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetState)
			r.Delete("/", s.DeleteSession)
			r.Post("/invoke", s.Invoke)
			r.Get("/catalog", s.GetCatalog)
			r.Get("/transcript", s.GetTranscript)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartResponse is returned when a session opens.
type StartResponse struct {
	SessionID   string              `json:"session_id"`
	CurrentNode string              `json:"current_node"`
	Messages    []domain.Message    `json:"messages"`
	Catalog     []domain.ActionSpec `json:"catalog"`
}

// InvokeRequest names the action to run and its arguments.
type InvokeRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// InvokeResponse carries the outcome and what the model may call next.
type InvokeResponse struct {
	Outcome     *ports.Outcome      `json:"outcome"`
	CurrentNode string              `json:"current_node"`
	Catalog     []domain.ActionSpec `json:"catalog"`
	Terminated  bool                `json:"terminated"`
}

// ErrorResponse is the body of every non-2xx answer.
// Message is meant to be fed back to the model verbatim.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	Available []string `json:"available,omitempty"`
}

// StartSession handles POST /v1/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	conv, msgs, err := s.Sessions.Start(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusCreated, StartResponse{
		SessionID:   conv.ID,
		CurrentNode: conv.Dispatcher.CurrentNode(),
		Messages:    msgs,
		Catalog:     conv.Dispatcher.Catalog(),
	})
}

// Invoke handles POST /v1/sessions/{id}/invoke.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body InvokeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil || body.Action == "" {
		s.logger.Warn("invoke: invalid request body", "session_id", id, "error", err)
		s.write(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Message: "Provide an action name and its params."})
		return
	}

	conv, err := s.Sessions.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}

	out, err := s.Sessions.Invoke(r.Context(), id, body.Action, body.Params)
	if err != nil {
		s.fail(w, err)
		return
	}

	if out.Diff != nil {
		if data, err := json.Marshal(out.Diff); err == nil {
			s.Streams.Broadcast(id, string(data))
		}
	}

	s.write(w, http.StatusOK, InvokeResponse{
		Outcome:     out,
		CurrentNode: out.To,
		Catalog:     conv.Dispatcher.Catalog(),
		Terminated:  out.Terminated,
	})
}

// GetState handles GET /v1/sessions/{id}.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.Sessions.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusOK, state)
}

// GetCatalog handles GET /v1/sessions/{id}/catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusOK, conv.Dispatcher.Catalog())
}

// GetTranscript handles GET /v1/sessions/{id}/transcript?since=n.
func (s *Server) GetTranscript(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		if since, err = strconv.Atoi(raw); err != nil || since < 0 {
			s.write(w, http.StatusBadRequest, ErrorResponse{Error: "invalid since"})
			return
		}
	}
	s.write(w, http.StatusOK, conv.Transcript.Since(since))
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /v1/graph. ?format=mermaid returns a flowchart instead of JSON.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		s.write(w, http.StatusNotFound, ErrorResponse{Error: "no graph configured"})
		return
	}
	g := s.graph()
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(presentation.GenerateMermaid(g.Nodes(), g.InitialNode(), nil)))
		return
	}
	s.write(w, http.StatusOK, g.Definition())
}

// pinger is implemented by stores backed by a remote server.
type pinger interface {
	Ping(ctx context.Context) error
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Sessions.Store().(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("health: store unreachable", "error", err)
			s.write(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
			return
		}
	}
	s.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]any{
		"app":      "callflow",
		"version":  s.version,
		"sessions": len(s.Sessions.List()),
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var na *domain.ActionNotAvailableError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.write(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &na):
		s.write(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Message: runtime.RejectionMessage(err), Available: na.Available})
	case runtime.IsProtocolError(err):
		s.write(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Message: runtime.RejectionMessage(err)})
	default:
		s.logger.Error("request failed", "error", err)
		s.write(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
