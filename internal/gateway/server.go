// Package gateway exposes the ops HTTP surface: escalation listing and
// resolution for operators, lead inspection, and a websocket feed of
// notification events.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leadkit/drip/internal/engine"
	"github.com/leadkit/drip/internal/lead"
	"github.com/leadkit/drip/internal/logging"
	"github.com/leadkit/drip/internal/notify"
)

// LeadReader is the read-only lead access the API needs.
type LeadReader interface {
	GetAll(ctx context.Context) ([]*lead.Lead, error)
	Messages(ctx context.Context, id string) ([]*lead.Message, error)
}

// Server is the ops HTTP server. It is safe for concurrent use.
type Server struct {
	addr     string
	engine   *engine.Engine
	leads    LeadReader
	upgrader websocket.Upgrader
	server   *http.Server
	mu       sync.Mutex
	running  bool
	log      *slog.Logger
}

// ServerOption is a functional option for configuring Server.
type ServerOption func(*Server)

// WithLeadReader enables the lead inspection endpoints.
func WithLeadReader(r LeadReader) ServerOption {
	return func(s *Server) { s.leads = r }
}

// NewServer creates an ops server bound to addr. The server is not started
// until Start is called.
func NewServer(addr string, eng *engine.Engine, opts ...ServerOption) *Server {
	s := &Server{
		addr:   addr,
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
		},
		log: logging.WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/escalations", s.handleListEscalations)
	mux.HandleFunc("POST /api/v1/escalations/{leadID}/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/v1/escalations/{leadID}/skip", s.handleSkip)
	mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /api/v1/leads", s.handleListLeads)
	mux.HandleFunc("GET /api/v1/leads/{leadID}/messages", s.handleListMessages)
	mux.HandleFunc("GET /ws/events", s.handleEventsWebSocket)
	return mux
}

// Start starts the server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("ops server listening", slog.String("addr", s.addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEscalations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"escalations": s.engine.Queue().Snapshot(),
	})
}

// resolveRequest is the body for POST .../resolve.
type resolveRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadID")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.engine.ResolveEscalation(r.Context(), leadID, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
	case errors.Is(err, engine.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lead.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		// Dispatch failures surface synchronously so the operator can retry.
		s.log.Error("manual resolution failed",
			slog.String("lead_id", leadID),
			slog.Any("error", err),
		)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	leadID := r.PathValue("leadID")

	err := s.engine.SkipEscalation(leadID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
	case errors.Is(err, engine.ErrNoEscalation):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": s.engine.Sink().Events(),
	})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if s.leads == nil {
		writeError(w, http.StatusServiceUnavailable, "lead reader not configured")
		return
	}

	leads, err := s.leads.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if s.leads == nil {
		writeError(w, http.StatusServiceUnavailable, "lead reader not configured")
		return
	}

	messages, err := s.leads.Messages(r.Context(), r.PathValue("leadID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// notificationEvent is the wire shape pushed over the websocket feed.
type notificationEvent struct {
	Type  string       `json:"type"`
	Event notify.Event `json:"event"`
}
