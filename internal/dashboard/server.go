package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Service ties the generator, the HTTP API, and the stream hub together.
type Service struct {
	gen            *Generator
	hub            *Hub
	logger         *zap.Logger
	streamInterval time.Duration
}

// NewService builds the dashboard service.
func NewService(gen *Generator, hub *Hub, streamInterval time.Duration, logger *zap.Logger) *Service {
	if streamInterval <= 0 {
		streamInterval = 5 * time.Second
	}
	return &Service{
		gen:            gen,
		hub:            hub,
		logger:         logger,
		streamInterval: streamInterval,
	}
}

// Router sets up the HTTP API. Telemetry endpoints sit behind the auth
// middleware; health does not.
func (s *Service) Router(authSecret string) http.Handler {
	auth := AuthMiddleware(authSecret)

	mux := http.NewServeMux()
	mux.Handle("/api/telemetry", auth(method(http.MethodGet, s.handleTelemetry)))
	mux.Handle("/api/telemetry/latest", auth(method(http.MethodGet, s.handleLatest)))
	mux.Handle("/ws/telemetry", auth(http.HandlerFunc(s.hub.HandleWS)))
	mux.Handle("/health", method(http.MethodGet, s.handleHealth))
	return mux
}

// StreamLoop pushes a fresh fleet snapshot to stream subscribers until the
// context is cancelled.
func (s *Service) StreamLoop(ctx context.Context) {
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.hub.Close()
			return
		case <-ticker.C:
			s.hub.Broadcast(s.gen.Next())
		}
	}
}

// handleTelemetry serves the full fleet snapshot, advancing the simulation
// one step per request like the original device dashboard.
func (s *Service) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.gen.Next())
}

// handleLatest serves the first asset's record only.
func (s *Service) handleLatest(w http.ResponseWriter, r *http.Request) {
	records := s.gen.Next()
	if len(records) == 0 {
		http.Error(w, "no assets configured", http.StatusNotFound)
		return
	}
	writeJSON(w, records[0])
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer builds the HTTP server.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting dashboard server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
