package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"newsletter/internal/handlers"
	"newsletter/internal/middleware"
)

// NewRouter wires every endpoint behind panic recovery. Tracing sits outside
// both, so every request is logged, including 404, 405 and recovered panics.
func NewRouter(h *handlers.Handlers, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/echo", h.Echo).Methods(http.MethodGet)
	r.HandleFunc("/health_check", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/subscribe", h.CreateSubscription).Methods(http.MethodPost)
	r.HandleFunc("/subscribe", h.RemoveSubscription).Methods(http.MethodDelete)
	r.HandleFunc("/subscriptions", h.GetSubscriptions).Methods(http.MethodGet)

	recovered := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{logger}),
		gorillahandlers.PrintRecoveryStack(true),
	)(r)
	return middleware.Tracing(logger, r)(recovered)
}

// recoveryLogger adapts zap to gorilla's RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", zap.String("panic", fmt.Sprint(v...)))
}

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

func New(addr string, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info("Starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Server is shutting down")
	return s.httpServer.Shutdown(ctx)
}
