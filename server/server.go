package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/memory"
)

// DefaultShutdownTimeout bounds graceful shutdown in Run.
const DefaultShutdownTimeout = 10 * time.Second

// Assistant is the behavior the HTTP surface needs. *groundwork.Assistant
// implements it.
type Assistant interface {
	HandleQuery(ctx context.Context, question, sessionID string, opts ...core.QueryOption) (*core.Response, error)
	HandleBatch(ctx context.Context, questions []string, sessionID string, opts ...core.QueryOption) ([]*core.Response, error)
	ClearSession(sessionID string)
	SessionStats(sessionID string) memory.SessionStats
	MemorySummary() memory.Summary
	HealthCheck(ctx context.Context) map[string]string
	InsertKnowledge(ctx context.Context, text string, metadata map[string]string) (core.ID, error)
	IngestDocument(ctx context.Context, text string, metadata map[string]string, progress *ingest.Progress) (ingest.BatchResult, error)
}

// Server routes HTTP requests to an Assistant.
type Server struct {
	assistant Assistant
	engine    *gin.Engine
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// New builds a Server with its routes registered.
func New(assistant Assistant, opts ...Option) (*Server, error) {
	if assistant == nil {
		return nil, ErrAssistantRequired
	}
	s := &Server{
		assistant: assistant,
		logger:    slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestID(), accessLog(s.logger))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/query", s.query)
	v1.POST("/batch-query", s.batchQuery)
	v1.GET("/sessions", s.sessionSummary)
	v1.GET("/sessions/:id", s.sessionStats)
	v1.DELETE("/sessions/:id", s.clearSession)
	v1.POST("/knowledge", s.insertKnowledge)
	v1.POST("/documents", s.ingestDocument)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
