// Package httpx holds the HTTP plumbing shared by the services: server
// lifecycle, router defaults, error responses and Server-Sent Events.
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/common/logger"
)

type Server struct {
	*http.Server
	log *logger.Logger
}

// New returns a server without a write timeout; event streams stay open for
// as long as the client is connected.
func New(addr string, h http.Handler, log *logger.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Request contexts derive from ctx so open event streams end on shutdown.
	s.BaseContext = func(net.Listener) context.Context { return ctx }
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	s.log.Info("http_listening", map[string]any{"addr": s.Addr})

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			s.log.Warn("http_shutdown_incomplete", map[string]any{"error": err.Error()})
			_ = s.Close()
		}
		s.log.Info("http_stopped", nil)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter returns a gin engine with panic recovery and one log line per
// finished request.
func NewRouter(log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http_request", map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}
