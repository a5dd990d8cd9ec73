package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"subwaypulse/internal/handler"
	"subwaypulse/internal/theme"
)

// Options configures the HTTP server.
type Options struct {
	Port        int
	CORSOrigins []string
}

// Server is the HTTP server for SubwayPulse.
type Server struct {
	router chi.Router
	opts   Options
	logger *slog.Logger
	http   *http.Server
}

// New creates a new Server with all routes registered.
func New(h *handler.Handler, th *theme.Theme, static fs.FS, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Use(requestLogger(logger))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}))
	}

	// The stylesheet is generated once at startup; everything else comes from
	// the embedded FS. Versioned URLs get immutable caching.
	r.Method(http.MethodGet, "/static/theme.css", staticCacheHandler(th))
	fileServer := http.FileServer(http.FS(static))
	r.Method(http.MethodGet, "/static/*", http.StripPrefix("/static/", staticCacheHandler(fileServer)))

	h.Routes(r)

	return &Server{router: r, opts: opts, logger: logger}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
