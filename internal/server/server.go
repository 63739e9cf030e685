// Package server exposes the change companion over a local JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/sopform/internal/sopform"
)

// Server serves the JSON API.
type Server struct {
	app *sopform.App
	log zerolog.Logger
}

// New creates a Server backed by app.
func New(app *sopform.App, log zerolog.Logger) *Server {
	return &Server{app: app, log: log}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRecover(s.withLogging(withCORS(s.routes())))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// letting in-flight requests (including running gates) finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("openspec_root", s.app.Changes.Root()).
			Bool("verify_configured", s.app.Gates.VerifyConfigured()).
			Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
