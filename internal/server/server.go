// Package server exposes a profiled schema snapshot over a read-only HTTP
// API. The snapshot is never modified after New.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/profile"
	"github.com/koustreak/dschema/internal/render"
	"github.com/koustreak/dschema/internal/schema"
)

// Snapshot is the result of one run. Report may be nil when the schema was
// only reflected.
type Snapshot struct {
	Database *schema.Database
	Report   *profile.Report
}

// Options configures rendering and HTTP timeouts.
type Options struct {
	Render             render.Options
	CandidateThreshold float64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
}

// Server serves one Snapshot.
type Server struct {
	snap   Snapshot
	opts   Options
	log    *logger.Logger
	router chi.Router
}

// New builds the router. snap.Database must be set.
func New(snap Snapshot, opts Options, log *logger.Logger) (*Server, error) {
	if snap.Database == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "server needs a schema snapshot")
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{snap: snap, opts: opts, log: log.Named("server")}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.log.Middleware)

	r.Get("/healthz", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", s.getSchema)
		r.Get("/tables", s.listTables)
		r.Get("/tables/{table}", s.getTable)
		r.Get("/tables/{table}/columns/{column}", s.getColumn)
		r.Get("/render/{kind}", s.getRender)
		r.Get("/similarity", s.getSimilarity)
		r.Get("/candidates", s.getCandidates)
		r.Get("/report", s.getReport)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "no such route"))
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "http server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "http server shutdown", err)
	}
	s.log.Info("server stopped")
	return nil
}
