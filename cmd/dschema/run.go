package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dschema/internal/artifact"
	"github.com/koustreak/dschema/internal/config"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/database/mysql"
	"github.com/koustreak/dschema/internal/database/postgres"
	"github.com/koustreak/dschema/internal/database/sqlite"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/filestore"
	"github.com/koustreak/dschema/internal/filestore/local"
	"github.com/koustreak/dschema/internal/filestore/minio"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/profile"
	"github.com/koustreak/dschema/internal/render"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/koustreak/dschema/internal/server"
)

const presignTTL = 24 * time.Hour

// app runs one reflect, profile, render, publish and serve cycle.
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	stdout      io.Writer
	skipProfile bool

	// result of the last run
	db     *schema.Database
	report *profile.Report
}

func (a *app) run(ctx context.Context) error {
	conn, err := connect(ctx, &a.cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	a.db, err = schema.NewReflector(conn, a.log).Reflect(ctx, schema.ReflectOptions{
		Schema:        a.cfg.Database.Schema,
		IncludeTables: a.cfg.Reflect.IncludeTables,
		ExcludeTables: a.cfg.Reflect.ExcludeTables,
		SampleLimit:   a.cfg.Profile.SampleLimit,
	})
	if err != nil {
		return err
	}
	for _, d := range a.db.DanglingReferences() {
		a.log.With().Str("table", d.Table).Str("column", d.Column).Str("ref", d.Ref.String()).Logger().
			Warn("foreign key points outside the reflected tables")
	}

	// a cancelled run still writes the profiles attached so far
	var stopped error
	if !a.skipProfile {
		if err := a.profile(ctx, conn); err != nil {
			if !errs.IsCancelled(err) || a.report == nil {
				return err
			}
			a.log.WarnWith("profiling cancelled, writing partial results", err, map[string]interface{}{
				"warnings": len(a.report.Warnings()),
			})
			stopped = err
		}
	}

	kinds, err := a.cfg.Kinds()
	if err != nil {
		return err
	}
	if err := a.writeOutputs(kinds); err != nil {
		return err
	}
	if stopped != nil {
		if a.cfg.Output.Publish {
			a.log.Warn("run was cancelled, skipping publish")
		}
		return stopped
	}
	if a.cfg.Output.Publish {
		if err := a.publish(ctx, kinds); err != nil {
			return err
		}
	}

	if !a.cfg.Server.Enabled {
		return nil
	}
	srv, err := server.New(server.Snapshot{Database: a.db, Report: a.report}, server.Options{
		Render:             a.cfg.Render,
		CandidateThreshold: a.cfg.Output.CandidateThreshold,
		ReadTimeout:        a.cfg.Server.ReadTimeout,
		WriteTimeout:       a.cfg.Server.WriteTimeout,
		ShutdownTimeout:    a.cfg.Server.ShutdownTimeout,
	}, a.log)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}

func (a *app) profile(ctx context.Context, conn database.DB) error {
	p, err := profile.New(conn, a.cfg.Profile, a.log)
	if err != nil {
		return err
	}
	a.report, err = p.ProfileDatabase(ctx, a.db)
	if err != nil {
		return err
	}

	for _, t := range a.report.Failed() {
		a.log.WarnWith("table not profiled", t.Err, map[string]interface{}{"table": t.Table})
	}
	a.log.With().
		Int("warnings", len(a.report.Warnings())).
		Int64("duration_ms", a.report.Duration().Milliseconds()).
		Logger().Info("profiling finished")

	if !a.cfg.Profile.EnableSketch {
		return nil
	}
	cands, err := profile.Candidates(a.db, a.cfg.Output.CandidateThreshold)
	if err != nil {
		a.log.WarnWith("foreign key candidates unavailable", err, nil)
		return nil
	}
	for _, c := range cands {
		if c.Declared {
			continue
		}
		a.log.InfoWith("undeclared foreign key candidate", map[string]interface{}{
			"from":       c.From.String(),
			"to":         c.To.String(),
			"similarity": c.Similarity,
		})
	}
	return nil
}

// writeOutputs writes one file per kind into Output.Dir, or every kind to
// stdout when no directory is set.
func (a *app) writeOutputs(kinds []render.Kind) error {
	dir := a.cfg.Output.Dir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "failed to create output directory", err)
		}
	}

	for i, kind := range kinds {
		body, err := render.Render(kind, a.db, a.cfg.Render)
		if err != nil {
			return err
		}
		if dir == "" {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "%s\n", body)
			continue
		}
		p := filepath.Join(dir, render.Filename(kind))
		if err := os.WriteFile(p, body, 0o644); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to write %s", p), err)
		}
		a.log.With().Str("path", p).Logger().Info("wrote output")
	}
	return nil
}

func (a *app) publish(ctx context.Context, kinds []render.Kind) error {
	store, err := openStore(ctx, &a.cfg.Output.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	run := uuid.New()
	if a.report != nil {
		run = a.report.RunID
	}

	pub := artifact.NewPublisher(store, a.cfg.Output.Store.Bucket, a.cfg.Output.Prefix, a.log)
	if err := pub.Prepare(ctx); err != nil {
		return err
	}
	for _, kind := range kinds {
		if _, err := pub.PublishRender(ctx, run, kind, a.db, a.cfg.Render); err != nil {
			return err
		}
	}
	if _, err := pub.PublishSketches(ctx, run, a.db); err != nil {
		return err
	}

	if u, err := store.PresignGetURL(ctx, a.cfg.Output.Store.Bucket, pub.RunKey(run, render.Filename(kinds[0])), presignTTL); err == nil {
		a.log.With().Str("run_id", run.String()).Str("url", u).Logger().Info("published run")
	}
	return nil
}

func connect(ctx context.Context, cfg *database.Config) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	case database.DriverSQLite:
		db, err = sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	var (
		store filestore.Store
		err   error
	)
	switch cfg.Provider {
	case filestore.ProviderMinIO:
		store, err = minio.New(ctx, cfg)
	case filestore.ProviderLocal:
		store, err = local.New(cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown store provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
