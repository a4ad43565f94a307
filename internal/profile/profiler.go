// Package profile computes table and column statistics over a live database
// connection and attaches them to a reflected schema.
//
// Every column step runs in isolation: a failing statistic becomes a
// schema.Warning on that column and the remaining steps and columns carry
// on. Only a lost connection or a cancelled context stops a run.
package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Profiler attaches TableProfile and ColumnProfile values to a schema. It is
// safe for concurrent use; the schema tree passed in is mutated only by
// assigning Profile fields.
type Profiler struct {
	db   database.DB
	opts Options
	log  *logger.Logger
}

// New validates opts and returns a Profiler.
func New(db database.DB, opts Options, log *logger.Logger) (*Profiler, error) {
	if db == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "profiler needs a database")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Profiler{db: db, opts: opts, log: log.Named("profiler")}, nil
}

// Options returns the validated options.
func (p *Profiler) Options() Options { return p.opts }

// ProfileDatabase profiles every table of db through a pool bounded by
// TableConcurrency. The first connection failure cancels outstanding work
// and is returned together with the partial report; cancellation returns
// the partial report and a cancelled error.
func (p *Profiler) ProfileDatabase(ctx context.Context, db *schema.Database) (*Report, error) {
	rep := &Report{
		RunID:     uuid.New(),
		Database:  db.Name,
		StartedAt: time.Now().UTC(),
		Tables:    make([]*TableReport, len(db.Tables)),
	}
	log := p.log.With().Str("run_id", rep.RunID.String()).Logger()
	log.With().Str("database", db.Name).Int("tables", len(db.Tables)).Logger().Info("profiling started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.TableConcurrency)

	for i, t := range db.Tables {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			tr, err := p.ProfileTable(gctx, t)
			rep.Tables[i] = tr
			return err
		})
	}
	err := g.Wait()

	rep.FinishedAt = time.Now().UTC()
	for i, tr := range rep.Tables {
		if tr == nil {
			rep.Tables[i] = &TableReport{Table: db.Tables[i].Name, Cancelled: true}
		}
	}

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctx.Err() != nil {
			err = errs.Wrap(errs.ErrKindCancelled, "profiling cancelled", ctx.Err())
		}
		log.WarnWith("profiling stopped", err, map[string]interface{}{
			"warnings": len(rep.Warnings()),
		})
		return rep, err
	}

	log.InfoWith("profiling finished", map[string]interface{}{
		"duration_ms": rep.Duration().Milliseconds(),
		"warnings":    len(rep.Warnings()),
		"failed":      len(rep.Failed()),
	})
	return rep, nil
}

// ProfileTable computes the row count of t and, when non-zero, a profile for
// every column. Data-related failures never produce an error: a failed count
// is reported in TableReport.Err and failed column steps as warnings. The
// returned error is either connection_failed or cancelled.
func (p *Profiler) ProfileTable(ctx context.Context, t *schema.Table) (*TableReport, error) {
	started := time.Now()
	rep := &TableReport{Table: t.Name}
	log := p.log.With().Str("table", t.Name).Logger()

	if err := ctx.Err(); err != nil {
		rep.Cancelled = true
		return rep, errs.Wrap(errs.ErrKindCancelled, "profiling cancelled", err)
	}

	q := database.Stats(p.db.Dialect(), p.opts.Schema, t.Name)

	var count int64
	err := p.retry(ctx, func() error {
		stepCtx, cancel := p.stepContext(ctx)
		defer cancel()
		n, err := database.QueryInt64(stepCtx, p.db, q.CountRows())
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		if stop := p.stopError(ctx, err); stop != nil {
			rep.Cancelled = errs.IsCancelled(stop)
			return rep, stop
		}
		rep.Err = errs.Wrap(errs.ErrKindTableCount, fmt.Sprintf("could not count rows of %s", t.Name), err)
		rep.Duration = time.Since(started)
		log.WarnWith("could not get record count", err, nil)
		return rep, nil
	}

	t.Profile = &schema.TableProfile{RecordCount: count}
	log.With().Int64("record_count", count).Logger().Info("profiling table")

	if count == 0 {
		rep.Skipped = true
		rep.Duration = time.Since(started)
		log.Debug("table is empty, skipping column profiling")
		return rep, nil
	}

	err = p.profileColumns(ctx, q, t, count)
	rep.Warnings = collectWarnings(t)
	rep.Duration = time.Since(started)
	if err != nil {
		rep.Cancelled = errs.IsCancelled(err)
		return rep, err
	}
	return rep, nil
}

func (p *Profiler) profileColumns(ctx context.Context, q *database.StatsBuilder, t *schema.Table, count int64) error {
	tieBreak := ""
	if pks := t.PrimaryKeyColumns(); len(pks) == 1 {
		tieBreak = pks[0].Name
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ColumnConcurrency)

	for _, c := range t.Columns {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			w := &columnWorker{
				p:           p,
				q:           q,
				table:       t,
				col:         c,
				recordCount: count,
				tieBreak:    tieBreak,
				log:         p.log.With().Str("table", t.Name).Str("column", c.Name).Logger(),
			}
			return w.run(gctx)
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return p.stopError(ctx, err)
	}
	return nil
}

// stopError returns the error that must end the run, or nil when err only
// affects the current step.
func (p *Profiler) stopError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errs.IsCancelled(err) {
			return err
		}
		return errs.Wrap(errs.ErrKindCancelled, "profiling cancelled", ctxErr)
	}
	if errs.IsConnectionFailed(err) || errs.IsCancelled(err) {
		return err
	}
	return nil
}

func (p *Profiler) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.QueryTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.QueryTimeout)
	}
	return context.WithCancel(ctx)
}
