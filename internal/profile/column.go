package profile

import (
	"context"

	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/koustreak/dschema/internal/sketch"
)

// Column step names, as recorded in schema.Warning.Step.
const (
	StepAcquire       = "acquire"
	StepNullCount     = "null_count"
	StepDistinctCount = "distinct_count"
	StepMinMax        = "min_max"
	StepAvgCharLength = "avg_char_length"
	StepTopK          = "top_k"
	StepSketch        = "sketch"
)

// columnWorker runs the step sequence of one column on its own connection.
type columnWorker struct {
	p           *Profiler
	q           *database.StatsBuilder
	table       *schema.Table
	col         *schema.Column
	recordCount int64
	tieBreak    string
	log         *logger.Logger

	conn database.Conn
	prof *schema.ColumnProfile
	done int // steps that completed
}

// run attaches a profile to the column holding whatever steps succeeded,
// including when the run is stopped part way through. A column for which
// no step completed or failed keeps a nil profile.
func (w *columnWorker) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindCancelled, "profiling cancelled", err)
	}

	w.prof = &schema.ColumnProfile{}
	defer w.attach()

	conn, err := w.p.db.Acquire(ctx)
	if err != nil {
		if stop := w.p.stopError(ctx, err); stop != nil {
			return stop
		}
		w.warn(StepAcquire, err)
		return nil
	}
	defer conn.Release()
	w.conn = conn

	steps := []struct {
		name    string
		enabled bool
		fn      func(context.Context) error
	}{
		{StepNullCount, true, w.nullCount},
		{StepDistinctCount, true, w.distinctCount},
		{StepMinMax, true, w.minMax},
		{StepAvgCharLength, w.col.IsTextLike(), w.avgCharLength},
		{StepTopK, w.p.opts.TopK > 0, w.topK},
		{StepSketch, w.p.opts.EnableSketch, w.sketch},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := w.runStep(ctx, s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// runStep isolates one step. It returns an error only when the run must
// stop; anything else is recorded as a warning on the column.
func (w *columnWorker) runStep(ctx context.Context, step string, fn func(context.Context) error) error {
	err := w.p.retry(ctx, func() error {
		stepCtx, cancel := w.p.stepContext(ctx)
		defer cancel()
		return fn(stepCtx)
	})
	if err == nil {
		w.done++
		return nil
	}
	if stop := w.p.stopError(ctx, err); stop != nil {
		return stop
	}
	w.warn(step, err)
	return nil
}

func (w *columnWorker) warn(step string, err error) {
	w.prof.Warnings = append(w.prof.Warnings, schema.Warning{
		Step:    step,
		Kind:    errs.KindOf(err).String(),
		Message: err.Error(),
	})
	w.log.WarnWith("column step failed", err, map[string]interface{}{"step": step})
}

func (w *columnWorker) attach() {
	if w.done == 0 && len(w.prof.Warnings) == 0 {
		return
	}
	w.col.Profile = w.prof
}

func (w *columnWorker) allNull() bool {
	return w.prof.NonNullCount != nil && *w.prof.NonNullCount == 0
}

func (w *columnWorker) nullCount(ctx context.Context) error {
	n, err := database.QueryInt64(ctx, w.conn, w.q.CountNulls(w.col.Name))
	if err != nil {
		return err
	}
	// rows inserted between the two counts must not break the sum
	if n > w.recordCount {
		n = w.recordCount
	}
	nonNull := w.recordCount - n
	w.prof.NullCount = &n
	w.prof.NonNullCount = &nonNull
	return nil
}

func (w *columnWorker) distinctCount(ctx context.Context) error {
	n, err := database.QueryInt64(ctx, w.conn, w.q.CountDistinct(w.col.Name))
	if err != nil {
		return err
	}
	if w.prof.NonNullCount != nil && n > *w.prof.NonNullCount {
		n = *w.prof.NonNullCount
	}
	w.prof.DistinctCount = &n
	return nil
}

// minMax is skipped once the null count has shown no non-null values.
func (w *columnWorker) minMax(ctx context.Context) error {
	if w.allNull() {
		return nil
	}
	var lo, hi *string
	if err := w.conn.QueryRow(ctx, w.q.MinMax(w.col.Name)).Scan(&lo, &hi); err != nil {
		return err
	}
	w.prof.MinValue, w.prof.MaxValue = lo, hi
	return nil
}

func (w *columnWorker) avgCharLength(ctx context.Context) error {
	avg, err := database.QueryNullFloat(ctx, w.conn, w.q.AvgLength(w.col.Name))
	if err != nil {
		return err
	}
	if avg == nil {
		zero := 0.0
		avg = &zero
	}
	w.prof.AvgCharLength = avg
	return nil
}

// topK orders ties by the smallest primary key value per group, which
// follows insertion order for serial keys. If that statement fails it is
// re-issued once ordering ties by value.
func (w *columnWorker) topK(ctx context.Context) error {
	values, err := w.queryTopK(ctx, w.tieBreak)
	if err != nil && w.tieBreak != "" && w.p.stopError(ctx, err) == nil {
		w.log.Debugf("top-k with primary key tie-break failed, retrying by value: %v", err)
		values, err = w.queryTopK(ctx, "")
	}
	if err != nil {
		return err
	}
	w.prof.TopK = values
	return nil
}

func (w *columnWorker) queryTopK(ctx context.Context, tieBreak string) ([]schema.ValueCount, error) {
	sql, err := w.q.TopK(w.col.Name, w.p.opts.TopK, tieBreak)
	if err != nil {
		return nil, err
	}
	rows, err := w.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]schema.ValueCount, 0, w.p.opts.TopK)
	for rows.Next() {
		var vc schema.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Frequency); err != nil {
			return nil, err
		}
		values = append(values, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// sketch streams the non-null values through a fresh MinHash sketch. Memory
// stays O(NumHashes); cancellation is checked every StreamBatchSize rows.
func (w *columnWorker) sketch(ctx context.Context) error {
	rows, err := w.conn.Query(ctx, w.q.NonNullValues(w.col.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	s := sketch.New(w.p.opts.NumHashes)
	batch := w.p.opts.StreamBatchSize
	var n int
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		s.Update(v)

		n++
		if n%batch == 0 {
			if err := ctx.Err(); err != nil {
				return database.MapContextError(err, "sketch scan interrupted")
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	w.prof.Sketch = s.Serialize()
	return nil
}
