// Package artifact stores the outputs of a profiling run in a
// filestore.Store. Every run gets its own key prefix:
//
//	<prefix>/<run_id>/<filename>                         rendered outputs
//	<prefix>/<run_id>/sketches/<table>/<column>.mh       serialized sketches
package artifact

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/filestore"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/render"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/koustreak/dschema/internal/sketch"
	"golang.org/x/sync/errgroup"
)

const (
	sketchDir         = "sketches"
	sketchExt         = ".mh"
	sketchContentType = "application/octet-stream"

	// maxSketchSize bounds LoadSketch reads.
	maxSketchSize = 6 + sketch.MaxNumHashes*8

	uploadConcurrency = 4
)

// Publisher writes run artifacts into one bucket of a Store.
type Publisher struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
}

// NewPublisher returns a Publisher. prefix may be empty.
func NewPublisher(store filestore.Store, bucket, prefix string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{store: store, bucket: bucket, prefix: prefix, log: log.Named("artifact")}
}

// Prepare creates the bucket when missing.
func (p *Publisher) Prepare(ctx context.Context) error {
	return p.store.EnsureBucket(ctx, p.bucket)
}

// RunKey is the key of filename inside run.
func (p *Publisher) RunKey(run uuid.UUID, filename string) string {
	return path.Join(p.prefix, run.String(), filename)
}

// SketchKey is the key of one column's sketch. Table and column names are
// path-escaped so they always form a single key segment.
func (p *Publisher) SketchKey(run uuid.UUID, table, column string) string {
	return path.Join(p.prefix, run.String(), sketchDir, url.PathEscape(table), url.PathEscape(column)+sketchExt)
}

// PublishRender renders kind for db and stores it under the kind's filename.
func (p *Publisher) PublishRender(ctx context.Context, run uuid.UUID, kind render.Kind, db *schema.Database, opts render.Options) (*filestore.ObjectInfo, error) {
	body, err := render.Render(kind, db, opts)
	if err != nil {
		return nil, err
	}
	key := p.RunKey(run, render.Filename(kind))
	info, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(body), int64(len(body)), render.ContentType(kind))
	if err != nil {
		return nil, err
	}
	p.log.With().Str("key", key).Int64("size", info.Size).Logger().Info("published render")
	return info, nil
}

// PublishSketches uploads every non-empty column sketch of db and returns the
// number stored. The first failed upload cancels the rest.
func (p *Publisher) PublishSketches(ctx context.Context, run uuid.UUID, db *schema.Database) (int, error) {
	type upload struct {
		key  string
		data []byte
	}
	var uploads []upload
	for _, t := range db.Tables {
		for _, c := range t.Columns {
			if c.Profile.HasSketch() {
				uploads = append(uploads, upload{key: p.SketchKey(run, t.Name, c.Name), data: c.Profile.Sketch})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, u := range uploads {
		g.Go(func() error {
			_, err := p.store.PutObject(gctx, p.bucket, u.key, bytes.NewReader(u.data), int64(len(u.data)), sketchContentType)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	p.log.With().Str("run_id", run.String()).Int("sketches", len(uploads)).Logger().Info("published sketches")
	return len(uploads), nil
}

// LoadSketch reads back a sketch stored by PublishSketches.
func (p *Publisher) LoadSketch(ctx context.Context, run uuid.UUID, table, column string) (*sketch.Sketch, error) {
	obj, err := p.store.GetObject(ctx, p.bucket, p.SketchKey(run, table, column))
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxSketchSize+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read sketch", err)
	}
	if len(data) > maxSketchSize {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sketch %s.%s is larger than %d bytes", table, column, maxSketchSize)
	}
	return sketch.Deserialize(data)
}

// Runs lists the run ids present under the prefix.
func (p *Publisher) Runs(ctx context.Context) ([]uuid.UUID, error) {
	prefix := ""
	if p.prefix != "" {
		prefix = p.prefix + "/"
	}
	entries, err := p.store.ListObjects(ctx, p.bucket, filestore.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	var runs []uuid.UUID
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		id, err := uuid.Parse(path.Base(e.Key))
		if err != nil {
			continue
		}
		runs = append(runs, id)
	}
	return runs, nil
}
