// Package local implements filestore.Store on a directory tree. Each bucket
// is a subdirectory of the root and each key a slash-separated path inside
// it. It serves single-host runs and tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/filestore"
)

// Driver is a directory-backed filestore.Store. Writes go through a
// temporary file and a rename, so readers never observe partial objects.
type Driver struct {
	root string
}

var _ filestore.Store = (*Driver)(nil)

// New creates the root directory when missing.
func New(cfg *filestore.Config) (*Driver, error) {
	if cfg.Root == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "local store root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, mapError(err, "failed to create store root")
	}
	return &Driver{root: cfg.Root}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return mapError(err, "ping failed")
	}
	if _, err := os.Stat(d.root); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error { return nil }

func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to put object")
	}
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	// Buckets must exist, as with S3.
	if _, err := os.Stat(filepath.Join(d.root, bucket)); err != nil {
		return nil, mapError(err, "failed to put object")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, mapError(err, "failed to put object")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, mapError(err, "failed to write object")
	}
	if size >= 0 && n != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s: wrote %d bytes, expected %d", key, n, size)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, mapError(err, "failed to commit object")
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	return objectInfo(key, info), nil
}

// ListObjects walks the bucket in lexical key order.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	var keys []string
	infos := map[string]fs.FileInfo{}
	err = filepath.WalkDir(dir, func(p string, e fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		keys = append(keys, key)
		infos[key] = info
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}
	sort.Strings(keys)

	var results []filestore.ObjectInfo
	seenDirs := map[string]bool{}
	for _, key := range keys {
		if opts.Marker != "" && key <= opts.Marker {
			continue
		}
		if !opts.Recursive {
			rest := key[len(opts.Prefix):]
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				prefix := opts.Prefix + rest[:i+1]
				if !seenDirs[prefix] {
					seenDirs[prefix] = true
					results = append(results, filestore.ObjectInfo{Key: prefix, Size: -1, IsDir: true})
				}
				if opts.Limit > 0 && len(results) >= opts.Limit {
					break
				}
				continue
			}
		}
		results = append(results, *objectInfo(key, infos[key]))
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to get object")
	}
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError(err, "failed to stat object after get")
	}
	return &object{ReadCloser: f, info: objectInfo(key, info)}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	if info.IsDir() {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %s not found", key)
	}
	return objectInfo(key, info), nil
}

// PresignGetURL returns a file:// URL; ttl does not apply.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, _ time.Duration) (string, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", mapError(err, "failed to resolve object path")
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (d *Driver) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid bucket name %q", bucket)
	}
	return filepath.Join(d.root, bucket), nil
}

func (d *Driver) objectPath(bucket, key string) (string, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	if err := filestore.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(key)), nil
}

func objectInfo(key string, info fs.FileInfo) *filestore.ObjectInfo {
	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &filestore.ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  ct,
		ETag:         fmt.Sprintf("%x-%x", info.ModTime().UnixNano(), info.Size()),
		LastModified: info.ModTime(),
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }

func mapError(err error, msg string) *errs.Error {
	switch {
	case errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindCancelled, msg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
}
