package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Driver {
	t.Helper()
	d, err := New(filestore.LocalConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, d.EnsureBucket(context.Background(), "runs"))
	return d
}

func put(t *testing.T, d *Driver, key, body string) {
	t.Helper()
	_, err := d.PutObject(context.Background(), "runs", key, strings.NewReader(body), int64(len(body)), "")
	require.NoError(t, err)
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)

	info, err := d.PutObject(ctx, "runs", "r1/schema.ddl", strings.NewReader("CREATE TABLE hero"), 17, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(17), info.Size)
	assert.Equal(t, "r1/schema.ddl", info.Key)

	obj, err := d.GetObject(ctx, "runs", "r1/schema.ddl")
	require.NoError(t, err)
	defer obj.Close()
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE hero", string(body))
	assert.Equal(t, int64(17), obj.Info().Size)

	// Overwrite replaces the content.
	put(t, d, "r1/schema.ddl", "x")
	stat, err := d.StatObject(ctx, "runs", "r1/schema.ddl")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.Size)
}

func TestListObjects(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)
	put(t, d, "r1/schema.ddl", "a")
	put(t, d, "r1/sketches/hero/id.mh", "b")
	put(t, d, "r1/sketches/hero/name.mh", "c")
	put(t, d, "r2/schema.ddl", "d")

	all, err := d.ListObjects(ctx, "runs", filestore.ListOptions{Prefix: "r1/", Recursive: true})
	require.NoError(t, err)
	var keys []string
	for _, o := range all {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"r1/schema.ddl", "r1/sketches/hero/id.mh", "r1/sketches/hero/name.mh"}, keys)

	top, err := d.ListObjects(ctx, "runs", filestore.ListOptions{Prefix: "r1/"})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "r1/schema.ddl", top[0].Key)
	assert.False(t, top[0].IsDir)
	assert.Equal(t, "r1/sketches/", top[1].Key)
	assert.True(t, top[1].IsDir)

	page, err := d.ListObjects(ctx, "runs", filestore.ListOptions{Recursive: true, Marker: "r1/sketches/hero/id.mh", Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r1/sketches/hero/name.mh", page[0].Key)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)

	_, err := d.GetObject(ctx, "runs", "missing")
	assert.True(t, errs.IsNotFound(err))

	_, err = d.StatObject(ctx, "runs", "missing")
	assert.True(t, errs.IsNotFound(err))

	_, err = d.PutObject(ctx, "nobucket", "k", strings.NewReader("x"), 1, "")
	assert.True(t, errs.IsNotFound(err))

	for _, key := range []string{"", "/abs", "../escape", "a//b", "a/./b"} {
		_, err = d.PutObject(ctx, "runs", key, strings.NewReader("x"), 1, "")
		assert.True(t, errs.IsInvalidInput(err), key)
	}

	_, err = d.PutObject(ctx, "runs", "short", strings.NewReader("x"), 5, "")
	assert.True(t, errs.IsInvalidInput(err))

	assert.True(t, errs.IsInvalidInput(d.EnsureBucket(ctx, "../up")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.PutObject(cancelled, "runs", "k", strings.NewReader("x"), 1, "")
	assert.True(t, errs.IsCancelled(err))
}

func TestPresignGetURL(t *testing.T) {
	d := newStore(t)
	put(t, d, "r1/profile_report.md", "# Data Profiling Report")

	u, err := d.PresignGetURL(context.Background(), "runs", "r1/profile_report.md", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/runs/r1/profile_report.md"))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, filestore.LocalConfig("/tmp/x").Validate())
	assert.NoError(t, filestore.DefaultConfig("localhost:9000", "a", "b").Validate())

	bad := filestore.DefaultConfig("", "a", "b")
	assert.True(t, errs.IsInvalidInput(bad.Validate()))

	bad = filestore.LocalConfig("/tmp/x")
	bad.Provider = "s4"
	assert.True(t, errs.IsInvalidInput(bad.Validate()))

	bad = filestore.LocalConfig("/tmp/x")
	bad.Bucket = ""
	assert.True(t, errs.IsInvalidInput(bad.Validate()))
}
