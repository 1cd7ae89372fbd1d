package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{KeepShortest: true}.Validate())
	assert.NoError(t, Options{Exec: "md5sum"}.Validate())
	assert.NoError(t, Options{KeepShortest: true, Pretend: true}.Validate())
	assert.NoError(t, Options{Exec: "md5sum", Pretend: true}.Validate())

	assert.Error(t, Options{KeepShortest: true, Exec: "rm"}.Validate())
	assert.Error(t, Options{Pretend: true}.Validate())
}

func TestEmitPrintsJSONLines(t *testing.T) {
	groups := []Group{
		{Digest: "aa11", Paths: []string{"/x/a", "/y/b"}},
		{Digest: "bb22", Paths: []string{"/x/c", "/y/d", "/z/e"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, groups, Options{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "aa11", rec.Digest)
	assert.Equal(t, []string{"/x/a", "/y/b"}, rec.Paths)
}

func TestKeepShortestOrdering(t *testing.T) {
	keep, remove := KeepShortest([]string{"/long/path/file", "/b/f", "/a/f"})
	assert.Equal(t, "/a/f", keep)
	assert.Equal(t, []string{"/b/f", "/long/path/file"}, remove)

	keep, remove = KeepShortest(nil)
	assert.Empty(t, keep)
	assert.Empty(t, remove)

	keep, remove = KeepShortest([]string{"/only"})
	assert.Equal(t, "/only", keep)
	assert.Empty(t, remove)
}

func TestEmitKeepShortestDeletes(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "a")
	long := filepath.Join(dir, "longer-name")
	require.NoError(t, os.WriteFile(short, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(long, []byte("x"), 0o644))

	var buf bytes.Buffer
	err := Emit(&buf, []Group{{Digest: "d1", Paths: []string{long, short}}},
		Options{KeepShortest: true})
	require.NoError(t, err)

	assert.FileExists(t, short)
	assert.NoFileExists(t, long)
	assert.Contains(t, buf.String(), "keep "+short)
	assert.Contains(t, buf.String(), "deleted "+long)
}

func TestEmitKeepShortestPretend(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "a")
	long := filepath.Join(dir, "longer-name")
	require.NoError(t, os.WriteFile(short, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(long, []byte("x"), 0o644))

	var buf bytes.Buffer
	err := Emit(&buf, []Group{{Digest: "d1", Paths: []string{long, short}}},
		Options{KeepShortest: true, Pretend: true})
	require.NoError(t, err)

	assert.FileExists(t, long, "pretend must not delete")
	assert.Contains(t, buf.String(), "would delete "+long)
}

func TestEmitKeepShortestReportsFailures(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(short, []byte("x"), 0o644))
	missing := filepath.Join(dir, "already-gone-long-name")

	var buf bytes.Buffer
	err := Emit(&buf, []Group{{Digest: "d1", Paths: []string{short, missing}}},
		Options{KeepShortest: true})
	assert.Error(t, err)
	assert.FileExists(t, short)
}

func TestEmitExec(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	var buf bytes.Buffer
	err := Emit(&buf, []Group{{Digest: "d1", Paths: []string{a, b}}},
		Options{Exec: "echo"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), a)
	assert.Contains(t, buf.String(), b)
}

func TestEmitExecPretend(t *testing.T) {
	var buf bytes.Buffer
	err := Emit(&buf, []Group{{Digest: "d1", Paths: []string{"/a", "/b"}}},
		Options{Exec: "rm", Pretend: true})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "would exec rm")
}

func TestEmitExecFailureDoesNotStopLaterGroups(t *testing.T) {
	var buf bytes.Buffer
	err := Emit(&buf, []Group{
		{Digest: "d1", Paths: []string{"/a"}},
		{Digest: "d2", Paths: []string{"/b"}},
	}, Options{Exec: "definitely-not-a-real-program"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2")
}
