package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnqdz/exam-management/app/config"
)

func TestValidateName(t *testing.T) {
	good := []string{"a.pdf", "exam_1_student_2_abc.pdf", "users_1700000000.csv", "A-b_c.png"}
	for _, n := range good {
		assert.NoError(t, ValidateName(n), n)
	}

	bad := []string{
		"",
		"../etc/passwd",
		"..",
		"a/../../b",
		"/etc/passwd",
		`..\windows\win.ini`,
		`C:\boot.ini`,
		"dir/file.pdf",
		".hidden",
		"file\x00.pdf",
		"a..b.pdf",
		"%2e%2e%2fetc",
		strings.Repeat("a", MaxNameLength+1),
	}
	for _, n := range bad {
		assert.ErrorIs(t, ValidateName(n), ErrInvalidName, n)
	}
}

func TestLocalPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	n, err := l.Put(ctx, Submissions, "a.pdf", strings.NewReader("%PDF-1.4 data"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	rc, err := l.Open(ctx, Submissions, "a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 data", string(data))

	info, err := os.Stat(filepath.Join(l.Root(), "Submissions", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = l.Put(ctx, Submissions, "a.pdf", strings.NewReader("again"))
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, l.Delete(ctx, Submissions, "a.pdf"))
	_, err = l.Open(ctx, Submissions, "a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.Delete(ctx, Submissions, "a.pdf"), ErrNotFound)
}

func TestLocalCategoriesAreSeparate(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = l.Put(ctx, Exports, "users.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = l.Open(ctx, Avatars, "users.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	l, err := NewLocal(filepath.Join(root, "store"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o600))

	_, err = l.Open(ctx, Exports, "../../secret.txt")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = l.Put(ctx, Exports, "../evil.csv", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = l.Open(ctx, Category("../.."), "secret.txt")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalOpenDirectoryIsNotFound(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(l.Root(), "Avatars", "sub"), 0o700))

	_, err = l.Open(ctx, Avatars, "sub")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenSelectsBackend(t *testing.T) {
	root := filepath.Join(t.TempDir(), "files")
	store, err := Open(context.Background(), config.StorageConfig{Backend: "local", Root: root})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

// recordingWriter notes whether its context was already cancelled when Close ran.
type recordingWriter struct {
	ctx             context.Context
	buf             bytes.Buffer
	closed          bool
	cancelledAtClose bool
}

func (w *recordingWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *recordingWriter) Close() error {
	w.closed = true
	w.cancelledAtClose = w.ctx.Err() != nil
	if w.cancelledAtClose {
		return w.ctx.Err()
	}
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestUploadCommitsOnlyCompleteObjects(t *testing.T) {
	var w *recordingWriter
	open := func(ctx context.Context) io.WriteCloser {
		w = &recordingWriter{ctx: ctx}
		return w
	}

	n, err := upload(context.Background(), open, strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.True(t, w.closed)
	assert.False(t, w.cancelledAtClose)
	assert.Equal(t, "%PDF-1.7", w.buf.String())

	n, err = upload(context.Background(), open, io.MultiReader(strings.NewReader("%PDF"), failingReader{}))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, w.closed)
	assert.True(t, w.cancelledAtClose, "upload must be aborted before the writer is closed")
}
