package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnqdz/exam-management/app/storage"
)

func TestPurgeExportsRemovesOnlyExpiredExports(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	old := fmt.Sprintf("users_%d.csv", now.Add(-2*time.Hour).UnixNano())
	fresh := fmt.Sprintf("users_%d.csv", now.Add(-time.Minute).UnixNano())
	for _, name := range []string{old, fresh, "notes.csv", "users_abc.csv"} {
		_, err := files.Put(ctx, storage.Exports, name, strings.NewReader("Id\r\n"))
		require.NoError(t, err)
	}
	_, err = files.Put(ctx, storage.Submissions, old, strings.NewReader("x"))
	require.NoError(t, err)

	n, err := PurgeExports(ctx, files, now, ExportRetention)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	names, err := files.List(ctx, storage.Exports)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fresh, "notes.csv", "users_abc.csv"}, names)

	rc, err := files.Open(ctx, storage.Submissions, old)
	require.NoError(t, err, "other categories are untouched")
	rc.Close()
}

func TestExportNamesCarryCreationTime(t *testing.T) {
	f := newFixture(t)
	before := time.Now()
	name, err := f.accounts.ExportCSV(context.Background(), f.admin)
	require.NoError(t, err)

	created, ok := exportTime(name)
	require.True(t, ok)
	assert.False(t, created.Before(before.Add(-time.Second)))
}
