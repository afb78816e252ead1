package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/storage"
)

func TestOpenRejectsTraversalBeforeStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	names := []string{
		"../../etc/passwd",
		"..",
		"/etc/passwd",
		`..\..\web.config`,
		"a/b.pdf",
		".hidden",
		"",
		strings.Repeat("a", 256),
	}
	for _, category := range []storage.Category{storage.Avatars, storage.Submissions, storage.Exports} {
		for _, name := range names {
			_, err := f.fileSvc.Open(ctx, f.admin, category, name)
			assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err), "%s/%q", category, name)
		}
	}
	assert.Empty(t, f.files.Calls(), "invalid names must never reach storage")
}

func TestOpenSubmissionOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam := f.addExam(t, "math")
	sub, err := f.exams.Submit(ctx, f.alice, exam.ID, pdfUpload())
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor *models.Actor
		allow bool
	}{
		{"owner", f.alice, true},
		{"subject teacher", f.mathTeacher, true},
		{"admin", f.admin, true},
		{"classmate", f.bob, false},
		{"other teacher", f.litTeacher, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := f.fileSvc.Open(ctx, tt.actor, storage.Submissions, sub.FileName)
			if !tt.allow {
				assert.True(t, errors.Is(err, apperr.ErrForbidden))
				return
			}
			require.NoError(t, err)
			defer file.Body.Close()
			data, err := io.ReadAll(file.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
			assert.Equal(t, "application/pdf", file.ContentType)
			assert.False(t, file.Inline)
		})
	}
}

func TestOpenUnknownSubmissionIsForbiddenForStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fileSvc.Open(ctx, f.alice, storage.Submissions, "exam_x_student_y_z.pdf")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	_, err = f.fileSvc.Open(ctx, f.admin, storage.Submissions, "exam_x_student_y_z.pdf")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestOpenExportAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := f.accounts.ExportCSV(ctx, f.admin)
	require.NoError(t, err)

	_, err = f.fileSvc.Open(ctx, f.mathTeacher, storage.Exports, name)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	file, err := f.fileSvc.Open(ctx, f.admin, storage.Exports, name)
	require.NoError(t, err)
	defer file.Body.Close()
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.False(t, file.Inline)
}

func TestOpenAvatarRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	url, err := f.accounts.UpdateAvatar(ctx, f.alice, memUpload("me.png", "image/png", png))
	require.NoError(t, err)
	name := strings.TrimPrefix(url, "/Files/Avatar/")

	_, err = f.fileSvc.Open(ctx, nil, storage.Avatars, name)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	file, err := f.fileSvc.Open(ctx, f.bob, storage.Avatars, name)
	require.NoError(t, err)
	defer file.Body.Close()
	assert.Equal(t, "image/png", file.ContentType)
	assert.True(t, file.Inline)
}

func TestContentTypeForUsesAllowList(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("a.PDF"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.svg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.html"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("noext"))
}
