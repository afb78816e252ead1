package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/storage"
)

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newFixture(t)
	err := f.accounts.Delete(context.Background(), f.admin, f.admin.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.repo.GetAccountByID(context.Background(), f.admin.ID)
	assert.NoError(t, err)
}

func TestDeleteAccountWithSubmissionsConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam := f.addExam(t, "math")
	_, err := f.exams.Submit(ctx, f.alice, exam.ID, pdfUpload())
	require.NoError(t, err)

	err = f.accounts.Delete(ctx, f.admin, f.alice.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestNobodyBecomesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Create(ctx, f.admin, AccountInput{
		Username: "root2", Password: "abcdef", FullName: "Root", Role: models.RoleAdmin,
	})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.accounts.Update(ctx, f.admin, f.mathTeacher.ID, AccountInput{FullName: "T", Role: models.RoleAdmin})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.accounts.Update(ctx, f.admin, f.admin.ID, AccountInput{FullName: "Admin", Role: models.RoleTeacher})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	acc, err := f.repo.GetAccountByID(ctx, f.mathTeacher.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, acc.Role)
}

func TestAccountManagementIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.List(ctx, f.mathTeacher, "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	_, err = f.accounts.Create(ctx, f.alice, AccountInput{Username: "x", Password: "abcdef", FullName: "X", Role: models.RoleStudent})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	err = f.accounts.Delete(ctx, f.mathTeacher, f.alice.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestAdminCreatesAndSearches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.accounts.Create(ctx, f.admin, AccountInput{
		Username: "  zoe ", Password: "abcdef", FullName: "Zoe Quinn", Role: models.RoleTeacher,
		Phone: "+84 (0) 123-456", SubjectIDs: []string{"physics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "zoe", acc.Username)

	found, err := f.accounts.List(ctx, f.admin, "  QUINN ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, acc.ID, found[0].ID)

	all, err := f.accounts.List(ctx, f.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	_, err = f.accounts.List(ctx, f.admin, strings.Repeat("q", 500))
	assert.NoError(t, err)
}

func TestProfileValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProfileInput
	}{
		{"missing name", ProfileInput{FullName: "  "}},
		{"phone with letters", ProfileInput{FullName: "A", Phone: "555-CALL"}},
		{"phone with quote", ProfileInput{FullName: "A", Phone: "1' OR '1'='1"}},
		{"phone too long", ProfileInput{FullName: "A", Phone: strings.Repeat("1", 21)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.UpdateProfile(ctx, f.alice, tt.in)
			assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))
		})
	}

	acc, err := f.accounts.UpdateProfile(ctx, f.alice, ProfileInput{
		FullName: " Alice A. ", Gender: models.Female, Phone: "0912 345 678", Address: "Hanoi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", acc.FullName)
	assert.Equal(t, models.RoleStudent, acc.Role)
}

func TestTeacherStudentManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lone := f.addAccount(t, "lone", models.RoleStudent, "literature")

	students, err := f.accounts.StudentsForTeacher(ctx, f.mathTeacher, "")
	require.NoError(t, err)
	var names []string
	for _, s := range students {
		names = append(names, s.Username)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	students, err = f.accounts.StudentsForTeacher(ctx, f.mathTeacher, "ALI")
	require.NoError(t, err)
	require.Len(t, students, 1)

	_, err = f.accounts.StudentsForTeacher(ctx, f.alice, "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.accounts.UpdateStudent(ctx, f.mathTeacher, lone.ID, ProfileInput{FullName: "Changed"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	updated, err := f.accounts.UpdateStudent(ctx, f.mathTeacher, f.bob.ID, ProfileInput{FullName: "Robert"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.FullName)

	_, err = f.accounts.GetStudent(ctx, f.mathTeacher, f.litTeacher.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	require.NoError(t, f.accounts.DeleteStudent(ctx, f.mathTeacher, f.bob.ID))
	err = f.accounts.DeleteStudent(ctx, f.litTeacher, f.alice.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestTeacherCreatesStudentOnlyInTaughtSubjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := AccountInput{Username: "newbie", Password: "abcdef", FullName: "New Student", Role: models.RoleAdmin}

	_, err := f.accounts.CreateStudent(ctx, f.mathTeacher, in)
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err), "at least one subject")

	in.SubjectIDs = []string{"math", "literature"}
	_, err = f.accounts.CreateStudent(ctx, f.mathTeacher, in)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	in.SubjectIDs = []string{"math"}
	acc, err := f.accounts.CreateStudent(ctx, f.mathTeacher, in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, acc.Role, "role is forced to Student")

	ok, err := f.repo.IsEnrolled(ctx, acc.ID, "math")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateAvatarReplacesPreviousFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")

	first, err := f.accounts.UpdateAvatar(ctx, f.bob, memUpload("a.gif", "image/gif", gif))
	require.NoError(t, err)
	second, err := f.accounts.UpdateAvatar(ctx, f.bob, memUpload("b.gif", "image/gif", gif))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = f.files.Open(ctx, storage.Avatars, strings.TrimPrefix(first, "/Files/Avatar/"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	acc, err := f.repo.GetAccountByID(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, second, acc.AvatarURL)
}

func TestUpdateAvatarRejectsSVGAndMismatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uploads := []Upload{
		memUpload("x.svg", "image/svg+xml", []byte(`<svg onload="alert(1)"/>`)),
		memUpload("x.png", "image/png", []byte("<script>alert(1)</script>")),
		memUpload("x.png", "image/gif", []byte("GIF89a")),
		memUpload("x.html", "text/html", []byte("<html>")),
	}
	for _, up := range uploads {
		_, err := f.accounts.UpdateAvatar(ctx, f.alice, up)
		assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err), up.Filename)
	}
	assert.Empty(t, f.files.Calls())
}

func TestDashboardIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam := f.addExam(t, "math")
	_, err := f.exams.Submit(ctx, f.alice, exam.ID, pdfUpload())
	require.NoError(t, err)

	_, err = f.accounts.Dashboard(ctx, f.mathTeacher)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	stats, err := f.accounts.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{Teachers: 2, Students: 2, Exams: 1, Submissions: 1, Ungraded: 1}, *stats)
}
