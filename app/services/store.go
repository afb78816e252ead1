// Package services holds the application operations. Handlers resolve the
// request's Actor once and pass it into every call here; authorization is
// decided by Policy and nowhere else.
package services

import (
	"context"
	"errors"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, acc *models.Account, subjectIDs []string) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	SearchAccounts(ctx context.Context, term string) ([]*models.Account, error)
	ListStudentsForTeacher(ctx context.Context, teacherID string) ([]*models.Account, error)
	UpdateAccount(ctx context.Context, acc *models.Account) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	DeleteAccount(ctx context.Context, id string) error
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

type SubjectStore interface {
	ListSubjects(ctx context.Context) ([]*models.Subject, error)
	SubjectsExist(ctx context.Context, ids []string) (bool, error)
	SubjectsForAccount(ctx context.Context, accountID string) ([]*models.Subject, error)
	Teaches(ctx context.Context, teacherID, subjectID string) (bool, error)
	IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error)
	SharesSubject(ctx context.Context, teacherID, studentID string) (bool, error)
}

type ExamStore interface {
	CreateExam(ctx context.Context, exam *models.Exam) error
	GetExam(ctx context.Context, id string) (*models.Exam, error)
	UpdateExam(ctx context.Context, exam *models.Exam) error
	DeleteExam(ctx context.Context, id string) error
	ListExams(ctx context.Context) ([]*models.Exam, error)
	ListExamsForAccount(ctx context.Context, accountID string) ([]*models.Exam, error)

	CreateSubmission(ctx context.Context, sub *models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	GetSubmissionByFileName(ctx context.Context, name string) (*models.Submission, error)
	GetStudentSubmission(ctx context.Context, examID, studentID string) (*models.Submission, error)
	ListSubmissionsForExam(ctx context.Context, examID string) ([]*models.Submission, error)
	GradeSubmission(ctx context.Context, id string, score float64, graderID string) error
}

// Repository is everything the services need from persistence.
// database.Store implements it.
type Repository interface {
	AccountStore
	SubjectStore
	ExamStore
}

// concealMissing turns NotFound into Forbidden for non-admin actors so a
// denied caller cannot tell whether the resource exists.
func concealMissing(actor *models.Actor, err error) error {
	if errors.Is(err, apperr.ErrNotFound) && !actor.IsAdmin() {
		return apperr.Forbid()
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
