package database

import (
	"context"

	"github.com/lib/pq"

	"github.com/hungnqdz/exam-management/app/models"
)

const (
	queryListSubjects = `SELECT id, name FROM subjects ORDER BY name`

	queryCountSubjects = `SELECT COUNT(*) FROM subjects WHERE id = ANY($1::uuid[])`

	querySubjectsForAccount = `SELECT s.id, s.name
		FROM subjects s JOIN enrollments e ON e.subject_id = s.id
		WHERE e.account_id = $1
		ORDER BY s.name`

	queryHasStanding = `SELECT EXISTS (
		SELECT 1 FROM enrollments WHERE account_id = $1 AND subject_id = $2 AND standing = $3)`

	querySharesSubject = `SELECT EXISTS (
		SELECT 1 FROM enrollments t
		JOIN enrollments s ON s.subject_id = t.subject_id AND s.standing = 'Student'
		WHERE t.account_id = $1 AND t.standing = 'Teacher' AND s.account_id = $2)`
)

func (s *Store) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, queryListSubjects)
	if err != nil {
		return nil, mapError(err, "subjects")
	}
	defer rows.Close()

	subjects := []*models.Subject{}
	for rows.Next() {
		subject := &models.Subject{}
		if err := rows.Scan(&subject.ID, &subject.Name); err != nil {
			return nil, mapError(err, "subjects")
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "subjects")
	}
	return subjects, nil
}

// SubjectsExist reports whether every id names a subject. Duplicates in ids
// must be removed by the caller.
func (s *Store) SubjectsExist(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountSubjects, pq.Array(ids)).Scan(&n); err != nil {
		if pqCode(err) == pqInvalidText {
			return false, nil
		}
		return false, mapError(err, "subjects")
	}
	return n == len(ids), nil
}

func (s *Store) SubjectsForAccount(ctx context.Context, accountID string) ([]*models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, querySubjectsForAccount, accountID)
	if err != nil {
		return nil, mapError(err, "subjects")
	}
	defer rows.Close()

	subjects := []*models.Subject{}
	for rows.Next() {
		subject := &models.Subject{}
		if err := rows.Scan(&subject.ID, &subject.Name); err != nil {
			return nil, mapError(err, "subjects")
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "subjects")
	}
	return subjects, nil
}

func (s *Store) hasStanding(ctx context.Context, accountID, subjectID string, standing models.Role) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, queryHasStanding, accountID, subjectID, standing).Scan(&ok)
	if err != nil {
		if pqCode(err) == pqInvalidText {
			return false, nil
		}
		return false, mapError(err, "enrollment")
	}
	return ok, nil
}

// Teaches reports whether the teacher holds a Teacher enrollment in the subject.
func (s *Store) Teaches(ctx context.Context, teacherID, subjectID string) (bool, error) {
	return s.hasStanding(ctx, teacherID, subjectID, models.RoleTeacher)
}

// IsEnrolled reports whether the student holds a Student enrollment in the subject.
func (s *Store) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	return s.hasStanding(ctx, studentID, subjectID, models.RoleStudent)
}

// SharesSubject reports whether the student is enrolled in any subject the
// teacher teaches.
func (s *Store) SharesSubject(ctx context.Context, teacherID, studentID string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, querySharesSubject, teacherID, studentID).Scan(&ok); err != nil {
		if pqCode(err) == pqInvalidText {
			return false, nil
		}
		return false, mapError(err, "enrollment")
	}
	return ok, nil
}
