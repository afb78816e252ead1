package database

import (
	"context"
	"database/sql"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

const examColumns = `e.id, e.title, e.content, e.subject_id, s.name, e.created_by, e.created_at, e.updated_at`

const (
	queryInsertExam = `INSERT INTO exams (title, content, subject_id, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	queryExamByID = `SELECT ` + examColumns + `
		FROM exams e JOIN subjects s ON s.id = e.subject_id
		WHERE e.id = $1`

	queryListExams = `SELECT ` + examColumns + `
		FROM exams e JOIN subjects s ON s.id = e.subject_id
		ORDER BY e.created_at DESC`

	queryExamsForAccount = `SELECT ` + examColumns + `
		FROM exams e
		JOIN subjects s ON s.id = e.subject_id
		JOIN enrollments en ON en.subject_id = e.subject_id
		WHERE en.account_id = $1
		ORDER BY e.created_at DESC`

	queryUpdateExam = `UPDATE exams SET title = $2, content = $3, subject_id = $4, updated_at = NOW() WHERE id = $1`

	queryDeleteExam = `DELETE FROM exams WHERE id = $1`
)

func scanExam(row rowScanner) (*models.Exam, error) {
	exam := &models.Exam{}
	err := row.Scan(&exam.ID, &exam.Title, &exam.Content, &exam.SubjectID, &exam.SubjectName,
		&exam.CreatedBy, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *Store) CreateExam(ctx context.Context, exam *models.Exam) error {
	err := s.db.QueryRowContext(ctx, queryInsertExam, exam.Title, exam.Content, exam.SubjectID, exam.CreatedBy).
		Scan(&exam.ID, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		switch pqCode(err) {
		case pqForeignKeyViolation, pqInvalidText:
			return apperr.Wrap(apperr.ValidationFailed, "Unknown subject.", err)
		}
		return mapError(err, "exam")
	}
	return nil
}

func (s *Store) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := scanExam(s.db.QueryRowContext(ctx, queryExamByID, id))
	if err != nil {
		return nil, mapError(err, "exam")
	}
	return exam, nil
}

func (s *Store) UpdateExam(ctx context.Context, exam *models.Exam) error {
	res, err := s.db.ExecContext(ctx, queryUpdateExam, exam.ID, exam.Title, exam.Content, exam.SubjectID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return apperr.Wrap(apperr.ValidationFailed, "Unknown subject.", err)
		}
		return mapError(err, "exam")
	}
	return affected(res, "exam")
}

// DeleteExam removes the exam and, by cascade, its submission rows. Stored
// files are the caller's concern.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, queryDeleteExam, id)
	if err != nil {
		return mapError(err, "exam")
	}
	return affected(res, "exam")
}

// ListExams returns every exam, newest first.
func (s *Store) ListExams(ctx context.Context) ([]*models.Exam, error) {
	rows, err := s.db.QueryContext(ctx, queryListExams)
	if err != nil {
		return nil, mapError(err, "exams")
	}
	return collectExams(rows)
}

// ListExamsForAccount returns the exams of every subject the account is
// enrolled in, whatever its standing.
func (s *Store) ListExamsForAccount(ctx context.Context, accountID string) ([]*models.Exam, error) {
	rows, err := s.db.QueryContext(ctx, queryExamsForAccount, accountID)
	if err != nil {
		return nil, mapError(err, "exams")
	}
	return collectExams(rows)
}

func collectExams(rows *sql.Rows) ([]*models.Exam, error) {
	defer rows.Close()

	exams := []*models.Exam{}
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, mapError(err, "exams")
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "exams")
	}
	return exams, nil
}
