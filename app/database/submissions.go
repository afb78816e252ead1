package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

const submissionColumns = `sb.id, sb.exam_id, sb.student_id, sb.file_name, sb.original_name,
	sb.content_type, sb.size, sb.submitted_at, sb.score, sb.graded_by,
	a.full_name, e.subject_id, e.title`

const submissionJoins = ` FROM submissions sb
	JOIN accounts a ON a.id = sb.student_id
	JOIN exams e ON e.id = sb.exam_id`

const (
	queryInsertSubmission = `INSERT INTO submissions (exam_id, student_id, file_name, original_name, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (exam_id, student_id) DO NOTHING
		RETURNING id, submitted_at`

	querySubmissionByID = `SELECT ` + submissionColumns + submissionJoins + ` WHERE sb.id = $1`

	querySubmissionByFileName = `SELECT ` + submissionColumns + submissionJoins + ` WHERE sb.file_name = $1`

	queryStudentSubmission = `SELECT ` + submissionColumns + submissionJoins +
		` WHERE sb.exam_id = $1 AND sb.student_id = $2`

	querySubmissionsForExam = `SELECT ` + submissionColumns + submissionJoins +
		` WHERE sb.exam_id = $1 ORDER BY sb.submitted_at`

	queryGradeSubmission = `UPDATE submissions SET score = $2, graded_by = $3 WHERE id = $1`
)

func scanSubmission(row rowScanner) (*models.Submission, error) {
	sub := &models.Submission{}
	var (
		score    sql.NullFloat64
		gradedBy sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.FileName, &sub.OriginalName,
		&sub.ContentType, &sub.Size, &sub.SubmittedAt, &score, &gradedBy,
		&sub.StudentName, &sub.SubjectID, &sub.ExamTitle)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := score.Float64
		sub.Score = &v
	}
	if gradedBy.Valid {
		v := gradedBy.String
		sub.GradedBy = &v
	}
	return sub, nil
}

// CreateSubmission inserts sub unless the student already submitted for the
// exam, in which case it returns Conflict and writes nothing.
func (s *Store) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	err := s.db.QueryRowContext(ctx, queryInsertSubmission,
		sub.ExamID, sub.StudentID, sub.FileName, sub.OriginalName, sub.ContentType, sub.Size,
	).Scan(&sub.ID, &sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqUniqueViolation {
			return apperr.Conflictf("You have already submitted this exam.")
		}
		return mapError(err, "submission")
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, querySubmissionByID, id))
	if err != nil {
		return nil, mapError(err, "submission")
	}
	return sub, nil
}

func (s *Store) GetSubmissionByFileName(ctx context.Context, name string) (*models.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, querySubmissionByFileName, name))
	if err != nil {
		return nil, mapError(err, "submission")
	}
	return sub, nil
}

func (s *Store) GetStudentSubmission(ctx context.Context, examID, studentID string) (*models.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, queryStudentSubmission, examID, studentID))
	if err != nil {
		return nil, mapError(err, "submission")
	}
	return sub, nil
}

func (s *Store) ListSubmissionsForExam(ctx context.Context, examID string) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, querySubmissionsForExam, examID)
	if err != nil {
		return nil, mapError(err, "submissions")
	}
	defer rows.Close()

	subs := []*models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, mapError(err, "submissions")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "submissions")
	}
	return subs, nil
}

// GradeSubmission records score and grader. The score range is checked by the
// caller and again by the table constraint.
func (s *Store) GradeSubmission(ctx context.Context, id string, score float64, graderID string) error {
	res, err := s.db.ExecContext(ctx, queryGradeSubmission, id, score, graderID)
	if err != nil {
		return mapError(err, "submission")
	}
	return affected(res, "submission")
}
