package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

const accountColumns = `a.id, a.username, a.password_hash, a.full_name, a.role, a.gender,
	a.phone, a.address, a.avatar_url, a.created_at, a.updated_at`

const (
	queryInsertAccount = `INSERT INTO accounts (username, password_hash, full_name, role, gender, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	queryInsertEnrollment = `INSERT INTO enrollments (account_id, subject_id, standing) VALUES ($1, $2, $3)`

	queryAccountByID = `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1`

	queryAccountByUsername = `SELECT ` + accountColumns + ` FROM accounts a WHERE lower(a.username) = lower($1)`

	queryListAccounts = `SELECT ` + accountColumns + ` FROM accounts a ORDER BY a.role, a.username`

	querySearchAccounts = `SELECT ` + accountColumns + ` FROM accounts a
		WHERE a.username ILIKE $1 ESCAPE '\' OR a.full_name ILIKE $1 ESCAPE '\'
		ORDER BY a.role, a.username`

	queryStudentsForTeacher = `SELECT DISTINCT ` + accountColumns + ` FROM accounts a
		JOIN enrollments s ON s.account_id = a.id AND s.standing = 'Student'
		JOIN enrollments t ON t.subject_id = s.subject_id AND t.standing = 'Teacher'
		WHERE t.account_id = $1 AND a.role = 'Student'
		ORDER BY a.full_name, a.username`

	querySubjectsForAccounts = `SELECT e.account_id, s.id, s.name
		FROM enrollments e JOIN subjects s ON s.id = e.subject_id
		WHERE e.account_id = ANY($1)
		ORDER BY s.name`

	queryUpdateAccount = `UPDATE accounts
		SET full_name = $2, role = $3, gender = $4, phone = $5, address = $6, updated_at = NOW()
		WHERE id = $1`

	queryUpdateStanding = `UPDATE enrollments SET standing = $2 WHERE account_id = $1`

	queryUpdatePassword = `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	queryUpdateAvatar = `UPDATE accounts SET avatar_url = $2, updated_at = NOW() WHERE id = $1`

	queryDeleteAccount = `DELETE FROM accounts WHERE id = $1`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(
		&acc.ID, &acc.Username, &acc.PasswordHash, &acc.FullName, &acc.Role, &acc.Gender,
		&acc.Phone, &acc.Address, &acc.AvatarURL, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// CreateAccount inserts acc and its enrollments in one transaction. The
// enrollment standing follows the account role.
func (s *Store) CreateAccount(ctx context.Context, acc *models.Account, subjectIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "account")
	}
	defer rollback(tx)

	err = tx.QueryRowContext(ctx, queryInsertAccount,
		acc.Username, acc.PasswordHash, acc.FullName, acc.Role, acc.Gender, acc.Phone, acc.Address,
	).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return apperr.Wrap(apperr.Conflict, "Username is already taken.", err)
		}
		return mapError(err, "account")
	}

	if acc.Role != models.RoleAdmin {
		for _, subjectID := range subjectIDs {
			if _, err := tx.ExecContext(ctx, queryInsertEnrollment, acc.ID, subjectID, acc.Role); err != nil {
				switch pqCode(err) {
				case pqForeignKeyViolation, pqInvalidText:
					return apperr.Wrap(apperr.ValidationFailed, "Unknown subject.", err)
				case pqUniqueViolation:
					continue
				}
				return mapError(err, "enrollment")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "account")
	}
	return nil
}

// GetAccountByID returns the account with its subjects loaded.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, queryAccountByID, id))
	if err != nil {
		return nil, mapError(err, "account")
	}
	if err := s.loadSubjects(ctx, []*models.Account{acc}); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccountByUsername matches the username case-insensitively.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, queryAccountByUsername, username))
	if err != nil {
		return nil, mapError(err, "account")
	}
	return acc, nil
}

// ListAccounts returns every account ordered by role and username.
func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts)
	if err != nil {
		return nil, mapError(err, "accounts")
	}
	return s.collectAccounts(ctx, rows)
}

// SearchAccounts returns accounts whose username or full name contains term.
// LIKE wildcards in term match literally.
func (s *Store) SearchAccounts(ctx context.Context, term string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, querySearchAccounts, "%"+escapeLike(term)+"%")
	if err != nil {
		return nil, mapError(err, "accounts")
	}
	return s.collectAccounts(ctx, rows)
}

// ListStudentsForTeacher returns students enrolled in any subject the teacher teaches.
func (s *Store) ListStudentsForTeacher(ctx context.Context, teacherID string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryStudentsForTeacher, teacherID)
	if err != nil {
		return nil, mapError(err, "students")
	}
	return s.collectAccounts(ctx, rows)
}

func (s *Store) collectAccounts(ctx context.Context, rows *sql.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "accounts")
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "accounts")
	}
	if err := s.loadSubjects(ctx, accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) loadSubjects(ctx context.Context, accounts []*models.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	byID := make(map[string]*models.Account, len(accounts))
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	rows, err := s.db.QueryContext(ctx, querySubjectsForAccounts, pq.Array(ids))
	if err != nil {
		return mapError(err, "subjects")
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		subject := &models.Subject{}
		if err := rows.Scan(&accountID, &subject.ID, &subject.Name); err != nil {
			return mapError(err, "subjects")
		}
		if acc, ok := byID[accountID]; ok {
			acc.Subjects = append(acc.Subjects, subject)
		}
	}
	return mapError(rows.Err(), "subjects")
}

// UpdateAccount saves the editable profile fields and role. Enrollment
// standing follows a Teacher/Student role change.
func (s *Store) UpdateAccount(ctx context.Context, acc *models.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "account")
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, queryUpdateAccount,
		acc.ID, acc.FullName, acc.Role, acc.Gender, acc.Phone, acc.Address)
	if err != nil {
		return mapError(err, "account")
	}
	if err := affected(res, "account"); err != nil {
		return err
	}
	if acc.Role == models.RoleTeacher || acc.Role == models.RoleStudent {
		if _, err := tx.ExecContext(ctx, queryUpdateStanding, acc.ID, acc.Role); err != nil {
			return mapError(err, "enrollment")
		}
	}
	return mapError(tx.Commit(), "account")
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, queryUpdatePassword, id, hash)
	if err != nil {
		return mapError(err, "account")
	}
	return affected(res, "account")
}

func (s *Store) UpdateAvatar(ctx context.Context, id, url string) error {
	res, err := s.db.ExecContext(ctx, queryUpdateAvatar, id, url)
	if err != nil {
		return mapError(err, "account")
	}
	return affected(res, "account")
}

// DeleteAccount removes the account and, by cascade, its enrollments. It
// fails with Conflict while submissions or exams still reference it.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, queryDeleteAccount, id)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return apperr.Wrap(apperr.Conflict,
				"The account still has exams or submissions and cannot be deleted.", err)
		}
		return mapError(err, "account")
	}
	return affected(res, "account")
}
