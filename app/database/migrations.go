package database

import (
	"context"
	"database/sql"
	"log"
)

type migration struct {
	name  string
	query string
}

var migrations = []migration{
	{"pgcrypto extension", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"accounts table", `
		CREATE TABLE IF NOT EXISTS accounts (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username      VARCHAR(50)  NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			full_name     VARCHAR(100) NOT NULL,
			role          VARCHAR(10)  NOT NULL CHECK (role IN ('Admin', 'Teacher', 'Student')),
			gender        VARCHAR(10)  NOT NULL DEFAULT 'Other' CHECK (gender IN ('Male', 'Female', 'Other')),
			phone         VARCHAR(20)  NOT NULL DEFAULT '',
			address       VARCHAR(255) NOT NULL DEFAULT '',
			avatar_url    VARCHAR(300) NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`},
	{"accounts username index", `CREATE UNIQUE INDEX IF NOT EXISTS accounts_username_lower_idx ON accounts (lower(username))`},
	{"subjects table", `
		CREATE TABLE IF NOT EXISTS subjects (
			id   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) NOT NULL UNIQUE
		)`},
	{"enrollments table", `
		CREATE TABLE IF NOT EXISTS enrollments (
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			standing   VARCHAR(10) NOT NULL CHECK (standing IN ('Teacher', 'Student')),
			PRIMARY KEY (account_id, subject_id)
		)`},
	{"enrollments subject index", `CREATE INDEX IF NOT EXISTS enrollments_subject_idx ON enrollments (subject_id, standing)`},
	{"exams table", `
		CREATE TABLE IF NOT EXISTS exams (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title      VARCHAR(200) NOT NULL,
			content    TEXT NOT NULL,
			subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE RESTRICT,
			created_by UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"submissions table", `
		CREATE TABLE IF NOT EXISTS submissions (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			exam_id       UUID NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
			student_id    UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
			file_name     VARCHAR(255) NOT NULL UNIQUE,
			original_name VARCHAR(255) NOT NULL DEFAULT '',
			content_type  VARCHAR(100) NOT NULL,
			size          BIGINT NOT NULL DEFAULT 0,
			submitted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			score         DOUBLE PRECISION CHECK (score >= 0 AND score <= 10),
			graded_by     UUID REFERENCES accounts(id) ON DELETE RESTRICT,
			UNIQUE (exam_id, student_id)
		)`},
	{"subject seed", `
		INSERT INTO subjects (name)
		VALUES ('Math'), ('Physics'), ('Chemistry'), ('Literature'), ('English')
		ON CONFLICT (name) DO NOTHING`},
}

// RunMigrations creates the schema if needed. Every step is idempotent.
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	for _, m := range migrations {
		if _, err := db.Exec(m.query); err != nil {
			log.Printf("Failed to run migration %q: %v", m.name, err)
			return err
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

const (
	queryInsertAdmin = `INSERT INTO accounts (username, password_hash, full_name, role)
		SELECT $1, $2, 'Administrator', 'Admin'
		WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE role = 'Admin')
		ON CONFLICT DO NOTHING`
)

// EnsureAdmin creates the bootstrap admin when no admin account exists.
// It reports whether an account was created.
func (s *Store) EnsureAdmin(ctx context.Context, username, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, queryInsertAdmin, username, hash)
	if err != nil {
		return false, mapError(err, "admin account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError(err, "admin account")
	}
	return n > 0, nil
}
