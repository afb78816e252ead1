package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/lib/pq"

	"github.com/hungnqdz/exam-management/app/apperr"
)

// Store implements the repository interfaces used by the services on top of
// PostgreSQL. Every statement is parameterized.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Postgres error codes the store classifies.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqInvalidText         = "22P02"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// mapError classifies a driver error. Anything unexpected is logged here and
// surfaces as an opaque internal error.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("%s not found", what)
	}
	switch pqCode(err) {
	case pqUniqueViolation:
		return apperr.Wrap(apperr.Conflict, what+" already exists", err)
	case pqForeignKeyViolation:
		return apperr.Wrap(apperr.Conflict, what+" is referenced by other records", err)
	case pqCheckViolation:
		return apperr.Wrap(apperr.ValidationFailed, what+" has an invalid value", err)
	case pqInvalidText:
		return apperr.NotFoundf("%s not found", what)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Internalf(err, "%s query cancelled", what)
	}
	log.Printf("database: %s: %v", what, err)
	return apperr.Internalf(err, "%s query failed", what)
}

// escapeLike escapes LIKE wildcards so search terms match literally.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("database: rollback failed: %v", err)
	}
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, what)
	}
	if n == 0 {
		return apperr.NotFoundf("%s not found", what)
	}
	return nil
}
