package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
)

// errNoRows stands in for sql.ErrNoRows when an UPDATE or DELETE matched nothing.
var errNoRows = sql.ErrNoRows

// pgUniqueViolation is the postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique or primary key violation
// from either supported driver.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	return false
}

// mapErr turns unique violations into Conflict errors. Other errors pass
// through unchanged.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return errs.Conflict("unique", "%v", err)
	}
	return err
}

// notFound converts sql.ErrNoRows to a NotFound error for entity/id.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound(entity, id)
	}
	return err
}
