package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation
// raised by PostgreSQL or SQLite.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// UniqueViolationOn reports whether err is a unique constraint violation on
// the given table column. PostgreSQL names the constraint <table>_<column>_key,
// SQLite reports "UNIQUE constraint failed: <table>.<column>".
func UniqueViolationOn(err error, table, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint == table+"_"+column+"_key"
	}
	return strings.Contains(err.Error(), table+"."+column)
}
