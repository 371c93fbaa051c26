package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Kind separates store failures the callers react to differently.
type Kind int

const (
	KindQuery Kind = iota
	KindConnection
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindConstraint:
		return "constraint violation"
	default:
		return "query error"
	}
}

// Error is a classified store failure.
type Error struct {
	Kind   Kind
	Op     string
	Unique bool
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a referenced row that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnection
}

func IsConstraint(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConstraint
}

func IsUniqueViolation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConstraint && e.Unique
}

// classify wraps a driver error into *Error. sql.ErrNoRows is returned as is.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	kind, unique := kindOf(err)
	return &Error{Kind: kind, Op: op, Unique: unique, Err: err}
}

func kindOf(err error) (Kind, bool) {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindConnection, false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "28", "3D", "53", "57":
			return KindConnection, false
		case "23":
			return KindConstraint, pqErr.Code == "23505"
		}
		return KindQuery, false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, 1044, 1045, 1049, 1053, 2002, 2003, 2006, 2013:
			return KindConnection, false
		case 1062, 1586:
			return KindConstraint, true
		case 1048, 1216, 1217, 1451, 1452, 3819:
			return KindConstraint, false
		}
		return KindQuery, false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint:
			unique := liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
			return KindConstraint, unique
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrAuth, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return KindConnection, false
		}
		return KindQuery, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection, false
	}
	return KindQuery, false
}
