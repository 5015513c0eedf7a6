package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Map well-known constraint names to fields (extend as you add constraints)
var constraintField = map[string]string{
	"books_title_check":       "title",
	"books_author_check":      "author",
	"books_description_check": "description",
	"books_status_check":      "status",
}

// FromPG maps a *pgconn.PgError caused by bad input to a validation error.
// Anything else (including non-PG errors) reports ok=false.
func FromPG(err error) (*Error, bool) {
	var pg *pgconn.PgError
	if !errors.As(err, &pg) {
		return nil, false
	}

	field := constraintField[pg.ConstraintName]
	if field == "" {
		field = pg.ColumnName
	}
	if field == "" {
		field = "field"
	}

	// SQLSTATE switch
	switch pg.Code {
	case "22001": // string_data_right_truncation
		return &Error{Kind: KindValidation, Detail: field + " is too long", Err: err}, true
	case "23502": // not_null_violation
		return &Error{Kind: KindValidation, Detail: field + " is required", Err: err}, true
	case "23514": // check_violation
		return &Error{Kind: KindValidation, Detail: field + " is invalid", Err: err}, true
	}
	return nil, false
}
