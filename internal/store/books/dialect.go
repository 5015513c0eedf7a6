package books

import "fmt"

// Dialect identifies the relational flavour behind a *sql.DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("books: unsupported sql driver %q", driverName)
}

func (d Dialect) goqu() string { return string(d) }

// SupportsReturning reports whether goqu can emit INSERT ... RETURNING.
func (d Dialect) SupportsReturning() bool { return d == DialectPostgres }
