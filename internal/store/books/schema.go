package books

import (
	"context"
	"fmt"
)

// Local/dev bootstrap only. Real deployments own their schema.
var schemaDDL = map[Dialect]string{
	DialectPostgres: `
CREATE TABLE IF NOT EXISTS books (
	id          BIGSERIAL PRIMARY KEY,
	title       VARCHAR(200) NOT NULL,
	author      VARCHAR(100) NOT NULL,
	description VARCHAR(500),
	status      VARCHAR(20)  NOT NULL DEFAULT 'to_read'
	            CONSTRAINT books_status_check CHECK (status IN ('to_read', 'in_progress', 'completed')),
	created_at  TIMESTAMPTZ  NOT NULL,
	updated_at  TIMESTAMPTZ  NOT NULL
)`,
	DialectSQLite: `
CREATE TABLE IF NOT EXISTS books (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT     NOT NULL,
	author      TEXT     NOT NULL,
	description TEXT,
	status      TEXT     NOT NULL DEFAULT 'to_read'
	            CHECK (status IN ('to_read', 'in_progress', 'completed')),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
)`,
}

// EnsureSchema creates the books table when it does not exist yet.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemaDDL[s.dialect]
	if !ok {
		return fmt.Errorf("books: no schema for dialect %q", s.dialect)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure books schema: %w", err)
	}
	return nil
}
