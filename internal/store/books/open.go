package books

import (
	"context"
	"fmt"

	"github.com/5w1tchy/reading-list/internal/repository/sqlconnect"
)

// Open builds the Store selected by backend: "memory", "postgres" or
// "sqlite". ensureSchema only applies to relational backends.
func Open(ctx context.Context, backend, dsn string, ensureSchema bool) (Store, error) {
	if backend == "" || backend == "memory" {
		return NewMemory(), nil
	}

	db, driver, err := sqlconnect.ConnectDB(ctx, backend, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", backend, err)
	}
	s, err := NewSQL(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	if ensureSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}
