package sqlconnect

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// ConnectDB opens and pings a pool for backend ("postgres" or "sqlite").
// It returns the database/sql driver name alongside the pool.
func ConnectDB(ctx context.Context, backend, dsn string) (*sql.DB, string, error) {
	if dsn == "" {
		return nil, "", fmt.Errorf("DATABASE_URL not set")
	}

	var (
		driver string
		err    error
	)
	switch backend {
	case "postgres":
		driver = DriverPostgres
	case "sqlite":
		driver = DriverSQLite
		if dsn, err = SQLiteDSN(dsn); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", fmt.Errorf("unsupported sql backend %q", backend)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", err
	}

	if driver == DriverSQLite {
		// one writer; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
		return db, driver, nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, driver, nil
}

// SQLiteDSN accepts "sqlite:///./path.db", "file:path.db" or a bare path
// and returns a go-sqlite3 DSN with busy timeout and foreign keys enabled.
func SQLiteDSN(raw string) (string, error) {
	if strings.HasPrefix(raw, "file:") {
		return raw, nil
	}
	path := strings.TrimPrefix(raw, "sqlite://")
	// sqlite:///./x.db leaves "/./x.db"; the leading slash belongs to the URL form
	if strings.HasPrefix(path, "/./") {
		path = path[1:]
	}
	if path == "" {
		return "", fmt.Errorf("empty sqlite path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path), nil
}
