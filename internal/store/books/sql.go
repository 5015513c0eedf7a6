package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/5w1tchy/reading-list/internal/models"
	"github.com/5w1tchy/reading-list/internal/store/dbx"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
)

const (
	tableBooks = "books"

	colID          = "id"
	colTitle       = "title"
	colAuthor      = "author"
	colDescription = "description"
	colStatus      = "status"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"

	// lowered column LIKE lowered, escaped pattern
	likeFolded = `LOWER(?) LIKE ? ESCAPE '\'`

	statusRetries = 3
)

var selectCols = []any{colID, colTitle, colAuthor, colDescription, colStatus, colCreatedAt, colUpdatedAt}

var errStatusRaced = errors.New("status changed concurrently")

type bookRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Author      string         `db:"author"`
	Description sql.NullString `db:"description"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r bookRow) model() models.Book {
	b := models.Book{
		ID:        r.ID,
		Title:     r.Title,
		Author:    r.Author,
		Status:    models.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Description.Valid {
		d := r.Description.String
		b.Description = &d
	}
	return b
}

// SQL is the relational backend. Queries are built with goqu in prepared
// mode, so every user value travels as a bind parameter.
type SQL struct {
	db      *sqlx.DB
	dialect Dialect
	qb      goqu.DialectWrapper
	now     func() time.Time
}

type SQLOption func(*SQL)

func WithSQLClock(now func() time.Time) SQLOption {
	return func(s *SQL) { s.now = now }
}

// NewSQL wraps an open *sql.DB. driverName is the database/sql driver name
// ("pgx" or "sqlite3").
func NewSQL(db *sql.DB, driverName string, opts ...SQLOption) (*SQL, error) {
	d, err := DialectFor(driverName)
	if err != nil {
		return nil, err
	}
	s := &SQL{
		db:      sqlx.NewDb(db, driverName),
		dialect: d,
		qb:      goqu.Dialect(d.goqu()),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQL) stamp() time.Time { return s.now().UTC().Truncate(time.Microsecond) }

func (s *SQL) List(ctx context.Context) ([]models.Book, error) {
	q, args, err := s.qb.From(tableBooks).Prepared(true).
		Select(selectCols...).
		Order(goqu.C(colID).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	return s.selectBooks(ctx, q, args)
}

func (s *SQL) Get(ctx context.Context, id int64) (models.Book, error) {
	return s.get(ctx, s.db, id)
}

func (s *SQL) get(ctx context.Context, q sqlx.QueryerContext, id int64) (models.Book, error) {
	query, args, err := s.qb.From(tableBooks).Prepared(true).
		Select(selectCols...).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return models.Book{}, fmt.Errorf("build get: %w", err)
	}
	var r bookRow
	if err := sqlx.GetContext(ctx, q, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Book{}, ErrNotFound
		}
		return models.Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return r.model(), nil
}

func (s *SQL) Create(ctx context.Context, nb NewBook) (models.Book, error) {
	ts := s.stamp()
	rec := goqu.Record{
		colTitle:       nb.Title,
		colAuthor:      nb.Author,
		colDescription: nullable(nb.Description),
		colStatus:      string(models.StatusToRead),
		colCreatedAt:   ts,
		colUpdatedAt:   ts,
	}
	ins := s.qb.Insert(tableBooks).Prepared(true).Rows(rec)

	var id int64
	if s.dialect.SupportsReturning() {
		q, args, err := ins.Returning(goqu.C(colID)).ToSQL()
		if err != nil {
			return models.Book{}, fmt.Errorf("build insert: %w", err)
		}
		if err := s.db.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
			return models.Book{}, fmt.Errorf("insert book: %w", err)
		}
	} else {
		q, args, err := ins.ToSQL()
		if err != nil {
			return models.Book{}, fmt.Errorf("build insert: %w", err)
		}
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return models.Book{}, fmt.Errorf("insert book: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return models.Book{}, fmt.Errorf("insert book id: %w", err)
		}
	}

	return models.Book{
		ID:          id,
		Title:       nb.Title,
		Author:      nb.Author,
		Description: copyStr(nb.Description),
		Status:      models.StatusToRead,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

func (s *SQL) Update(ctx context.Context, id int64, p Patch) (models.Book, error) {
	rec := goqu.Record{colUpdatedAt: s.stamp()}
	if p.Title != nil {
		rec[colTitle] = *p.Title
	}
	if p.Author != nil {
		rec[colAuthor] = *p.Author
	}
	if p.Description != nil {
		rec[colDescription] = *p.Description
	}
	q, args, err := s.qb.Update(tableBooks).Prepared(true).
		Set(rec).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return models.Book{}, fmt.Errorf("build update: %w", err)
	}
	n, err := execAffected(ctx, s.db, q, args)
	if err != nil {
		return models.Book{}, fmt.Errorf("update book %d: %w", id, err)
	}
	if n == 0 {
		return models.Book{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQL) UpdateStatus(ctx context.Context, id int64, to models.Status) (models.Book, error) {
	for attempt := 0; attempt < statusRetries; attempt++ {
		err := dbx.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
			cur, err := s.get(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := models.ValidateTransition(cur.Status, to); err != nil {
				return err
			}
			q, args, err := s.qb.Update(tableBooks).Prepared(true).
				Set(goqu.Record{colStatus: string(to), colUpdatedAt: s.stamp()}).
				Where(goqu.C(colID).Eq(id), goqu.C(colStatus).Eq(string(cur.Status))).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build status update: %w", err)
			}
			n, err := execAffected(ctx, tx, q, args)
			if err != nil {
				return fmt.Errorf("update status %d: %w", id, err)
			}
			if n == 0 {
				return errStatusRaced
			}
			return nil
		})
		if errors.Is(err, errStatusRaced) {
			continue
		}
		if err != nil {
			return models.Book{}, err
		}
		return s.Get(ctx, id)
	}
	return models.Book{}, fmt.Errorf("update status %d: %w", id, errStatusRaced)
}

func (s *SQL) Delete(ctx context.Context, id int64) (bool, error) {
	q, args, err := s.qb.Delete(tableBooks).Prepared(true).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}
	n, err := execAffected(ctx, s.db, q, args)
	if err != nil {
		return false, fmt.Errorf("delete book %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQL) Search(ctx context.Context, query string) ([]models.Book, error) {
	pattern := "%" + EscapeLike(strings.ToLower(query)) + "%"
	q, args, err := s.qb.From(tableBooks).Prepared(true).
		Select(selectCols...).
		Where(goqu.Or(
			goqu.L(likeFolded, goqu.C(colTitle), pattern),
			goqu.L(likeFolded, goqu.C(colAuthor), pattern),
		)).
		Order(goqu.C(colID).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build search: %w", err)
	}
	return s.selectBooks(ctx, q, args)
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) selectBooks(ctx context.Context, q string, args []any) ([]models.Book, error) {
	var rows []bookRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	out := make([]models.Book, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// EscapeLike neutralises LIKE metacharacters so the query matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func execAffected(ctx context.Context, e sqlx.ExecerContext, q string, args []any) (int64, error) {
	res, err := e.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
