// Package books holds the persistence contract for reading-list records and
// its in-memory and relational implementations.
package books

import (
	"context"
	"errors"

	"github.com/5w1tchy/reading-list/internal/models"
)

var ErrNotFound = errors.New("book not found")

type NewBook struct {
	Title       string
	Author      string
	Description *string
}

// Patch carries the free-form fields an update may touch. Nil means
// "leave as is". Identifier, status and timestamps are not patchable.
type Patch struct {
	Title       *string
	Author      *string
	Description *string
}

// Store is implemented by every backend. Business logic never asks which
// one it has.
type Store interface {
	List(ctx context.Context) ([]models.Book, error)
	Get(ctx context.Context, id int64) (models.Book, error)
	Create(ctx context.Context, nb NewBook) (models.Book, error)
	Update(ctx context.Context, id int64, p Patch) (models.Book, error)
	// UpdateStatus applies models.ValidateTransition atomically with the write.
	UpdateStatus(ctx context.Context, id int64, to models.Status) (models.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, q string) ([]models.Book, error)
	Close() error
}
