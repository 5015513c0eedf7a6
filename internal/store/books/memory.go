package books

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/5w1tchy/reading-list/internal/models"
	"golang.org/x/text/cases"
)

// Memory keeps books in insertion order behind a single RWMutex.
type Memory struct {
	mu     sync.RWMutex
	books  []models.Book
	nextID int64
	now    func() time.Time
}

type MemoryOption func(*Memory)

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) List(_ context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.books), nil
}

func (m *Memory) Get(_ context.Context, id int64) (models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return models.Book{}, ErrNotFound
	}
	return clone(m.books[i]), nil
}

func (m *Memory) Create(_ context.Context, nb NewBook) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	b := models.Book{
		ID:          m.nextID,
		Title:       nb.Title,
		Author:      nb.Author,
		Description: copyStr(nb.Description),
		Status:      models.StatusToRead,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	m.nextID++
	m.books = append(m.books, b)
	return clone(b), nil
}

func (m *Memory) Update(_ context.Context, id int64, p Patch) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return models.Book{}, ErrNotFound
	}
	b := &m.books[i]
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = copyStr(p.Description)
	}
	b.UpdatedAt = m.now()
	return clone(*b), nil
}

func (m *Memory) UpdateStatus(_ context.Context, id int64, to models.Status) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return models.Book{}, ErrNotFound
	}
	b := &m.books[i]
	if err := models.ValidateTransition(b.Status, to); err != nil {
		return models.Book{}, err
	}
	b.Status = to
	b.UpdatedAt = m.now()
	return clone(*b), nil
}

func (m *Memory) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.books = append(m.books[:i], m.books[i+1:]...)
	return true, nil
}

func (m *Memory) Search(_ context.Context, q string) ([]models.Book, error) {
	fold := cases.Fold()
	needle := fold.String(q)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Book, 0)
	for _, b := range m.books {
		if strings.Contains(fold.String(b.Title), needle) || strings.Contains(fold.String(b.Author), needle) {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// indexOf expects m.mu to be held.
func (m *Memory) indexOf(id int64) int {
	for i := range m.books {
		if m.books[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(b models.Book) models.Book {
	b.Description = copyStr(b.Description)
	return b
}

func cloneAll(in []models.Book) []models.Book {
	out := make([]models.Book, len(in))
	for i, b := range in {
		out[i] = clone(b)
	}
	return out
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
