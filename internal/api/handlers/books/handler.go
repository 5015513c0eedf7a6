// Package books serves the /api/v1/books resource.
package books

import (
	"errors"
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
	"github.com/5w1tchy/reading-list/internal/models"
	storebooks "github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/5w1tchy/reading-list/internal/validate"
)

const (
	MaxSearchLen = 200

	detailNotFound = "Book not found"
)

type Handler struct {
	store storebooks.Store
}

func New(store storebooks.Store) *Handler {
	return &Handler{store: store}
}

// Register mounts every books route. The trailing-slash forms of the
// collection routes are accepted as aliases.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/books", httpx.HandlerFunc(h.list))
	mux.Handle("GET /api/v1/books/{$}", httpx.HandlerFunc(h.list))
	mux.Handle("POST /api/v1/books", httpx.HandlerFunc(h.create))
	mux.Handle("POST /api/v1/books/{$}", httpx.HandlerFunc(h.create))
	mux.Handle("GET /api/v1/books/search", httpx.HandlerFunc(h.search))
	mux.Handle("GET /api/v1/books/{id}", httpx.HandlerFunc(h.get))
	mux.Handle("PUT /api/v1/books/{id}", httpx.HandlerFunc(h.put))
	mux.Handle("PATCH /api/v1/books/{id}/status", httpx.HandlerFunc(h.updateStatus))
	mux.Handle("DELETE /api/v1/books/{id}", httpx.HandlerFunc(h.delete))
}

func pathID(r *http.Request) (int64, error) {
	id, err := validate.ParseID(r.PathValue("id"))
	if err != nil {
		return 0, apperr.Validation(err.Error())
	}
	return id, nil
}

// storeErr translates store sentinels into API errors; anything else is
// passed through for apperr to classify.
func storeErr(err error) error {
	switch {
	case errors.Is(err, storebooks.ErrNotFound):
		return apperr.NotFound(detailNotFound)
	case errors.Is(err, models.ErrInvalidTransition):
		return apperr.Domain(models.ErrInvalidTransition.Error())
	case errors.Is(err, models.ErrUnknownStatus):
		return apperr.Validation(err.Error())
	}
	return err
}
