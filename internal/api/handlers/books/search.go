package books

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
	"github.com/5w1tchy/reading-list/internal/validate"
)

func (h *Handler) search(w http.ResponseWriter, r *http.Request) error {
	q, err := validate.SearchQuery(r.URL.Query().Get("q"), MaxSearchLen)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	books, err := h.store.Search(r.Context(), q)
	if err != nil {
		return err
	}
	httpx.OK(w, books)
	return nil
}
