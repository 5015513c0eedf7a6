package books

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/httpx"
)

func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	books, err := h.store.List(r.Context())
	if err != nil {
		return err
	}
	httpx.OK(w, books)
	return nil
}
