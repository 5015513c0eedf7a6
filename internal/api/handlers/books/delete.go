package books

import (
	"fmt"
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
)

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		return storeErr(err)
	}
	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		return err
	}
	// lost a race with another delete
	if !removed {
		return apperr.NotFound(detailNotFound)
	}
	httpx.OK(w, map[string]string{
		"message": fmt.Sprintf("Book '%s' deleted successfully", b.Title),
	})
	return nil
}
