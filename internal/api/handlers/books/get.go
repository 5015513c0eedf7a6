package books

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/httpx"
)

func (h *Handler) get(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		return storeErr(err)
	}
	httpx.OK(w, b)
	return nil
}
