package books

import (
	"net/http"
	"strings"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
	"github.com/5w1tchy/reading-list/internal/models"
)

var statusChoices = "status must be one of: " + joinStatuses()

func joinStatuses() string {
	names := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

type statusReq struct {
	Status *string `json:"status"`
}

// updateStatus checks existence first, then the payload, then the
// transition: 404 before 422 before 400.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if _, err := h.store.Get(r.Context(), id); err != nil {
		return storeErr(err)
	}

	var body statusReq
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return err
	}
	if body.Status == nil {
		return apperr.Validation("status is required")
	}
	to, err := models.ParseStatus(*body.Status)
	if err != nil {
		return apperr.Validation(statusChoices)
	}

	b, err := h.store.UpdateStatus(r.Context(), id, to)
	if err != nil {
		return storeErr(err)
	}
	httpx.OK(w, b)
	return nil
}
