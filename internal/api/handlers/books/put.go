package books

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
	"github.com/5w1tchy/reading-list/internal/models"
	storebooks "github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/5w1tchy/reading-list/internal/validate"
)

// putReq carries only the editable fields; id, status and timestamps in
// the body are ignored.
type putReq struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var body putReq
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return err
	}

	var p storebooks.Patch
	if p.Title, err = validate.OptionalBounded("title", body.Title, 1, models.MaxTitleLen); err != nil {
		return apperr.Validation(err.Error())
	}
	if p.Author, err = validate.OptionalBounded("author", body.Author, 1, models.MaxAuthorLen); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := validate.MaxLen("description", body.Description, models.MaxDescriptionLen); err != nil {
		return apperr.Validation(err.Error())
	}
	p.Description = body.Description

	b, err := h.store.Update(r.Context(), id, p)
	if err != nil {
		return storeErr(err)
	}
	httpx.OK(w, b)
	return nil
}
