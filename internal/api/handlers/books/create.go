package books

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
	"github.com/5w1tchy/reading-list/internal/models"
	storebooks "github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/5w1tchy/reading-list/internal/validate"
)

type createReq struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description *string `json:"description"`
}

// NewBookFrom validates raw input the same way for the API and the importer.
func NewBookFrom(title, author string, description *string) (storebooks.NewBook, error) {
	t, err := validate.RequireBounded("title", title, 1, models.MaxTitleLen)
	if err != nil {
		return storebooks.NewBook{}, apperr.Validation(err.Error())
	}
	a, err := validate.RequireBounded("author", author, 1, models.MaxAuthorLen)
	if err != nil {
		return storebooks.NewBook{}, apperr.Validation(err.Error())
	}
	if err := validate.MaxLen("description", description, models.MaxDescriptionLen); err != nil {
		return storebooks.NewBook{}, apperr.Validation(err.Error())
	}
	return storebooks.NewBook{Title: t, Author: a, Description: description}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) error {
	var body createReq
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return err
	}
	nb, err := NewBookFrom(body.Title, body.Author, body.Description)
	if err != nil {
		return err
	}
	b, err := h.store.Create(r.Context(), nb)
	if err != nil {
		return storeErr(err)
	}
	httpx.OK(w, b)
	return nil
}
