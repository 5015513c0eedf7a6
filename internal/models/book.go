package models

import "time"

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Field limits, counted in runes.
const (
	MaxTitleLen       = 200
	MaxAuthorLen      = 100
	MaxDescriptionLen = 500
)
