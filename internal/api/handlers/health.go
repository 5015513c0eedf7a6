package handlers

import (
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/httpx"
)

// Health reports liveness only. It never echoes configuration.
func Health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, map[string]string{"status": "ok"})
}

// NotFound renders unmatched routes as a problem.
func NotFound(w http.ResponseWriter, r *http.Request) {
	apperr.Write(w, r, apperr.NotFound("The requested resource was not found"))
}
