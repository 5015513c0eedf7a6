package apperr

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestWrite_CategoryTable(t *testing.T) {
	tests := []struct {
		err    error
		status int
		title  string
		suffix string
	}{
		{Domain("invalid status transition"), 400, "Bad Request", "bad-request"},
		{NotFound("Book not found"), 404, "Not Found", "not-found"},
		{PayloadTooLarge(), 413, "Payload Too Large", "payload-too-large"},
		{Validation("title is required"), 422, "Validation Error", "validation-error"},
		{RateLimited(), 429, "Too Many Requests", "too-many-requests"},
		{errors.New("boom"), 500, "Internal Server Error", "internal-error"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/books/7", nil)
		rec := httptest.NewRecorder()
		Write(rec, req, tt.err)

		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		m := decode(t, rec.Body.Bytes())
		assert.Len(t, m, 7)
		for _, k := range []string{"type", "title", "status", "detail", "instance", "correlation_id", "timestamp"} {
			assert.Contains(t, m, k)
		}
		assert.Equal(t, tt.title, m["title"])
		assert.Equal(t, typeBase+tt.suffix, m["type"])
		assert.EqualValues(t, tt.status, m["status"])
		assert.Equal(t, "/api/v1/books/7", m["instance"])
		assert.Len(t, m["correlation_id"], 36)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, m["timestamp"])
		assert.Equal(t, m["correlation_id"], rec.Header().Get("X-Correlation-ID"))
	}
}

func TestWrite_InternalNeverLeaksCause(t *testing.T) {
	cause := fmt.Errorf("query SELECT * FROM books failed at /srv/app/store.go:42: %w", errors.New("pq: relation missing"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	rec := httptest.NewRecorder()

	Write(rec, req, Internal(cause))

	body := rec.Body.String()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body, "SELECT")
	assert.NotContains(t, body, "store.go")
	assert.NotContains(t, body, "Traceback")
	assert.Equal(t, internalDetail, decode(t, rec.Body.Bytes())["detail"])
}

func TestWrite_FreshCorrelationIDEachTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "upstream-id")
	a, b := httptest.NewRecorder(), httptest.NewRecorder()
	Write(a, req, NotFound("nope"))
	Write(b, req, NotFound("nope"))

	ida := decode(t, a.Body.Bytes())["correlation_id"]
	idb := decode(t, b.Body.Bytes())["correlation_id"]
	assert.NotEqual(t, "upstream-id", ida)
	assert.NotEqual(t, ida, idb)
}

func TestWrite_AuditRecordLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	SetAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetAuditLogger(nil) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books?x=1", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	Write(rec, req, Validation("title is required"))

	logged := decode(t, buf.Bytes())
	assert.Equal(t, "AUDIT_ERROR", logged["msg"])
	assert.Equal(t, "POST", logged["method"])
	assert.Equal(t, "203.0.113.9", logged["client_ip"])
	assert.EqualValues(t, 422, logged["status"])
	assert.Equal(t, typeBase+"validation-error", logged["error_type"])
	assert.Equal(t, decode(t, rec.Body.Bytes())["correlation_id"], logged["correlation_id"])
	assert.True(t, strings.HasSuffix(logged["url"].(string), "/api/v1/books?x=1"))

	assert.NotContains(t, rec.Body.String(), "client_ip")
}

func TestCategory_UnknownFallsBack(t *testing.T) {
	title, typ := Category(http.StatusTeapot)
	assert.Equal(t, "Error", title)
	assert.Equal(t, typeBase+"error", typ)
}

func TestFromPG(t *testing.T) {
	e, ok := FromPG(&pgconn.PgError{Code: "22001", ColumnName: "title"})
	require.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "title is too long", e.Detail)

	_, ok = FromPG(&pgconn.PgError{Code: "40001"})
	assert.False(t, ok)

	_, ok = FromPG(errors.New("plain"))
	assert.False(t, ok)

	// wrapped PG errors still classify through As
	wrapped := fmt.Errorf("update: %w", &pgconn.PgError{Code: "23514", ConstraintName: "books_status_check"})
	assert.Equal(t, http.StatusUnprocessableEntity, As(wrapped).Kind.Status())
}
