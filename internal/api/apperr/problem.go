package apperr

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	typeBase       = "https://api.readinglist.com/errors/"
	internalDetail = "An internal server error occurred"
	timestampFmt   = "2006-01-02T15:04:05Z"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Problem is the RFC 7807 body every failed request gets. All seven
// fields are always present.
type Problem struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	Instance      string `json:"instance"`
	CorrelationID string `json:"correlation_id"`
	Timestamp     string `json:"timestamp"`
}

type category struct{ title, suffix string }

var categories = map[int]category{
	http.StatusBadRequest:            {"Bad Request", "bad-request"},
	http.StatusNotFound:              {"Not Found", "not-found"},
	http.StatusRequestEntityTooLarge: {"Payload Too Large", "payload-too-large"},
	http.StatusUnprocessableEntity:   {"Validation Error", "validation-error"},
	http.StatusTooManyRequests:       {"Too Many Requests", "too-many-requests"},
	http.StatusInternalServerError:   {"Internal Server Error", "internal-error"},
}

// Category returns the title and type URI for a status code.
func Category(status int) (title, typeURI string) {
	c, ok := categories[status]
	if !ok {
		return "Error", typeBase + "error"
	}
	return c.title, typeBase + c.suffix
}

var now = func() time.Time { return time.Now().UTC() }

// Build renders err as a Problem for request r with a fresh correlation id.
func Build(r *http.Request, err error) Problem {
	e := As(err)
	status := e.Kind.Status()
	title, typ := Category(status)
	detail := e.Detail
	if status >= http.StatusInternalServerError {
		detail = internalDetail
	}
	p := Problem{
		Type:          typ,
		Title:         title,
		Status:        status,
		Detail:        detail,
		CorrelationID: uuid.NewString(),
		Timestamp:     now().Format(timestampFmt),
	}
	if r != nil {
		p.Instance = r.URL.Path
	}
	return p
}

// Write is the single place errors are turned into responses.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	p := Build(r, err)
	audit(r, p, err)

	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Correlation-ID", p.CorrelationID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// --- audit ---

var auditLogger atomic.Pointer[slog.Logger]

// SetAuditLogger replaces the audit sink. Nil restores slog.Default.
func SetAuditLogger(l *slog.Logger) { auditLogger.Store(l) }

func auditLog() *slog.Logger {
	if l := auditLogger.Load(); l != nil {
		return l
	}
	return slog.Default().With("logger", "audit")
}

func audit(r *http.Request, p Problem, cause error) {
	attrs := []slog.Attr{
		slog.String("correlation_id", p.CorrelationID),
		slog.Int("status", p.Status),
		slog.String("error_type", p.Type),
	}
	if r != nil {
		attrs = append(attrs,
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("client_ip", remoteHost(r.RemoteAddr)),
		)
	}
	level := slog.LevelInfo
	if p.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if cause != nil {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}
	}
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	auditLog().LogAttrs(ctx, level, "AUDIT_ERROR", attrs...)
}

func remoteHost(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
