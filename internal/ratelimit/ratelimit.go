// Package ratelimit implements the per-client sliding window used to throttle
// book creation and overall request volume.
package ratelimit

import (
	"context"
	"net/http"
	"time"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultScopedLimit = 10
	DefaultGlobalLimit = 1000
	DefaultScopedPath  = "/api/v1/books"
)

// Rule describes one sliding window with a scoped sub-limit.
type Rule struct {
	Window       time.Duration
	ScopedMethod string
	ScopedPath   string
	ScopedLimit  int
	GlobalLimit  int
}

func DefaultRule() Rule {
	return Rule{
		Window:       DefaultWindow,
		ScopedMethod: http.MethodPost,
		ScopedPath:   DefaultScopedPath,
		ScopedLimit:  DefaultScopedLimit,
		GlobalLimit:  DefaultGlobalLimit,
	}
}

// Scoped reports whether a request counts against the scoped limit.
// The path must match exactly, with or without a trailing slash.
func (r Rule) Scoped(method, path string) bool {
	if method != r.ScopedMethod {
		return false
	}
	return path == r.ScopedPath || path == r.ScopedPath+"/"
}

// Event is one accepted request inside a window.
type Event struct {
	Method string
	Path   string
	At     time.Time
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Limit is the limit that applied: scoped for scoped requests, global otherwise.
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (d Decision) RetryAfterSeconds() int64 {
	sec := int64((d.RetryAfter + time.Second - 1) / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}

// Store records events per key and decides whether the next one fits.
// Rejected requests are never recorded.
type Store interface {
	Allow(ctx context.Context, key string, ev Event) (Decision, error)
}

// untilExpiry is how long an event stamped at oldest stays inside the window.
func untilExpiry(oldest, now time.Time, window time.Duration) time.Duration {
	return oldest.Add(window).Sub(now)
}
