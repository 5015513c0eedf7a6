package middlewares

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/ratelimit"
	"golang.org/x/time/rate"
)

// --------- Key helpers ---------

type KeyFunc func(r *http.Request) string

// PerIPKey keys windows by client address. Forwarding headers are honoured
// only behind a trusted proxy.
func PerIPKey(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		ip := clientIP(r, trustProxy)
		if ip == "" {
			ip = "unknown"
		}
		return ip
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// X-Forwarded-For may have a list: client, proxy1, proxy2...
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			return xrip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// --------- Sliding window ---------

type RateLimiter struct {
	store  ratelimit.Store
	keyFn  KeyFunc
	logger *slog.Logger

	blockedLog rate.Sometimes
	errLog     rate.Sometimes
}

func NewRateLimiter(store ratelimit.Store, keyFn KeyFunc, logger *slog.Logger) *RateLimiter {
	if keyFn == nil {
		keyFn = PerIPKey(false)
	}
	return &RateLimiter{
		store:      store,
		keyFn:      keyFn,
		logger:     loggerOr(logger),
		blockedLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
		errLog:     rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFn(r)
		d, err := rl.store.Allow(r.Context(), key, ratelimit.Event{Method: r.Method, Path: r.URL.Path})
		if err != nil {
			rl.errLog.Do(func() {
				rl.logger.Warn("rate limiter unavailable, allowing request", "err", err)
			})
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Policy", "sliding-window")
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, d.Remaining)))

		if !d.Allowed {
			sec := d.RetryAfterSeconds()
			h.Set("Retry-After", strconv.FormatInt(sec, 10))
			rl.blockedLog.Do(func() {
				rl.logger.Info("rate limited",
					"key", key,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after_s", sec,
				)
			})
			apperr.Write(w, r, apperr.RateLimited())
			return
		}

		next.ServeHTTP(w, r)
	})
}
