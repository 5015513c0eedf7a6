package middlewares

import (
	"bytes"
	"io"
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
)

const DefaultMaxBodyBytes int64 = 1_000_000

// SizeGuard buffers POST/PUT/PATCH bodies up to limit bytes. Anything larger
// is answered with 413 before the next handler runs; otherwise the next
// handler sees an identical body.
func SizeGuard(limit int64) Middleware {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				apperr.Write(w, r, apperr.PayloadTooLarge())
				return
			}
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
			_ = r.Body.Close()
			if err != nil {
				apperr.Write(w, r, apperr.Domain("could not read request body"))
				return
			}
			if int64(len(buf)) > limit {
				apperr.Write(w, r, apperr.PayloadTooLarge())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(buf))
			r.ContentLength = int64(len(buf))
			next.ServeHTTP(w, r)
		})
	}
}
