package middlewares

import (
	"net/http"
	"slices"
)

// HPPOptions controls query-string parameter pollution filtering.
type HPPOptions struct {
	// Whitelist lists the parameters that survive; everything else is dropped.
	Whitelist []string
}

func DefaultHPPOptions() HPPOptions {
	return HPPOptions{Whitelist: []string{"q"}}
}

// HPP keeps only the first value of each whitelisted query parameter, so
// ?q=a&q=b is seen downstream as ?q=a.
func HPP(opts HPPOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				filterQueryParams(r, opts.Whitelist)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func filterQueryParams(r *http.Request, whitelist []string) {
	query := r.URL.Query()
	for k, v := range query {
		if !slices.Contains(whitelist, k) {
			query.Del(k)
			continue
		}
		if len(v) > 1 {
			query.Set(k, v[0])
		}
	}
	r.URL.RawQuery = query.Encode()
}
