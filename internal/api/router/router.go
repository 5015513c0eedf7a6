package router

import (
	"log/slog"
	"net/http"

	"github.com/5w1tchy/reading-list/internal/api/handlers"
	"github.com/5w1tchy/reading-list/internal/api/handlers/books"
	"github.com/5w1tchy/reading-list/internal/api/middlewares"
	"github.com/5w1tchy/reading-list/internal/ratelimit"
	storebooks "github.com/5w1tchy/reading-list/internal/store/books"
)

type Options struct {
	Store        storebooks.Store
	Limiter      ratelimit.Store
	Logger       *slog.Logger
	MaxBodyBytes int64
	TrustProxy   bool
	CORSOrigins  []string
	StrictSec    bool
}

func Router(store storebooks.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health)
	books.New(store).Register(mux)

	// everything else
	mux.HandleFunc("/", handlers.NotFound)

	return mux
}

// New builds the full request pipeline:
// RequestID, AccessLog, SecurityHeaders, CORS, HPP, SizeGuard, RateLimit,
// Recovery, then the routes.
func New(opts Options) http.Handler {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemoryStore(ratelimit.DefaultRule())
	}
	rl := middlewares.NewRateLimiter(limiter, middlewares.PerIPKey(opts.TrustProxy), opts.Logger)

	return middlewares.Chain(Router(opts.Store),
		middlewares.RequestID,
		middlewares.AccessLog(opts.Logger),
		middlewares.SecurityHeaders(opts.StrictSec),
		middlewares.CORS(opts.CORSOrigins),
		middlewares.HPP(middlewares.DefaultHPPOptions()),
		middlewares.SizeGuard(opts.MaxBodyBytes),
		rl.Middleware,
		middlewares.Recovery(opts.Logger),
	)
}
