package httpapi

import (
	"net/http"
	"time"

	"mrwiat/internal/http/handlers"
	"mrwiat/internal/infra"
	mw "mrwiat/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Logger          infra.Logger
	Auth            mw.AuthConfig
	AllowedOrigins  []string
	RedeemPerMinute int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		mw.Logger(opts.Logger),
		mw.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(opts.Auth))

		r.Get("/v1/pricing", app.Pricing)
		r.Get("/v1/wallet", app.WalletBalance)
		r.With(redeemLimit(opts.RedeemPerMinute)).Post("/v1/wallet/redeem", app.WalletRedeem)

		r.Route("/v1/videos", func(r chi.Router) {
			r.Post("/", app.VideosGenerate)
			r.Get("/{job_id}", app.VideoStatus)
		})
	})

	return r
}

func redeemLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw.RateLimit(perMinute, time.Minute)
}
