package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlreadyKyle/layer-playable-ads/internal/http/handlers"
	"github.com/AlreadyKyle/layer-playable-ads/internal/middleware"
)

// NewRouter wires the API surface. Build endpoints sit behind the rate
// limiter because each build burns generation credits.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.Log),
		middleware.CORS(app.Cfg.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/mechanics", app.ListMechanics)
	r.Get("/v1/networks", app.ListNetworks)
	r.Get("/v1/workspace/credits", app.WorkspaceCredits)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))
		r.Post("/v1/analyze", app.Analyze)
		r.Post("/v1/builds", app.CreateBuild)
		r.Post("/v1/builds/demo", app.CreateDemoBuild)
	})

	return r
}
