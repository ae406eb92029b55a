package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/config"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/handler/ask"
	organHandler "github.com/zhouzirui/anatomy-explorer/backend/internal/handler/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/anatomy-explorer/backend/internal/middleware"
	organModel "github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/relay"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/synth"
	"github.com/zhouzirui/anatomy-explorer/backend/pkg/utils"
)

// Deps are the services the router exposes. Sounds and Metrics may be nil.
type Deps struct {
	Organs  organModel.Store
	Relay   *relay.Relay
	Sounds  *synth.Synthesizer
	Metrics *metrics.Metrics
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, deps Deps) http.Handler {
	origins := middlewarePkg.SplitOrigins(cfg.FrontendOrigin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.SecureHeaders)
	r.Use(middlewarePkg.CORS(origins...))
	// event streams are left uncompressed so every frame reaches the client immediately
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	var sounds organHandler.Renderer
	if deps.Sounds != nil {
		sounds = deps.Sounds
	}
	organs := organHandler.New(deps.Organs, sounds)
	askHandler := ask.New(deps.Relay, origins)

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			api.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					utils.RespondError(w, http.StatusTooManyRequests, "Too many requests, please slow down.")
				}),
			))
		}
		api.Use(middlewarePkg.MaxBody(cfg.MaxBodyBytes))

		organs.RegisterRoutes(api)
		askHandler.RegisterRoutes(api)
	})

	return r
}
