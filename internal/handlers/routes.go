package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"

	_ "github.com/dowstats/ladder-api/internal/docs"
)

// RequestTimeout bounds every request except replay streaming
const RequestTimeout = 60 * time.Second

// Router builds the HTTP routes of the service
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/doc.json", h.SwaggerDoc)

	r.Route("/api", func(r chi.Router) {
		r.Route("/client", func(r chi.Router) {
			r.Use(h.SecretAuthMiddleware)
			r.Use(middleware.Timeout(RequestTimeout))
			r.Get("/send-replay5", h.SendReport)
			r.Post("/send-replay5", h.SendReplay)
			r.Get("/stats5", h.GetClientStats)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(RequestTimeout))
				r.Get("/ladder", h.GetLadder)
				r.Get("/battles", h.GetBattles)
				r.Get("/players/{id}", h.GetPlayer)
				r.Get("/mods", h.GetMods)
				r.Get("/seasons", h.GetSeasons)
				r.Get("/servers", h.GetServers)
				r.Get("/replays/{key}/url", h.GetReplayURL)
			})
			r.Get("/replays/{key}", h.GetReplay)

			r.Group(func(r chi.Router) {
				r.Use(h.SecretAuthMiddleware)
				r.Post("/replays/upload", h.UploadReplay)
				r.Delete("/replays/{key}", h.DeleteReplay)
				r.Post("/system/install", h.InstallDatabase)
			})
		})
	})

	return r
}

// SwaggerDoc serves the registered OpenAPI document
func (h *Handler) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		h.errorResponse(w, http.StatusNotFound, "API documentation is not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
