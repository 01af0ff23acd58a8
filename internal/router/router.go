package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"playermodels-api/internal/handler"
	"playermodels-api/internal/middleware"
)

// New assembles the HTTP routing tree. Health probes sit outside the
// authenticated group.
func New(
	health *handler.HealthHandler,
	models *handler.ModelsHandler,
	player *handler.PlayerHandler,
	admin *handler.AdminHandler,
	apiKeys []string,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/status", health.Status)
	r.Get("/ready", health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKeys))

		r.Route("/models", func(r chi.Router) {
			r.Get("/", models.List)
			r.Get("/{modelID}", models.Get)
		})

		r.Route("/players", func(r chi.Router) {
			r.Post("/batch-load", player.BatchLoad)

			r.Route("/{steamID}", func(r chi.Router) {
				r.Post("/purchase", player.Purchase)
				r.Post("/equip", player.Equip)
				r.Post("/unequip", player.Unequip)
				r.Post("/variants", player.SelectVariant)
				r.Get("/resolve", player.Resolve)
				r.Get("/owned", player.Owned)
				r.Get("/balance", player.Balance)
				r.Post("/join", player.Join)
				r.Post("/leave", player.Leave)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", admin.Stats)
			r.Get("/transactions", admin.Transactions)
			r.Post("/catalog/reload", admin.ReloadCatalog)

			r.Route("/players/{steamID}", func(r chi.Router) {
				r.Post("/credits", admin.AdjustCredits)
				r.Post("/grant", admin.Grant)
				r.Delete("/", admin.Wipe)
			})
		})
	})

	return r
}
