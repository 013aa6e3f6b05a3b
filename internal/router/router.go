package router

import (
	"net/http"

	"stockex-offline-sync/internal/handler"
	"stockex-offline-sync/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	InventoryHandler *handler.InventoryHandler
	ProductHandler   *handler.ProductHandler
	SyncHandler      *handler.SyncHandler
	PlatformHandler  *handler.PlatformHandler
	AdminHandler     *handler.AdminHandler
	Events           http.HandlerFunc
	Proxy            http.Handler
	AuthMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Inventory session endpoints
			if cfg.InventoryHandler != nil {
				r.Route("/inventories", func(r chi.Router) {
					r.Post("/", cfg.InventoryHandler.Start)
					r.Get("/pending", cfg.InventoryHandler.Pending)
					r.Get("/current", cfg.InventoryHandler.Current)
					r.Delete("/current", cfg.InventoryHandler.Close)
					r.Post("/current/lines", cfg.InventoryHandler.AddLine)
				})
			}

			// Product and scan endpoints
			if cfg.ProductHandler != nil {
				r.Get("/products/{barcode}", cfg.ProductHandler.Search)
				r.Post("/scan", cfg.ProductHandler.Scan)
			}

			// Sync endpoints
			if cfg.SyncHandler != nil {
				r.Post("/sync", cfg.SyncHandler.SyncNow)
				r.Post("/connectivity", cfg.SyncHandler.SetConnectivity)
			}

			// Platform signals for the cache layer
			if cfg.PlatformHandler != nil {
				r.Route("/platform", func(r chi.Router) {
					r.Post("/sync", cfg.PlatformHandler.BackgroundSync)
					r.Post("/message", cfg.PlatformHandler.Message)
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
			}

			// Notification stream
			if cfg.Events != nil {
				r.Get("/events", cfg.Events)
			}
		})
	})

	// Everything else is the operator UI, served through the cache layer
	if cfg.Proxy != nil {
		r.Handle("/*", cfg.Proxy)
	}

	return r
}
