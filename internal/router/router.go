package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"outfit-db-api/internal/handler"
	"outfit-db-api/internal/middleware"
	"outfit-db-api/pkg/apierror"
	"outfit-db-api/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	OutfitHandler  *handler.OutfitHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	RateLimit      func(http.Handler) http.Handler
	AllowedOrigins []string
	MaxBodyBytes   int64
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
	Logger     *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(logger))
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(logger))
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodyBytes))
	}

	notFound := func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("Endpoint not found"))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
	}

	// AUTHENTICATED routes (Group applies auth only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.OutfitHandler != nil {
			r.Post("/api/GetOutfitDetails", cfg.OutfitHandler.GetOutfitDetails)
			r.Post("/api/SearchOutfitsAsync", cfg.OutfitHandler.SearchOutfitsAsync)
			r.Post("/api/UploadOutfit", cfg.OutfitHandler.UploadOutfit)
			r.Post("/api/IncrementViews", cfg.OutfitHandler.IncrementViews)
			r.Post("/api/IncrementFavourites", cfg.OutfitHandler.IncrementFavourites)
		}

		if cfg.AdminHandler != nil {
			r.Get("/api/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
