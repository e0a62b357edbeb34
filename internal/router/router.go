// Package router wires the HTTP routes and server-wide middleware.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appLogger "github.com/FACorreiaa/catalog-api/app/logger"
	appMiddleware "github.com/FACorreiaa/catalog-api/app/middleware"
	"github.com/FACorreiaa/catalog-api/internal/api/auth"
	"github.com/FACorreiaa/catalog-api/internal/api/catalog"
	"github.com/FACorreiaa/catalog-api/internal/api/tickets"

	_ "github.com/FACorreiaa/catalog-api/docs"
)

const defaultLoginRatePerMinute = 20

// Config contains dependencies needed for the router setup
type Config struct {
	Logger                 *slog.Logger
	AuthHandler            *auth.AuthHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	CatalogHandler         catalog.Handler
	TicketHandler          tickets.Handler
	// HTTPMetrics is optional.
	HTTPMetrics        *appMiddleware.HTTPMetrics
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	LoginRatePerMinute int
}

// New returns the root handler: server-wide middleware around SetupRouter.
func New(cfg *Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(cfg.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics.Middleware)
	}
	router.Use(middleware.Timeout(timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", SetupRouter(cfg))
	return router
}

// SetupRouter declares the API routes.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusTemporaryRedirect)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	rate := cfg.LoginRatePerMinute
	if rate <= 0 {
		rate = defaultLoginRatePerMinute
	}

	// Public auth routes
	r.Post("/auth/register", cfg.AuthHandler.Register)
	r.With(httprate.LimitByIP(rate, time.Minute)).Post("/auth/token", cfg.AuthHandler.Token)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Get("/auth/me", cfg.AuthHandler.Me)

		r.Get("/brands", cfg.CatalogHandler.ListBrandsHandler)
		r.Post("/brands", cfg.CatalogHandler.CreateBrandHandler)
		r.Get("/merchant", cfg.CatalogHandler.ListMerchantsHandler)
		r.Post("/merchant", cfg.CatalogHandler.CreateMerchantHandler)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", cfg.TicketHandler.CreateTicketsHandler)
			r.Get("/", cfg.TicketHandler.ListTicketsHandler)
			r.Get("/{id}", cfg.TicketHandler.GetTicketHandler)
			r.Put("/{id}", cfg.TicketHandler.UpdateTicketHandler)
			r.Patch("/{id}/close", cfg.TicketHandler.CloseTicketHandler)
		})
	})

	return r
}
