package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	database "github.com/FACorreiaa/catalog-api/app/db"
	appMiddleware "github.com/FACorreiaa/catalog-api/app/middleware"
	"github.com/FACorreiaa/catalog-api/app/observability/metrics"
	"github.com/FACorreiaa/catalog-api/config"
	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/api/auth"
	"github.com/FACorreiaa/catalog-api/internal/api/catalog"
	"github.com/FACorreiaa/catalog-api/internal/api/tickets"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
	"github.com/FACorreiaa/catalog-api/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Store          docstore.Store
	Metrics        *metrics.AppMetrics
	AuthService    *auth.AuthServiceImpl
	AuthHandler    *auth.AuthHandler
	CatalogEngine  *catalog.Engine
	CatalogHandler *catalog.HandlerImpl
	TicketHandler  *tickets.HandlerImpl
	HTTPMetrics    *appMiddleware.HTTPMetrics
}

// NewStore opens the configured document store. For postgres it waits for
// the database and applies migrations first.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, *pgxpool.Pool, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory document store; data is lost on exit")
		return docstore.NewMemoryStore(docstore.DefaultUniqueIndexes...), nil, nil
	case config.StoreDriverPostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, nil, err
	}
	if err := database.WaitForDB(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return docstore.NewPostgresStore(pool), pool, nil
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Container, error) {
	store, pool, err := NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c, err := NewWithStore(cfg, store, reg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	c.Pool = pool
	return c, nil
}

// NewWithStore builds every service and handler on top of an open store.
// reg may be nil to skip HTTP request metrics.
func NewWithStore(cfg *config.Config, store docstore.Store, reg prometheus.Registerer, logger *slog.Logger) (*Container, error) {
	appMetrics, err := metrics.New()
	if err != nil {
		return nil, err
	}

	var httpMetrics *appMiddleware.HTTPMetrics
	if reg != nil {
		if httpMetrics, err = appMiddleware.NewHTTPMetrics(reg); err != nil {
			return nil, err
		}
	}

	tokens, err := auth.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	if err != nil {
		return nil, err
	}

	authRepo := auth.NewAuthRepoFactory(store, logger)
	authService, err := auth.NewAuthService(
		authRepo,
		auth.NewBcryptHasher(cfg.Password.BcryptCost),
		auth.PasswordPolicy{MinLength: cfg.Password.MinLength},
		tokens,
		cfg.JWT.AccessTokenTTL,
		appMetrics,
		logger,
	)
	if err != nil {
		return nil, err
	}
	authHandler := auth.NewAuthHandler(authService, logger)

	engine := catalog.NewEngine(store, appMetrics, cfg.Catalog.ExportLimit, logger)
	catalogHandler := catalog.NewHandler(engine, api.PageLimits{
		DefaultPageSize: cfg.Catalog.DefaultPageSize,
		MaxPageSize:     cfg.Catalog.MaxPageSize,
	}, logger)

	ticketRepo := tickets.NewRepository(store, logger)
	ticketService := tickets.NewServiceImpl(ticketRepo, logger)
	ticketHandler := tickets.NewHandler(ticketService, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Store:          store,
		Metrics:        appMetrics,
		AuthService:    authService,
		AuthHandler:    authHandler,
		CatalogEngine:  engine,
		CatalogHandler: catalogHandler,
		TicketHandler:  ticketHandler,
		HTTPMetrics:    httpMetrics,
	}, nil
}

// Router returns the application's root HTTP handler.
func (c *Container) Router() http.Handler {
	return router.New(&router.Config{
		Logger:                 c.Logger,
		AuthHandler:            c.AuthHandler,
		AuthenticateMiddleware: auth.Authenticate(c.AuthService, c.Logger),
		CatalogHandler:         c.CatalogHandler,
		TicketHandler:          c.TicketHandler,
		HTTPMetrics:            c.HTTPMetrics,
		AllowedOrigins:         c.Config.CORS.AllowedOrigins,
		RequestTimeout:         c.Config.Server.Timeout,
		LoginRatePerMinute:     c.Config.Server.LoginRatePerMinute,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}
