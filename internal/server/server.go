package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"catalog-cms/internal/config"
	"catalog-cms/internal/events"
	"catalog-cms/internal/ingest"
	custommiddleware "catalog-cms/internal/middleware"
	"catalog-cms/internal/mirror"
	"catalog-cms/internal/service"
	"catalog-cms/internal/storage"
	"catalog-cms/internal/transport"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	stores  *storage.Stores
	bus     EventBus.Bus
	redis   *redis.Client
	imports service.ImportService
	mirror  *mirror.Subscriber
}

func NewServer(cfg *config.Config, logger *zap.Logger, stores *storage.Stores) (*Server, error) {
	bus := events.NewBus()

	auth, err := service.NewAuthService(
		cfg.Auth.AdminPassword,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.SessionTTL)*time.Hour,
	)
	if err != nil {
		return nil, err
	}
	if !auth.Configured() {
		logger.Warn("Admin password is not configured, admin endpoints are unreachable")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, admin sessions will not survive a restart")
	}

	productService := service.NewProductService(stores.Products, bus, logger)
	articleService := service.NewArticleService(stores.Articles, bus, logger)
	importService := service.NewImportService(stores.Products, stores.Articles, bus, logger)

	s := &Server{
		config:  cfg,
		logger:  logger,
		stores:  stores,
		bus:     bus,
		imports: importService,
	}

	if cfg.Data.MirrorEnabled {
		s.mirror = mirror.NewSubscriber(mirror.NewWriter(cfg.Data.MirrorDir, cfg.Data.MirrorFlat), stores.Products, stores.Articles, logger)
		if err := s.mirror.Subscribe(bus); err != nil {
			return nil, err
		}
		logger.Info("Export mirror enabled", zap.String("dir", cfg.Data.MirrorDir), zap.Bool("flat", cfg.Data.MirrorFlat))
	}

	var loginLimit func(http.Handler) http.Handler
	if cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		loginLimit = custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.LoginAttempts,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         "catalog:verify_password",
		}, logger)
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", s.health)

	source := func() (ingest.Batch, error) {
		return ingest.LoadBatch(cfg.Data.ProductsFile, cfg.Data.ArticlesFile)
	}
	adminAuth := custommiddleware.AdminAuth(auth, logger)

	transport.NewProductHandler(productService, logger).RegisterRoutes(router, adminAuth)
	transport.NewArticleHandler(articleService, logger).RegisterRoutes(router, adminAuth)
	transport.NewAdminHandler(auth, importService, source, logger).RegisterRoutes(router, adminAuth, loginLimit)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := s.stores.Health()
	code := http.StatusOK
	if status["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	custommiddleware.RespondWithJSON(w, code, status)
}

// Bootstrap seeds empty tables from the configured files and writes the
// initial export snapshot. Missing seed files are not an error.
func (s *Server) Bootstrap(ctx context.Context) error {
	if s.config.Data.SeedOnStart {
		batch, err := ingest.LoadBatch(s.config.Data.ProductsFile, s.config.Data.ArticlesFile)
		switch {
		case errors.Is(err, ingest.ErrSourceNotFound):
			s.logger.Info("No seed files found, skipping seed", zap.String("dir", s.config.Data.Dir))
		case err != nil:
			return fmt.Errorf("failed to load seed files: %w", err)
		default:
			if _, err := s.imports.Seed(ctx, batch); err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}
		}
	}

	if s.mirror != nil {
		// Seeding publishes change events; let them settle before the full refresh.
		s.bus.WaitAsync()
		if err := s.mirror.RefreshAll(ctx); err != nil {
			s.logger.Error("Initial export failed", zap.Error(err))
		}
	}
	return nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Pending mirror writes finish before the store goes away.
	s.bus.WaitAsync()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.stores.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
