package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/3btraders/ims/internal/application/catalog"
	"github.com/3btraders/ims/internal/application/dashboard"
	"github.com/3btraders/ims/internal/application/inventory"
	reportapp "github.com/3btraders/ims/internal/application/report"
	"github.com/3btraders/ims/internal/infrastructure/cache"
	"github.com/3btraders/ims/internal/infrastructure/config"
	"github.com/3btraders/ims/internal/infrastructure/gateway"
	"github.com/3btraders/ims/internal/infrastructure/logger"
	"github.com/3btraders/ims/internal/infrastructure/printing"
	"github.com/3btraders/ims/internal/infrastructure/storage"
	"github.com/3btraders/ims/internal/infrastructure/telemetry"
	"github.com/3btraders/ims/internal/interfaces/http/handler"
	"github.com/3btraders/ims/internal/interfaces/http/middleware"
	"github.com/3btraders/ims/internal/interfaces/http/router"
)

const maxBodySize = 1 << 20

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting IMS dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.App.ListenAddr),
		zap.String("backend", cfg.Gateway.BaseURL),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.Config(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	business, err := telemetry.NewBusinessMetrics(mp.Meter("github.com/3btraders/ims"), log)
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	prom := telemetry.NewPromMetrics()

	// Backend client
	client, err := gateway.NewClient(cfg.Gateway, cfg.Session.CookieName,
		gateway.WithObserver(prom),
		gateway.WithTracer(tp.Tracer("github.com/3btraders/ims/gateway")),
		gateway.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create backend client", zap.Error(err))
	}

	// Report cache
	var reportCache *cache.ReportCache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, reading lists uncached", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Error("Error closing redis client", zap.Error(err))
				}
			}()
			reportCache = cache.NewReportCache(rdb, cfg.Redis.TTL, prom, log)
			log.Info("Report cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
		}
	}

	// Application services
	catalogService := catalogapp.NewService(client, reportCache, log)
	refresher := inventory.NewRefresher(catalogService, cfg.Refresh, business, log)
	txEngine := inventory.NewTransactionEngine(client, catalogService, refresher, reportCache, business, log)

	reportOpts := []reportapp.Option{
		reportapp.WithCache(reportCache),
		reportapp.WithMetrics(business),
		reportapp.WithLogger(log),
	}
	renderer, err := exportOption(cfg, log, &reportOpts)
	if err != nil {
		log.Fatal("Failed to set up report export", zap.Error(err))
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Error("Error closing renderer", zap.Error(err))
		}
	}()
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3ReportArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err == nil {
			err = archive.EnsureBucket(ctx)
		}
		if err != nil {
			log.Warn("Report archive unavailable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		} else {
			reportOpts = append(reportOpts, reportapp.WithArchive(archive))
			log.Info("Report archive enabled", zap.String("bucket", cfg.Storage.Bucket))
		}
	}
	reportService := reportapp.NewService(client, catalogService, reportOpts...)

	store := dashboard.NewStore(catalogService, reportService, cfg.Notice.TTL, log)
	defer store.Close()
	refresher.OnSettled(store.AfterRefresh)

	// Sign in with the configured account and load the catalog.
	if cfg.Session.Email != "" {
		if err := client.Login(ctx, cfg.Session.Email, cfg.Session.Password); err != nil {
			log.Warn("Initial login failed", zap.String("email", cfg.Session.Email), zap.Error(err))
		} else if c, err := catalogService.Refresh(ctx); err != nil {
			log.Warn("Initial catalog load failed", zap.Error(err))
		} else {
			log.Info("Catalog loaded", zap.Int("shops", len(c.Shops())), zap.Int("products", len(c.Products())))
		}
	}

	// Handlers
	systemHandler := handler.NewSystemHandler(cfg.App.Name, client, catalogService)
	sessionHandler := handler.NewSessionHandler(client, catalogService, store)
	inventoryHandler := handler.NewInventoryHandler(catalogService, store)
	transactionHandler := handler.NewTransactionHandler(txEngine, store)
	reportHandler := handler.NewReportHandler(reportService, store)
	stateHandler := handler.NewStateHandler(store)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tp.IsEnabled(),
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig(cfg.App.CORSAllowOrigins)))
	engine.Use(middleware.BodyLimit(maxBodySize))

	engine.GET("/healthz", systemHandler.Ping)
	engine.GET("/metrics", gin.WrapH(prom.Handler()))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.SystemRoutes(systemHandler)).
		Register(handler.SessionRoutes(sessionHandler)).
		Register(handler.InventoryRoutes(inventoryHandler)).
		Register(handler.SalesRoutes(transactionHandler)).
		Register(handler.StockRoutes(transactionHandler)).
		Register(handler.ReportRoutes(reportHandler)).
		Register(handler.StateRoutes(stateHandler))
	r.Setup()

	srv := &http.Server{
		Addr:              cfg.App.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	refresher.Wait()

	log.Info("Server exited gracefully")
}

// loadConfig reads IMS_CONFIG_FILE when set, else the default search paths.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("IMS_CONFIG_FILE"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// exportOption builds the PDF pipeline and appends it to opts. The returned
// renderer must be closed on exit.
func exportOption(cfg *config.Config, log *zap.Logger, opts *[]reportapp.Option) (*printing.ChromedpRenderer, error) {
	layout, err := printing.NewLayout(cfg.Printing.Currency)
	if err != nil {
		return nil, err
	}
	files, err := printing.NewFileSystemStorage(cfg.Printing.OutputDir, log)
	if err != nil {
		return nil, err
	}
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfigFrom(cfg.Printing, log))
	*opts = append(*opts, reportapp.WithExport(layout, renderer, files))
	return renderer, nil
}
