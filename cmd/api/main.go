package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/provenance-service/internal/api/http"
	"github.com/spec-kit/provenance-service/internal/api/http/handlers"
	"github.com/spec-kit/provenance-service/internal/config"
	"github.com/spec-kit/provenance-service/internal/events"
	"github.com/spec-kit/provenance-service/internal/geo"
	"github.com/spec-kit/provenance-service/internal/observability"
	"github.com/spec-kit/provenance-service/internal/persistence"
	"github.com/spec-kit/provenance-service/internal/repository"
	"github.com/spec-kit/provenance-service/internal/service"
	"github.com/spec-kit/provenance-service/internal/token"
	"github.com/spec-kit/provenance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	productRepo := repository.NewProductRepository(pool)
	masterRepo := repository.NewMasterTokenRepository(pool)
	scanRepo := repository.NewScanRepository(pool)

	metrics := observability.NewMetrics()
	codec := token.NewCodec(cfg.Token.Secret, cfg.Token.TTLMinutes)
	dispatcher := events.NewInMemoryDispatcher()

	geocoder := geo.NewHTTPGeocoder(cfg.Geocoder, logger)
	var resolver geo.Resolver
	if strings.EqualFold(cfg.Geocoder.CacheBackend, "redis") {
		resolver = geo.NewRedisResolver(geocoder, redis.Client, cfg.Geocoder.CacheTTL(), logger, metrics)
	} else {
		resolver = geo.NewCachedResolver(geocoder, cfg.Geocoder.CacheTTL(), logger, metrics)
	}

	batchService := service.NewBatchService(service.BatchDependencies{
		ProductRepo:     productRepo,
		MasterTokenRepo: masterRepo,
		Codec:           codec,
		MaxUnits:        cfg.Batch.MaxUnits,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
	})
	scanService := service.NewScanService(service.ScanDependencies{
		ProductRepo: productRepo,
		ScanRepo:    scanRepo,
		Codec:       codec,
		Resolver:    resolver,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	historyService := service.NewHistoryService(service.HistoryDependencies{
		ProductRepo:     productRepo,
		MasterTokenRepo: masterRepo,
		ScanRepo:        scanRepo,
	})
	archiveService := service.NewArchiveService(productRepo, masterRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	productsHandler := handlers.NewProductsHandler(batchService, scanService, historyService, archiveService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Products: productsHandler,
		Metrics:  metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
