package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/availability"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/repository"
	"salonbook/internal/service"
	"salonbook/internal/tz"
	"salonbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	normalizer, err := tz.New(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("init timezone: %w", err)
	}

	memLimiter := repository.NewMemoryRateLimiter()
	limiter, redisClient := initRateLimiter(ctx, cfg, memLimiter, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	bus := events.NewEventBus()
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.Subscribe(bus)
	}

	var wg sync.WaitGroup
	startKafkaSink(ctx, &wg, cfg, bus, logger)

	clock := domain.SystemClock{}
	calc := availability.NewCalculator(db, db, db, normalizer, clock, cfg.Booking.SlotInterval,
		logging.Component(logger, "availability"))
	holds := service.NewHoldService(db, db, calc, limiter, bus, clock, service.HoldConfig{
		TTL:           cfg.Booking.HoldTTL,
		SessionLimit:  cfg.Booking.SessionHoldLimit,
		SessionWindow: cfg.Booking.SessionLimitWindow,
	}, logging.Component(logger, "holds"))
	bookings := service.NewBookingService(db, bus, clock, logging.Component(logger, "bookings"))

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Holds:        holds,
		Bookings:     bookings,
		Availability: calc,
		Health:       db,
		TZ:           normalizer,
		Clock:        clock,
	}, logging.Component(logger, "http"))

	sweeper := worker.NewHoldSweeper(holds, cfg.Booking.SweepInterval, worker.RetryPolicy{},
		logging.Component(logger, "hold-sweeper")).Also(memLimiter, httpServer)
	runBackground(&wg, func() { sweeper.Start(ctx) })

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		runBackground(&wg, func() { backups.Start(ctx) })
	}

	if cfg.Monitoring.PrometheusEnabled {
		runBackground(&wg, func() { startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger) })
	}

	err = serve(ctx, httpServer, cfg, logger)
	stop()
	wg.Wait()
	logger.Info().Msg("salonbook stopped")
	return err
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"),
		database.WithBusyTimeout(cfg.Database.BusyTimeout))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if cfg.Booking.CatalogPath == "" {
		return db, nil
	}

	catalog, err := loadCatalog(cfg.Booking.CatalogPath)
	if err != nil {
		db.Close()
		logger.Error().Err(err).Str("catalog_path", cfg.Booking.CatalogPath).Msg("load catalog")
		return nil, err
	}
	if err := db.UpsertCatalog(ctx, catalog.Services, catalog.Staff); err != nil {
		db.Close()
		return nil, fmt.Errorf("import catalog: %w", err)
	}

	logger.Info().
		Int("services", len(catalog.Services)).
		Int("staff", len(catalog.Staff)).
		Msg("catalog imported")
	return db, nil
}

// initRateLimiter prefers Redis so limits hold across instances, falling back to
// process memory when Redis is absent or goes away.
func initRateLimiter(
	ctx context.Context,
	cfg *config.Config,
	memory *repository.MemoryRateLimiter,
	logger *zerolog.Logger,
) (domain.RateLimiter, *redis.Client) {
	if cfg.Redis.Address == "" {
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, starting with in-memory rate limits")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	limiter := repository.NewFailoverRateLimiter(
		repository.NewRedisRateLimiter(client),
		memory,
		logging.Component(logger, "rate-limiter"),
	)
	return limiter, client
}

func startKafkaSink(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if len(cfg.Events.Kafka.Brokers) == 0 {
		return
	}

	writer := events.NewKafkaWriter(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
	sink := events.NewKafkaSink(writer, logging.Component(logger, "kafka"))
	sink.Attach(bus)
	runBackground(wg, func() { sink.Run(ctx) })

	logger.Info().
		Strs("brokers", cfg.Events.Kafka.Brokers).
		Str("topic", cfg.Events.Kafka.Topic).
		Msg("event export to kafka enabled")
}

func runBackground(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	if cfg.API.HTTP.Enabled {
		go func() {
			errCh <- httpServer.Start()
		}()
		logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")
	} else {
		logger.Warn().Msg("HTTP API is disabled in config; running background workers only")
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
