package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = runtime.LoadDotEnv()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	if config.Bool("MIGRATE_ON_START", false) {
		if err := migrate(dbURL); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		logger.Info("migrations applied")
	}

	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	fallback, err := schedule.FromEnv()
	if err != nil {
		logger.Error("invalid schedule defaults; using built-in hours", "err", err)
		fallback = schedule.Defaults()
	}
	var provider schedule.Provider = schedule.NewStore(pool, fallback)
	if config.Bool("SCHEDULE_FROM_ENV_ONLY", false) {
		provider = schedule.NewStaticProvider(fallback)
	}

	engineOpts := booking.Options{Metrics: bookingMetrics, Logger: logger}
	var cachedSchedule *schedule.Cached
	var notifier *calendar.Notifier
	if rdb != nil {
		scheduleTTL, err := config.Duration("SCHEDULE_CACHE_TTL", 5*time.Minute)
		if err != nil {
			panic(err)
		}
		cachedSchedule = schedule.NewCached(provider, rdb, scheduleTTL, logger)
		provider = cachedSchedule
		notifier = calendar.NewNotifier(rdb, config.String("CALENDAR_CHANNEL", calendar.DefaultChannel))
		engineOpts.Calendar = notifier
	}

	outboxRepo := outbox.NewRepository()
	repo := storage.NewBookingRepository(pool, outboxRepo)
	engine := booking.NewEngine(repo, provider, engineOpts)

	brokers := config.String("KAFKA_BROKERS", "")
	pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		panic(err)
	}
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: pollEvery,
		BatchSize: 50,
		OnPublish: bookingMetrics.ObserveOutboxPublished,
	})
	go outboxPublisher.Run(ctx)

	switch {
	case strings.TrimSpace(brokers) == "":
		logger.Info("settings consumer disabled (no brokers)")
	case cachedSchedule == nil:
		logger.Info("settings consumer disabled (no redis cache to invalidate)")
	default:
		settingsConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   config.String("KAFKA_SETTINGS_TOPIC", consumer.TopicScheduleUpdated),
		}, consumer.ScheduleUpdated(cachedSchedule, notifier, bookingMetrics, logger))
		go settingsConsumer.Run(ctx)
	}

	if err := startGRPC(ctx, logger, grpcPort); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", http.StripPrefix("/api", apiHandler(engine, rdb, verifierFromEnv(), logger)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func migrate(dbURL string) error {
	mg, err := db.NewMigrator(dbURL, migrations.FS)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}

func verifierFromEnv() *auth.Verifier {
	secret := config.String("JWT_SECRET", "")
	if secret == "" {
		return nil
	}
	return auth.NewVerifier(secret)
}
