package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/handlers"
	"github.com/redis/go-redis/v9"
)

// apiHandler builds the tenant-scoped router served under /api.
func apiHandler(engine handlers.Engine, rdb *redis.Client, verifier *auth.Verifier, logger *slog.Logger) http.Handler {
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(httpx.WithCORS(httpx.BookingWidgetCORS(config.List("CORS_ALLOWED_ORIGINS"))))
	if limitPerMinute > 0 {
		if rdb != nil {
			rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
			r.Use(rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
			logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
		} else {
			r.Use(httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware())
			logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
		}
	}
	r.Use(
		httpx.WithTenant(verifier),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
	)
	if verifier.Enabled() {
		logger.Info("tenant resolved from bearer tokens")
	}

	r.Mount("/", handlers.NewBookingHandler(engine, logger).Routes())
	return r
}
