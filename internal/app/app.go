// Package app wires the cart service together and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/FreemaX94/VIVR-sub000/internal/config"
	"github.com/FreemaX94/VIVR-sub000/internal/event"
	"github.com/FreemaX94/VIVR-sub000/internal/gateway"
	handlerhttp "github.com/FreemaX94/VIVR-sub000/internal/handler/http"
	redisrepo "github.com/FreemaX94/VIVR-sub000/internal/repository/redis"
	"github.com/FreemaX94/VIVR-sub000/internal/service"
	"github.com/FreemaX94/VIVR-sub000/pkg/health"
	"github.com/FreemaX94/VIVR-sub000/pkg/kafka"
	"github.com/FreemaX94/VIVR-sub000/pkg/tracing"
)

// App is the assembled cart service.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	redis    *goredis.Client
	producer *kafka.Producer
	tracing  func(context.Context) error
}

// New builds the application from configuration: storage, events, tracing,
// services, and the HTTP server. Dependencies are verified with a ping where
// the protocol allows it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "cart",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	producer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)

	shippingFlat, err := decimal.NewFromString(cfg.ShippingFlat)
	if err != nil {
		return nil, fmt.Errorf("parse SHIPPING_FLAT: %w", err)
	}
	freeShipping, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("parse FREE_SHIPPING_THRESHOLD: %w", err)
	}

	repo := redisrepo.NewCartRepository(redisClient, cfg.CartTTL)
	events := event.NewProducer(producer)
	carts := service.NewCartService(repo, events, log, cfg.Currency)

	paymentClient := gateway.NewPaymentClient(gateway.Config{
		BaseURL: cfg.PaymentGatewayURL,
		APIKey:  cfg.PaymentGatewayAPIKey,
		Timeout: cfg.PaymentGatewayTimeout,
	}, log)

	checkout := service.NewCheckoutService(carts, paymentClient, log, service.CheckoutConfig{
		TaxPercent:            cfg.TaxPercent,
		ShippingFlat:          shippingFlat,
		FreeShippingThreshold: freeShipping,
		Locale:                cfg.Locale,
	})

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", producer.Ping)

	router := handlerhttp.NewRouter(log,
		healthHandler,
		handlerhttp.NewCartHandler(carts),
		handlerhttp.NewCheckoutHandler(checkout),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		server:   server,
		redis:    redisClient,
		producer: producer,
		tracing:  shutdownTracing,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening",
			slog.String("addr", a.server.Addr),
			slog.String("environment", a.cfg.Environment),
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}
	if err := a.producer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close kafka producer: %w", err)
	}
	if err := a.redis.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close redis: %w", err)
	}
	if err := a.tracing(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown tracing: %w", err)
	}

	if firstErr == nil {
		a.logger.Info("shutdown complete")
	}
	return firstErr
}
