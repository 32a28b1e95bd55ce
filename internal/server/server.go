// Package server boots the storefront infrastructure from configuration
// and serves the HTTP kernel until the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	_ "github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/grpc"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/migration"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// Infra is every connection the process owns.
type Infra struct {
	Deps   kernel.Deps
	Mongo  *database.Mongo
	Ledger *gorm.DB
	Redis  *redis.Client

	logSink *logger.MongoHandler
}

// Boot connects the configured backends and migrates the ledger. On error
// everything opened so far is closed.
func Boot(ctx context.Context) (_ *Infra, err error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	in := &Infra{Deps: kernel.Deps{Checks: map[string]func(context.Context) error{}}}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	if in.Deps.Stores, err = in.openStores(ctx); err != nil {
		return nil, err
	}

	if in.Ledger, err = database.ConnectLedger(); err != nil {
		return nil, err
	}
	ran, err := migration.New(in.Ledger).Run()
	if err != nil {
		return nil, err
	}
	if len(ran) > 0 {
		logger.Info("server: ledger migrated", "migrations", ran)
	}
	in.Deps.Ledger = repositories.NewReconciliationRepository(in.Ledger)
	in.Deps.Checks["ledger"] = func(ctx context.Context) error {
		sqlDB, err := in.Ledger.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	if err := in.openCache(ctx); err != nil {
		return nil, err
	}

	if in.Deps.Disk, err = storage.Open(ctx, config.StorageDefault()); err != nil {
		return nil, err
	}

	if in.Deps.Gateway, err = openGateway(); err != nil {
		return nil, err
	}

	in.Deps.Tokens = auth.NewTokenService([]byte(config.JWTSecret()), config.TokenTTL())
	return in, nil
}

// OpenStores opens the document store selected by STORE_DRIVER and makes
// sure its indexes exist. The returned Mongo is nil for the memory driver.
func OpenStores(ctx context.Context) (*repositories.Stores, *database.Mongo, error) {
	if config.StoreDriver() == "memory" {
		logger.Warn("server: using in-memory document store, data is lost on exit")
		return repositories.NewMemoryStores(), nil, nil
	}

	m, err := database.ConnectMongo(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := repositories.EnsureIndexes(ctx, m.DB); err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return repositories.NewMongoStores(m.DB), m, nil
}

func (in *Infra) openStores(ctx context.Context) (*repositories.Stores, error) {
	stores, m, err := OpenStores(ctx)
	if err != nil || m == nil {
		return stores, err
	}
	in.Mongo = m
	in.Deps.Checks["mongo"] = func(ctx context.Context) error { return m.Client.Ping(ctx, nil) }

	if config.LogToMongo() {
		in.logSink = logger.NewMongoHandler(m.DB.Collection("logs"), slog.LevelInfo)
		logger.Attach(in.logSink)
	}
	return stores, nil
}

func (in *Infra) openCache(ctx context.Context) error {
	perMinute := config.RateLimitPerMinute()

	if config.CacheDriver() != "redis" {
		in.Deps.Locker = cache.NewMemoryLocker()
		if perMinute > 0 {
			limiter := cache.NewMemoryLimiter(perMinute, time.Minute)
			go limiter.Run(ctx)
			in.Deps.Limiter = limiter
		}
		return nil
	}

	rdb, err := cache.Connect(ctx)
	if err != nil {
		return err
	}
	in.Redis = rdb
	in.Deps.Locker = cache.NewRedisLocker(rdb)
	if perMinute > 0 {
		in.Deps.Limiter = cache.NewRedisLimiter(rdb, perMinute, time.Minute)
	}
	in.Deps.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return nil
}

func openGateway() (payment.Gateway, error) {
	cfg := payment.BraintreeConfigFromEnv()
	if cfg.Environment == "fake" {
		logger.Warn("server: using the fake payment gateway, no card is charged")
		return payment.NewFake(), nil
	}
	return payment.NewBraintree(cfg, nil)
}

// Close releases every connection. Safe on a partially booted Infra.
func (in *Infra) Close() {
	if in.logSink != nil {
		in.logSink.Close()
	}
	if in.Redis != nil {
		if err := in.Redis.Close(); err != nil {
			logger.Error("server: redis close", "error", err)
		}
	}
	if in.Ledger != nil {
		if err := database.CloseLedger(in.Ledger); err != nil {
			logger.Error("server: ledger close", "error", err)
		}
	}
	if err := in.Mongo.Close(); err != nil {
		logger.Error("server: mongo close", "error", err)
	}
}

// Options are read from configuration.
func Options() kernel.Options {
	return kernel.Options{
		ForbiddenStatus: config.ForbiddenStatus(),
		RequestTimeout:  config.RequestTimeout(),
		CORSOrigins:     config.CORSOrigins(),
		MaxPhotoBytes:   config.MaxPhotoBytes(),
		Checkout: services.CheckoutConfig{
			Currency: config.PaymentCurrency(),
		},
	}
}

// Run boots, serves HTTP on APP_PORT and gRPC health on GRPC_PORT, and
// shuts down gracefully once ctx is cancelled.
func Run(ctx context.Context) error {
	in, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	k, err := kernel.New(in.Deps, Options())
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go k.Hub.Run(hubCtx)

	checks := make([]grpc.Checker, 0, len(in.Deps.Checks))
	for name, probe := range in.Deps.Checks {
		checks = append(checks, grpc.Check(name, probe))
	}
	rpc, err := grpc.Start(ctx, config.GRPCPort(), checks...)
	if err != nil {
		return err
	}
	defer rpc.Stop()

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: http listening", "addr", srv.Addr, "grpc_port", config.GRPCPort())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server: shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	stopHub()
	k.Events.Wait()

	logger.Info("server: exited cleanly")
	return nil
}
