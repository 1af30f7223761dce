package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/search"
	"github.com/Domenick1991/flightbooking/internal/supplier"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	orders := repository.NewOrderRepository(pool)
	if err := orders.EnsureSchema(ctx); err != nil {
		zl.Fatal("prepare order journal", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SearchCacheTTL(), cfg.Booking.SessionIdle())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zl)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		zl.Warn("kafka not reachable, booking events will be dropped until it is", zap.Error(err))
	}

	supplierClient := supplier.NewHTTPClient(cfg.Supplier, zl)
	coordinator := search.NewCoordinator(supplierClient, redisCache, cfg.Booking.DefaultCurrency, zl)
	bookingService := booking.NewBookingService(
		supplierClient,
		coordinator,
		zl,
		booking.WithJournal(orders),
		booking.WithSnapshotStore(redisCache),
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithRetention(cfg.Booking.SessionRetention(), cfg.Booking.SessionIdle()),
		booking.WithCallTimeout(cfg.Booking.SupplierCallTimeout()),
	)
	go bookingService.Run(ctx, cfg.Booking.SweepInterval())

	if err := bootstrap.Run(ctx, cfg, zl, coordinator, bookingService,
		bootstrap.WithHealthCheck("postgres", pool.Ping),
		bootstrap.WithHealthCheck("redis", redisCache.Ping),
	); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
