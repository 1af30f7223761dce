package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/email"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/reconcile"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
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
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SearchCacheTTL(), cfg.Booking.SessionIdle())
	defer redisCache.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zl)
	defer consumer.Close()

	emailSender := email.NewSender(cfg.SMTP, zl)

	go func() {
		err := consumer.ConsumeEvents(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
			if err := emailSender.Send(ctx, event); err != nil {
				zl.Error("confirmation email failed", zap.String("session_id", event.SessionID), zap.Error(err))
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("consumer stopped", zap.Error(err))
		}
	}()

	reconciler := reconcile.NewReconciler(orders, redisCache, redisCache,
		time.Duration(cfg.Worker.ReconcileAfterMinutes)*time.Minute, zl)

	c := cron.New()
	if _, err := c.AddFunc(cfg.Worker.ReconcileSchedule, func() {
		report, err := reconciler.Run(ctx)
		if err != nil {
			zl.Error("order reconciliation failed", zap.Error(err))
			return
		}
		if report.Flagged > 0 {
			zl.Warn("order attempts awaiting reconciliation",
				zap.Int("flagged", report.Flagged),
				zap.Int("expired", report.Expired),
			)
		}
	}); err != nil {
		zl.Fatal("schedule reconciliation", zap.String("schedule", cfg.Worker.ReconcileSchedule), zap.Error(err))
	}
	c.Start()

	<-ctx.Done()
	zl.Info("shutting down worker")
	<-c.Stop().Done()
}
