package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/config"
	kafkax "github.com/ariefcatur/midtrans-ledger/internal/kafka"
	"github.com/ariefcatur/midtrans-ledger/internal/logging"
	"github.com/ariefcatur/midtrans-ledger/internal/postgres"
	"github.com/ariefcatur/midtrans-ledger/internal/redisx"
	"github.com/ariefcatur/midtrans-ledger/internal/replay"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logging.New(logging.Config{ServiceName: cfg.ServiceName + "-replay", Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer db.Close()
	repo := &settlement.Repo{DB: db}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer untuk domain event hasil replay
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	svc := &replay.Service{
		Processor: &settlement.Processor{
			Store: repo,
			Composer: &settlement.Composer{
				Store:      repo,
				Log:        logger.Named("settlement.composer"),
				Reconciler: settlement.Reconciler{MaxAttempts: cfg.StockCASAttempts},
			},
			Log:      logger.Named("settlement.processor"),
			Locker:   redisx.NewLocker(rdb),
			LockTTL:  cfg.OrderLockTTL,
			LockWait: cfg.OrderLockWait,
			Cache:    &redisx.StatusCache{Client: rdb},
			Events:   &kafkax.EventSink{Producer: prod, ServiceName: cfg.ServiceName + "-replay"},
		},
		Log: logger.Named("replay"),
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReplayGroup, settlement.TopicNotification, cfg.ReplayWorkers, logger)

	go func() {
		logger.Info("replay consumer started",
			zap.String("group", cfg.ReplayGroup),
			zap.String("topic", settlement.TopicNotification),
			zap.Int("workers", cfg.ReplayWorkers))
		if err := cons.Start(ctx, svc.HandleMessage); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
