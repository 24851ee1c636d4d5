package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/config"
	"github.com/ariefcatur/midtrans-ledger/internal/httpx"
	kafkax "github.com/ariefcatur/midtrans-ledger/internal/kafka"
	"github.com/ariefcatur/midtrans-ledger/internal/logging"
	"github.com/ariefcatur/midtrans-ledger/internal/midtrans"
	"github.com/ariefcatur/midtrans-ledger/internal/postgres"
	"github.com/ariefcatur/midtrans-ledger/internal/redisx"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(logging.Config{ServiceName: cfg.ServiceName, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	repo := &settlement.Repo{DB: db}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)
	sink := &kafkax.EventSink{
		Producer:    prod,
		ServiceName: cfg.ServiceName,
		TraceID:     middleware.GetReqID,
	}

	composer := &settlement.Composer{
		Store:      repo,
		Log:        logger.Named("settlement.composer"),
		Reconciler: settlement.Reconciler{MaxAttempts: cfg.StockCASAttempts},
	}
	proc := &settlement.Processor{
		Store:    repo,
		Composer: composer,
		Log:      logger.Named("settlement.processor"),
		Locker:   redisx.NewLocker(rdb),
		LockTTL:  cfg.OrderLockTTL,
		LockWait: cfg.OrderLockWait,
		Cache:    &redisx.StatusCache{Client: rdb},
		Events:   sink,
	}

	router := httpx.NewRouter(logger.Named("http"))
	wh := &httpx.WebhookHandler{
		Processor: proc,
		Deferred:  sink,
		Log:       logger.Named("http.webhook"),
	}
	switch {
	case !cfg.MidtransVerifySignature:
		logger.Warn("midtrans signature verification disabled")
	case cfg.MidtransServerKey == "":
		logger.Warn("MIDTRANS_SERVER_KEY empty, signature verification skipped")
	default:
		v, err := midtrans.NewVerifier(cfg.MidtransServerKey)
		if err != nil {
			logger.Fatal("midtrans verifier", zap.Error(err))
		}
		wh.Verifier = v
	}
	wh.Register(router)
	sh := &httpx.StatusHandler{
		Store: repo,
		Cache: &redisx.StatusCache{Client: rdb},
		Log:   logger.Named("http.status"),
	}
	sh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
