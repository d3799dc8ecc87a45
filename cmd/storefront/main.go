package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/catalog"
	"github.com/zimmart/storefront-go/internal/config"
	"github.com/zimmart/storefront-go/internal/db"
	"github.com/zimmart/storefront-go/internal/events"
	httpserver "github.com/zimmart/storefront-go/internal/http"
	"github.com/zimmart/storefront-go/internal/idempotency"
	"github.com/zimmart/storefront-go/internal/notify"
	"github.com/zimmart/storefront-go/internal/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer database.Close()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db pool", zap.Error(err))
	}
	defer pool.Close()

	catalogRepo := catalog.NewRepository(pool)
	orderRepo := order.NewRepository(database)

	// --- Notifications ---
	whatsapp := notify.NewWhatsAppClient(cfg.WhatsAppAPIBase, cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID,
		&http.Client{Timeout: 10 * time.Second})
	if cfg.WhatsAppToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		logger.Warn("whatsapp not configured; order notifications will be skipped")
	}
	notifiers := []order.Notifier{
		notify.NewDispatcher(whatsapp, cfg.StoreName, cfg.AdminWhatsAppTo, logger),
	}

	// --- AMQP (optional) ---
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal("rabbitmq connect", zap.Error(err))
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn, logger)
		if err != nil {
			logger.Fatal("rabbitmq publisher", zap.Error(err))
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	// --- Idempotent replay (optional) ---
	var replay idempotency.Store
	if cfg.RedisAddr != "" {
		store := idempotency.NewRedisStore(cfg.RedisAddr, "storefront", cfg.IdempotencyTTL)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unavailable; idempotent replay disabled", zap.Error(err))
			_ = store.Close()
		} else {
			defer store.Close()
			replay = store
		}
	}

	svc := order.NewService(catalogRepo, orderRepo, cfg.DeliveryFee, cfg.Currency, logger, notifiers...)

	// --- HTTP ---
	router := httpserver.NewRouter(
		httpserver.NewOrderHandler(svc, orderRepo, replay, logger),
		httpserver.NewWebhookHandler(cfg.WhatsAppVerifyToken, logger),
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	drained := make(chan struct{})
	go func() {
		svc.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn("shutdown before all notifications finished")
	}
	cancel()

	logger.Info("shutdown complete")
}
