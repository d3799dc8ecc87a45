package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/catalog"
	"github.com/zimmart/storefront-go/internal/config"
	"github.com/zimmart/storefront-go/internal/db"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *migrate {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db pool", zap.Error(err))
	}
	defer pool.Close()

	n, err := catalog.NewRepository(pool).Seed(ctx)
	if err != nil {
		logger.Fatal("seed catalog", zap.Error(err))
	}
	logger.Info("catalog seeded", zap.String("supplier", catalog.DemoSupplier.Name), zap.Int("products", n))
}
