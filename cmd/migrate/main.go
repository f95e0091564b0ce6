package main

import (
	"context"
	"fmt"
	"os"

	"invoice-analyzer/pkg/config"
	"invoice-analyzer/pkg/logger"
	"invoice-analyzer/pkg/postgres"

	"go.uber.org/zap"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		filename VARCHAR(512) NOT NULL,
		vendor_name VARCHAR(512),
		invoice_number VARCHAR(255),
		invoice_date VARCHAR(64),
		total_amount DOUBLE PRECISION,
		tax_amount DOUBLE PRECISION,
		currency VARCHAR(16),
		raw_text TEXT NOT NULL DEFAULT '',
		processed BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_user_created ON invoices (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices (user_id, vendor_name)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Migration failed", zap.Error(err))
		}
	}

	appLogger.Info("Migrations applied")
}
