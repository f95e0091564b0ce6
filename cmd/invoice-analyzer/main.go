package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"invoice-analyzer/internal/api"
	"invoice-analyzer/internal/api/handlers"
	"invoice-analyzer/internal/embedding"
	"invoice-analyzer/internal/repository"
	"invoice-analyzer/internal/service"
	"invoice-analyzer/internal/vectorstore"
	"invoice-analyzer/pkg/auth"
	"invoice-analyzer/pkg/config"
	"invoice-analyzer/pkg/logger"
	"invoice-analyzer/pkg/postgres"

	"go.uber.org/zap"
)

// @title Invoice Analyzer API
// @version 1.0
// @description Service for extracting structured invoice data from PDFs and scans

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	appLogger.Info("Starting invoice analyzer service")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	invoiceRepo := repository.NewInvoiceRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	llmService, err := service.NewLLMService(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	embedder := embedding.NewClient(&cfg.Embeddings, appLogger)
	store := vectorstore.NewStore(&cfg.Qdrant, embedder, appLogger)
	prepareVectorStore(ctx, store, embedder, appLogger)

	extractor := service.NewTextExtractor(
		service.NewFitzSource(),
		service.NewTesseractOCR(cfg.Extraction.TesseractLang),
		cfg.Extraction.MinTextChars,
		appLogger,
	)

	uploadService := service.NewUploadService(cfg.Upload.Dir, cfg.Upload.MaxSizeMB, appLogger)
	invoiceService := service.NewInvoiceService(
		uploadService,
		extractor,
		llmService,
		store,
		invoiceRepo,
		filepath.Join(cfg.Upload.Dir, "staging"),
		cfg.Extraction.ChunkSize,
		cfg.Extraction.ChunkOverlap,
		appLogger,
	)

	authHandler := handlers.NewAuthHandler(authService, appLogger)
	docHandler := handlers.NewDocumentHandler(invoiceService, uploadService, appLogger)
	searchHandler := handlers.NewSearchHandler(store, cfg.Qdrant.TopK, appLogger)

	app := api.SetupRouter(authHandler, docHandler, searchHandler, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// prepareVectorStore probes the embeddings endpoint to learn the vector
// dimension and creates the Qdrant collection. Failures only cost the
// semantic index, so the service starts anyway.
func prepareVectorStore(ctx context.Context, store *vectorstore.Store, embedder *embedding.Client, appLogger *zap.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if _, err := embedder.Embed(probeCtx, "dimension probe"); err != nil {
		appLogger.Warn("Embeddings endpoint unavailable, semantic indexing degraded", zap.Error(err))
		return
	}
	if err := store.EnsureCollection(probeCtx, embedder.Dimension()); err != nil {
		appLogger.Warn("Failed to ensure vector collection", zap.Error(err))
	}
}
