package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/callsight-team/callsight/pkg/validator"

	"github.com/callsight-team/callsight/internal/adapter/handler"
	"github.com/callsight-team/callsight/internal/adapter/repository"
	"github.com/callsight-team/callsight/internal/infrastructure/cache"
	"github.com/callsight-team/callsight/internal/infrastructure/database"
	httpmw "github.com/callsight-team/callsight/internal/infrastructure/http/middleware"
	"github.com/callsight-team/callsight/internal/infrastructure/storage"
	"github.com/callsight-team/callsight/internal/usecase/analysis"
	"github.com/callsight-team/callsight/internal/usecase/pipeline"
	pkgai "github.com/callsight-team/callsight/pkg/ai"
	"github.com/callsight-team/callsight/pkg/config"
	"github.com/callsight-team/callsight/pkg/jwt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Apply migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Applying migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping startup migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the record cache. Redis when reachable, in-process
	// otherwise so single-node setups keep working.
	log.Println("📦 Connecting to Redis...")
	var recordCache analysis.RecordCache
	redisCache, err := cache.NewRedisRecordCache(cfg)
	if err != nil {
		log.Printf("⚠️  Redis unavailable (%v), falling back to in-memory record cache", err)
		recordCache = cache.NewMemoryRecordCache(0)
	} else {
		defer redisCache.Close()
		recordCache = redisCache
	}

	// Initialize recording storage
	log.Println("🗄️  Connecting to recording storage...")
	var recordingStore analysis.RecordingStore
	minioClient, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		log.Printf("⚠️  Recording storage unavailable (%v), object-key recordings will fail", err)
	} else {
		recordingStore = minioClient
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	jobRepo := repository.NewAnalysisJobRepository(db)
	callRepo := repository.NewCallRepository(db)

	// Initialize collaborator clients and the analysis pipeline
	log.Println("🤖 Initializing analysis components...")
	groqClient := pkgai.NewGroqClient(&cfg.Groq)
	sentimentClient := pkgai.NewSentimentClient(&cfg.Sentiment)
	diarizerClient := pkgai.NewDiarizerClient(&cfg.Diarizer)

	pipelineCfg := analysis.PipelineConfig(cfg.Pipeline)
	runner, err := pipeline.NewRunner(
		pipelineCfg,
		analysis.NewSentimentClassifier(sentimentClient),
		analysis.NewGroqSummarizer(groqClient, pipelineCfg.TopicsCap),
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize analysis pipeline: %v", err)
	}

	analysisService := analysis.NewAnalysisService(
		jobRepo,
		callRepo,
		recordCache,
		recordingStore,
		diarizerClient,
		runner,
		cfg,
		logger,
	)

	// Initialize JWT manager for machine-to-machine auth
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	authEchoMW := httpmw.EchoAuth(jwtManager)

	// Initialize handlers and routes
	log.Println("🛣️  Setting up routes...")
	callHandler := handler.NewCallHandler(analysisService, logger)
	webhookHandler := handler.NewWebhookHandler(analysisService, logger)

	router := handler.NewRouter(cfg, callHandler, webhookHandler, authEchoMW)
	router.Setup(e)

	// Start background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := analysisService.StartWorkerPool(workerCtx, cfg.Analysis.WorkerCount); err != nil {
		log.Fatalf("Failed to start worker pool: %v", err)
	}

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	if err := analysisService.StopWorkerPool(); err != nil {
		log.Printf("⚠️  Worker pool shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
