package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/scaleworks/docquery/internal/api/handlers"
	"github.com/scaleworks/docquery/internal/config"
	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/jobs"
	"github.com/scaleworks/docquery/internal/openai"
	"github.com/scaleworks/docquery/internal/repository"
	"github.com/scaleworks/docquery/internal/server"
	"github.com/scaleworks/docquery/internal/service"
	"github.com/scaleworks/docquery/internal/storage"
	"github.com/scaleworks/docquery/internal/telemetry"
	"github.com/scaleworks/docquery/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docquery API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("DOCQUERY_OPENAI_API_KEY is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	ownerRepo := repository.NewOwnerRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	if cfg.InitOwnerName != "" {
		if err := bootstrapInitialOwner(ctx, cfg, ownerRepo, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial owner: %w", err)
		}
	}

	var archiver service.DocumentArchiver
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	store := vectorstore.NewPostgresStore(pool)

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		EmbeddingModel:    goopenai.EmbeddingModel(cfg.EmbeddingModel),
		RequestsPerMinute: cfg.EmbeddingRPM,
		DailyLimit:        cfg.EmbeddingDailyLimit,
	})
	completionClient := openai.NewCompletionClient(openai.CompletionConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.CompletionModel,
	})

	uuidGen := &service.DefaultUUIDGenerator{}

	coordinator := service.NewRetrievalCoordinator(embeddingClient, store)
	synthesizer := service.NewSynthesizer(completionClient)
	lifecycle := service.NewLifecycleManager(store, sessionRepo, kbRepo, ownerRepo)
	answerSvc := service.NewAnswerService(coordinator, synthesizer, lifecycle)
	kbSvc := service.NewKnowledgeBaseService(coordinator, kbRepo, ownerRepo, archiver)
	authSvc := service.NewAuthService(ownerRepo, apiKeyRepo, uuidGen)

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	reaper := jobs.NewSessionReaper(sessionRepo, store, sessionTTL)
	reaperWorker := jobs.NewWorker(reaper, time.Minute)
	go reaperWorker.Start(ctx)
	log.Println("session reaper started")

	routerCfg := server.RouterConfig{
		AuthValidator:        authSvc,
		KnowledgeBaseHandler: handlers.NewKnowledgeBaseHandler(kbSvc, lifecycle),
		QueryHandler:         handlers.NewQueryHandler(answerSvc),
		SessionHandler:       handlers.NewSessionHandler(answerSvc),
		AuthHandler:          handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	reaperWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func bootstrapInitialOwner(ctx context.Context, cfg *config.Config, ownerRepo *repository.OwnerRepository, apiKeyRepo *repository.APIKeyRepository) error {
	owner, err := ownerRepo.GetByName(ctx, cfg.InitOwnerName)
	if err != nil && err != domain.ErrOwnerNotFound {
		return fmt.Errorf("failed to check existing owner: %w", err)
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(ownerRepo, apiKeyRepo, uuidGen)

	if owner == nil {
		owner, err = authSvc.CreateOwner(ctx, cfg.InitOwnerName)
		if err != nil {
			return fmt.Errorf("failed to create owner: %w", err)
		}
		log.Printf("bootstrap: created owner '%s' (id: %s)", owner.Name, owner.ID)
	} else {
		log.Printf("bootstrap: owner '%s' already exists (id: %s)", owner.Name, owner.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid DOCQUERY_INIT_API_KEY format (expected 'dqy_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, owner.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
