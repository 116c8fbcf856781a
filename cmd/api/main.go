package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"internify-backend/config"
	_ "internify-backend/docs" // Important for Swagger
	v1 "internify-backend/internal/delivery/http/v1"
	"internify-backend/internal/domain"
	"internify-backend/internal/repository/identity"
	"internify-backend/internal/repository/postgres"
	redisrepo "internify-backend/internal/repository/redis"
	"internify-backend/internal/usecase"
	"internify-backend/pkg/auth"
	"internify-backend/pkg/clock"
	"internify-backend/pkg/database"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/metrics"
	redisclient "internify-backend/pkg/redis"
	"internify-backend/pkg/security"
	"internify-backend/pkg/storage"
	"internify-backend/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Internify Auth API
// @version         1.0
// @description     Student and employer sign-up and sign-in orchestration.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting internify backend", "port", cfg.Port)

	ctx := context.Background()

	// 3. Setup Database
	if err := database.RunMigrations(cfg.DBUrl); err != nil {
		logger.Log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Redis (optional)
	var rdb *goredis.Client
	if cfg.UpstashRedisURL != "" {
		rdb, err = redisclient.Connect(ctx, redisclient.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword})
		if err != nil {
			logger.Log.Warn("Redis unavailable, using in-memory sessions and rate limits", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// 5. Setup Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// 6. Setup Identity Service
	sessions := redisrepo.NewSessionStore(rdb, cfg.SessionTTL)
	identityClient := identity.NewClient(identity.Config{
		BaseURL: cfg.IdentityURL,
		APIKey:  cfg.IdentityAPIKey,
		Timeout: cfg.IdentityTimeout,
	}, sessions, nil)

	// 7. Setup Token Verification (JWKS + shared secret)
	jwksProvider := auth.NewProvider(cfg.IdentityJWKSURL, nil)
	verifier := auth.NewVerifier(cfg.IdentityJWTSecret, jwksProvider, cfg.IdentityApplicationID)

	// 8. Setup Repositories
	policy := domain.RoleImmutable
	if cfg.AllowRoleChange {
		policy = domain.RoleLastWriterWins
	}
	clk := clock.New()
	userRepo := postgres.NewUserRepository(dbPool)
	profileStore := postgres.NewProfileStore(userRepo, verifier, clk, policy)

	// 9. Setup CV Storage (optional)
	var files domain.FileStorage
	if cfg.CVStorageConfigured() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Provider:        storage.S3Provider(cfg.S3Provider),
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			WasabiEndpoint:  cfg.WasabiEndpoint,
		})
		if err != nil {
			logger.Log.Warn("CV storage unavailable", "error", err)
		} else {
			files = storage.NewBucket(s3Client, cfg.S3Bucket)
		}
	} else {
		logger.Log.Warn("CV storage not configured - CV uploads will be unavailable")
	}

	// 10. Setup UseCases
	authDeps := usecase.AuthDeps{
		Identity:            identityClient,
		Store:               profileStore,
		Clock:               clk,
		Validate:            validation.New(),
		Metrics:             recorder,
		TokenTemplate:       cfg.IdentityJWTTemplate,
		PollInterval:        cfg.TokenPollInterval,
		SignInTokenAttempts: cfg.TokenSignInAttempts,
		SignUpTokenBudget:   cfg.TokenSignUpBudget,
		PersistRetries:      cfg.PersistMaxRetries,
		PersistBackoff:      cfg.PersistBackoff,
	}
	lockTTL := usecase.SubmissionLockTTL(authDeps, cfg.IdentityTimeout)
	authDeps.Guard = redisrepo.NewSubmissionGuard(rdb, lockTTL)
	logger.Log.Info("submission lock configured", "ttl", lockTTL)
	authUC := usecase.NewAuthUsecase(authDeps)
	cvUC := usecase.NewCVUsecase(files)

	checks := map[string]usecase.Pinger{"database": dbPool, "redis": nil}
	if rdb != nil {
		checks["redis"] = usecase.PingFunc(func(ctx context.Context) error {
			return redisclient.HealthCheck(ctx, rdb)
		})
	}
	healthUC := usecase.NewHealthUsecase(checks)

	// 11. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:        authUC,
		CVUC:          cvUC,
		HealthUC:      healthUC,
		UploadLimiter: security.NewUploadLimiter(rdb, cfg.CVUploadLimit, time.Duration(cfg.RateLimitWindowSeconds)*time.Second),
		Redis:         rdb,
		Metrics:       metrics.Handler(registry),
		Config:        cfg,
	})

	// 12. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
