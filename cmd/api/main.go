package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/auth"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/database"
	"github.com/scribeflow/scribeflow/internal/documents"
	"github.com/scribeflow/scribeflow/internal/generation"
	mw "github.com/scribeflow/scribeflow/internal/middleware"
	inats "github.com/scribeflow/scribeflow/internal/nats"
	"github.com/scribeflow/scribeflow/internal/projects"
	iredis "github.com/scribeflow/scribeflow/internal/redis"
	"github.com/scribeflow/scribeflow/internal/server"
	"github.com/scribeflow/scribeflow/internal/usage"
	"github.com/scribeflow/scribeflow/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional: without it, rollups are applied in-line.
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Warn("connecting to NATS, falling back to direct rollups", "error", err)
		} else {
			defer natsClient.Close()
			publisher = inats.NewPublisher(natsClient.JetStream())
		}
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Projects and documents
	projectRepo := projects.NewRepository(pool)
	projectSvc := projects.NewService(projectRepo)
	projectHandler := projects.NewHandler(projectSvc)

	documentRepo := documents.NewRepository(pool)
	documentSvc := documents.NewService(documentRepo)
	documentHandler := documents.NewHandler(documentSvc)

	// Usage accounting
	usageRepo := usage.NewRepository(pool)
	usageSvc := usage.NewService(usageRepo, usageRepo, cfg.Quota.DailyLimit)
	usageHandler := usage.NewHandler(usageSvc)

	// Generation pipeline
	upstream := generation.NewOpenAIClient(cfg.Upstream)
	var burst *generation.BurstLimiter
	if cfg.Quota.BurstPerMinute > 0 {
		burst = generation.NewBurstLimiter(redisClient)
	}
	var genPublisher generation.UsagePublisher
	if publisher != nil {
		genPublisher = publisher
	}
	generationSvc := generation.NewService(upstream, usageRepo, usageRepo,
		genPublisher, burst, cfg.Quota.DailyLimit, cfg.Quota.BurstPerMinute)
	generationHandler := generation.NewHandler(generationSvc)

	// Rollup consumer
	if natsClient != nil {
		consumerMgr := inats.NewConsumerManager(natsClient.JetStream())
		rollupConsumer := usage.NewConsumer(usageRepo, consumerMgr)
		go func() {
			if err := rollupConsumer.Start(ctx); err != nil {
				slog.Error("usage consumer stopped", "error", err)
			}
		}()
	}

	// Brute-force brake on the credential endpoints
	authLimiter := mw.NewRateLimiter(redisClient, 10, 60)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GenerateContent: generationHandler.GenerateContent,

		CreateProject:       projectHandler.Create,
		ListProjects:        projectHandler.List,
		GetProject:          projectHandler.Get,
		UpdateProject:       projectHandler.Update,
		DeleteProject:       projectHandler.Delete,
		OwnershipMiddleware: projectHandler.OwnershipMiddleware,

		CreateDocument: documentHandler.Create,
		ListDocuments:  documentHandler.List,
		GetDocument:    documentHandler.Get,
		UpdateDocument: documentHandler.Update,
		DeleteDocument: documentHandler.Delete,

		GetQuota:    usageHandler.GetQuota,
		ListRollups: usageHandler.ListRollups,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
