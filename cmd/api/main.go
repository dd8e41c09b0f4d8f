// Package main is the entry point for the NOMA API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/api"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/auth"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/comment"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/config"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/db"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/feed"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/health"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/mute"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/ranking"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/reaction"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/social"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tag"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tracing"
)

const serviceName = "noma-api"

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("NOMA API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("configuration loaded", "settings", cfg.LogSummary())

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-grpc",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Repositories. Posts and the social graph move to Postgres when a
	// database is configured; the remaining stores are in-memory.
	var (
		posts   post.Repository
		follows social.FollowRepository
		blocks  social.BlockRepository
		dbConn  *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		dbConn, err = db.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbConn.Close()

		posts = post.NewPostgresRepository(dbConn, logger)
		follows = social.NewPostgresFollowRepository(dbConn, logger)
		blocks = social.NewPostgresBlockRepository(dbConn, logger)
		logger.Info("using postgres repositories")
	} else {
		posts = post.NewInMemoryRepository()
		follows = social.NewInMemoryFollowRepository()
		blocks = social.NewInMemoryBlockRepository()
		logger.Info("using in-memory repositories")
	}

	tags := tag.NewInMemoryRepository()
	interests := interest.NewInMemoryRepository()
	mutes := mute.NewInMemoryRepository()
	comments := comment.NewInMemoryRepository()
	reactions := reaction.NewInMemoryRepository()

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(registry); err != nil {
		logger.Error("failed to register feed metrics", "error", err)
		os.Exit(1)
	}

	// Scoring weights, optionally calibrated from file. Calibration
	// failures fall back to defaults and are already logged.
	weights, _ := ranking.LoadCalibration(cfg.CalibrationPath)

	ranker := feed.NewRanker(feed.Deps{
		Posts:     posts,
		Follows:   follows,
		Blocks:    blocks,
		Interests: interests,
		Mutes:     mutes,
		Tags:      tags,
		Reactions: reactions,
		Weights:   weights,
		Metrics:   feedMetrics,
		Logger:    logger,
	})

	broadcaster := feed.NewBroadcaster()

	// Authentication
	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTSecretPrevious)

	// Rate limiting. Redis gives a shared window across replicas; the
	// in-memory store is the single-instance fallback.
	var (
		rateLimitStore middleware.RateLimitStore
		redisClient    *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		redisStore := middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
		if err := redisStore.Ping(context.Background()); err != nil {
			logger.Warn("redis unreachable at startup, rate limiting will fail open", "error", err)
		}
		rateLimitStore = redisStore
		logger.Info("using redis rate limiting", "addr", cfg.RedisAddr)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
	}

	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}
	if err := globalLimit.Validate(); err != nil {
		logger.Error("invalid rate limit configuration", "error", err)
		os.Exit(1)
	}

	// Handlers
	feedHandlers := api.NewFeedHandlers(ranker)
	postHandlers := api.NewPostHandlers(posts, tags, comments, reactions, interests, broadcaster, cfg.ReportThreshold)
	socialHandlers := api.NewSocialHandlers(follows, blocks, posts, tags, interests)
	muteHandlers := api.NewMuteHandlers(mutes)
	liveHandlers := api.NewLiveFeedHandlers(broadcaster, cfg.CORSAllowedOrigins)

	healthConfig := api.HealthHandlersConfig{MetricsEnabled: true}
	if dbConn != nil {
		healthConfig.DBChecker = health.NewDBChecker(dbConn)
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/feed", feedHandlers.GetFeed)
	mux.HandleFunc("/feed/live", liveHandlers.Subscribe)
	mux.HandleFunc("/posts", postHandlers.HandlePosts)
	mux.HandleFunc("/posts/", postHandlers.HandlePostSubtree)
	mux.HandleFunc("/follows/", socialHandlers.HandleFollows)
	mux.HandleFunc("/blocks/", socialHandlers.HandleBlocks)
	mux.HandleFunc("/mutes", muteHandlers.HandleMutes)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"noma-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain, outermost first: RequestID -> Tracing ->
	// Logging -> HTTPMetrics -> CORS -> Authenticate -> RateLimiter.
	// Authentication runs before rate limiting so limits key on user
	// ID where one exists.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, globalLimit, middleware.UserKeyFunc())(handler)
	handler = middleware.Authenticate(jwtService)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
