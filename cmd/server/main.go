package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/versant-prep/backend/internal/auth"
	"github.com/versant-prep/backend/internal/config"
	"github.com/versant-prep/backend/internal/database"
	"github.com/versant-prep/backend/internal/grading"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/metrics"
	"github.com/versant-prep/backend/internal/middleware"
	"github.com/versant-prep/backend/internal/questionbank"
	"github.com/versant-prep/backend/internal/results"
	"github.com/versant-prep/backend/internal/scoring"
	"github.com/versant-prep/backend/internal/session"
	"go.uber.org/zap"
)

const (
	sweepInterval = time.Minute
	idleTimeout   = 2 * time.Hour
	resultRetain  = 30 * time.Minute
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Server.Mode, cfg.Log.File)
	defer logger.Sync()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	pools, err := questionbank.LoadPools(cfg.Bank.Path)
	if err != nil {
		logger.Log.Fatal("Failed to load question bank", zap.Error(err))
	}

	// Results pipeline
	pubsub, err := results.NewPubSub(cfg.Kafka, nil)
	if err != nil {
		logger.Log.Fatal("Failed to create pub/sub", zap.Error(err))
	}
	defer pubsub.Close()

	var guard results.Guard = results.NewMemoryGuard(nil)
	if cfg.Redis.URL != "" {
		redisGuard, err := results.NewRedisGuard(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisGuard.Close()
		guard = redisGuard
	}

	repo := results.NewPostgresRepository(db)
	resultService := results.NewService(repo, guard, pubsub.Publisher, results.ServiceConfig{
		Topic:        cfg.Kafka.Topic,
		Match:        scoring.MatchOptions{MaxEditDistance: cfg.Scoring.MaxEditDistance},
		DedupeWindow: cfg.Results.DedupeWindow,
	})

	grader := grading.NewGrader(cfg.Grader)
	enricher := results.NewEnricher(pubsub.Subscriber, cfg.Kafka.Topic, repo, grader, cfg.Grader.Delay)
	enricherDone, err := enricher.Start(ctx)
	if err != nil {
		logger.Log.Fatal("Failed to start enricher", zap.Error(err))
	}

	manager := session.NewManager(pools, resultService)
	defer manager.Shutdown()
	go manager.RunJanitor(ctx, sweepInterval, idleTimeout, resultRetain)

	// Setup router
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.JWT.Secret)))

	auth.NewHandler(db, []byte(cfg.JWT.Secret)).RegisterRoutes(api, protected)
	questionbank.NewHandler(pools).RegisterRoutes(protected)
	session.NewHandler(manager, resultService).RegisterRoutes(protected)
	results.NewHandler(resultService).RegisterRoutes(protected)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown error", zap.Error(err))
	}

	// Let an in-flight enrichment finish before the database closes.
	select {
	case <-enricherDone:
	case <-shutdownCtx.Done():
		logger.Log.Warn("Enricher did not stop before shutdown timeout")
	}
}
