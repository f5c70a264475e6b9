package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/shiva/tripplanner/config"
	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/catalog"
	"github.com/shiva/tripplanner/internal/handler"
	"github.com/shiva/tripplanner/internal/metrics"
	"github.com/shiva/tripplanner/internal/middleware"
	"github.com/shiva/tripplanner/internal/repository"
	"github.com/shiva/tripplanner/internal/service"
	"github.com/shiva/tripplanner/internal/worker"
	"github.com/shiva/tripplanner/pkg/cache"
	"github.com/shiva/tripplanner/pkg/currency"
	"github.com/shiva/tripplanner/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	if cfg.Postgres.AutoMigrate {
		n, err := db.Migrate(ctx, pgPool)
		if err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
		log.Printf("✓ Schema up to date (%d migrations applied)", n)
	}

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Reference data and external clients ─────────────
	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("failed to load destination catalog: %v", err)
	}

	rateCache := repository.NewRateCacheRepository(redisClient, cfg.Currency.RateCacheTTL)
	converter := currency.NewConverter(currency.NewClient(cfg.Currency.BaseURL, cfg.Currency.Timeout), rateCache)

	gemini, err := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:     cfg.AI.APIKey,
		BaseURL:    cfg.AI.BaseURL,
		APIVersion: cfg.AI.APIVersion,
		Model:      cfg.AI.Model,
		Timeout:    cfg.AI.HTTPTimeout,
	})
	if err != nil {
		log.Fatalf("failed to create Gemini client: %v", err)
	}

	// ── Initialize layers ───────────────────────────────
	planRepo := repository.NewPlanRepository(pgPool)
	queue := worker.NewRedisQueue(redisClient, cfg.Worker.QueueKey)
	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	var generator service.PlanGenerator = ai.NewGenerator(gemini, cat.ReferenceCurrency(), cfg.AI.Grounding)
	if cfg.Cache.Enabled {
		generator = service.NewCachedGenerator(generator, repository.NewPlanCacheRepository(redisClient, cfg.Cache.TTL))
	}

	gate := service.NewSafetyGate(cat)
	orchestrator := service.NewOrchestrator(
		gate,
		service.NewNormalizer(cat.IsComplex),
		generator,
		service.NewPriceValidator(cat, converter),
		planRepo,
		queue,
		recorder,
		service.OrchestratorConfig{
			GenerationTimeout: cfg.AI.GenerationTimeout,
			StrandedAfter:     cfg.Worker.StrandedAfter,
		},
	)
	planSvc := service.NewPlanService(planRepo)

	planHandler := handler.NewPlanHandler(orchestrator, planSvc)
	destinationHandler := handler.NewDestinationHandler(gate)
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// ── Start workers ───────────────────────────────────
	// Drafts left behind by a previous process go back on the queue first.
	if n, err := orchestrator.RecoverStranded(ctx); err != nil {
		log.Printf("⚠ stranded plan recovery failed: %v", err)
	} else if n > 0 {
		log.Printf("✓ Re-enqueued %d stranded plans", n)
	}

	pool := worker.NewPool(queue, orchestrator.Process, cfg.Worker.Count)
	pool.Start(ctx)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.Use(middleware.Recoverer, middleware.RequestLogger)

	// Health check and metrics endpoints.
	router.HandleFunc("/health", healthHandler(pgPool, redisClient, queue)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()
	handler.RegisterRoutes(api, planHandler, destinationHandler, auth.Authenticate, limiter.Limit)

	// Wrap with CORS so browser clients can call the API.
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
	}).Handler(router)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	// In-flight generations see cancellation and put their plans back on
	// the queue.
	pool.Stop()

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity
// and reports the plan queue depth.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client, queue *worker.RedisQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		if depth, err := queue.Len(r.Context()); err == nil {
			resp.Services["plan_queue"] = fmt.Sprintf("%d pending", depth)
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
