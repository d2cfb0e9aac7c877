package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/costing"
	"github.com/finsizer/sizing-engine/internal/metrics"
	"github.com/finsizer/sizing-engine/internal/planner"
	"github.com/finsizer/sizing-engine/internal/rates"
	"github.com/finsizer/sizing-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()
	var rdb *redis.Client

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil {
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Minimum-cost floor ---
	minimumCost := costing.DefaultMinimumCost
	if raw := os.Getenv("MINIMUM_COST"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			slog.Error("invalid MINIMUM_COST", "value", raw, "err", err)
			os.Exit(1)
		}
		minimumCost = parsed
	}
	agg := costing.NewAggregator(minimumCost)

	// --- Exchange-rate client ---
	var rateSource planner.RateSource
	if baseURL := os.Getenv("RATE_API_URL"); baseURL != "" {
		rateSource = rates.NewClient(baseURL, rdb, 15*time.Minute)
		slog.Info("exchange-rate lookups enabled")
	}

	// --- WebSocket hub ---
	wsHub := planner.NewWSHub()
	go wsHub.Run()

	// --- Planner service ---
	svc := planner.NewService(st, agg, rateSource, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"sizing-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time recalculation triggers.
		r.Get("/ws", wsHub.HandleWS)

		// Provider management.
		r.Get("/providers", svc.ListProviders)
		r.Post("/providers", svc.CreateProvider)
		r.Get("/providers/{providerID}", svc.GetProvider)
		r.Put("/providers/{providerID}", svc.UpdateProvider)
		r.Delete("/providers/{providerID}", svc.DeleteProvider)

		// Calculations.
		r.Post("/quote", svc.Quote)
		r.Post("/size", svc.Size)
		r.Post("/difference", svc.Difference)

		// Settings.
		r.Get("/settings", svc.GetSettings)
		r.Put("/settings", svc.SaveSettings)

		// Exchange rates.
		r.Get("/rates/{from}/{to}", svc.GetRate)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("sizing-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down sizing-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("sizing-engine stopped")
}
