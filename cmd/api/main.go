package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hearts-echo/cmd"
	"hearts-echo/internal/api"
	"hearts-echo/internal/config"
	"hearts-echo/internal/core"
	"hearts-echo/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const indexKey = "index.md"

func loadIndexPage(ctx context.Context, provider storage.Provider, bucket string) *api.IndexPage {
	data, err := provider.GetObject(ctx, bucket, indexKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			slog.Warn("no documentation page found, / will not be served", "key", indexKey)
			return nil
		}
		log.Fatalf("error loading documentation page: %v", err)
	}
	return api.NewIndexPage(data)
}

func randomSource(seed int64) rand.Source {
	if seed == 0 {
		return nil
	}
	slog.Info("using fixed random seed for template selection", "seed", seed)
	return rand.NewSource(seed)
}

func createServer(cfg *config.Config, service *api.EchoService) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	service.AddRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	log.Println("Starting Hearts Echo server...")

	cmd.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	closeLog := cmd.SetupLogging(cfg.LogFile)
	defer closeLog()

	provider, bucket, err := cmd.NewTemplateStore(cfg)
	if err != nil {
		log.Fatalf("error creating template store: %v", err)
	}

	ctx := context.Background()

	registry := core.NewRegistry(core.NewStorageSource(provider, bucket))
	if err := registry.Preload(ctx, cfg.PreloadWorkers); err != nil {
		var reserved *core.ReservedWordError
		if errors.As(err, &reserved) {
			log.Fatalf("template bank uses a reserved word: %v", err)
		}
		log.Fatalf("error loading template banks: %v", err)
	}

	vocab, err := registry.Vocabulary(ctx)
	if err != nil {
		log.Fatalf("error building field vocabulary: %v", err)
	}
	slog.Info("field vocabulary loaded", "fields", vocab.Names())

	service := api.NewEchoService(
		registry,
		core.NewSelector(vocab, randomSource(cfg.RandomSeed)),
		api.MustNewMetrics(prometheus.DefaultRegisterer),
		loadIndexPage(ctx, provider, bucket),
	)

	server := createServer(cfg, service)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
