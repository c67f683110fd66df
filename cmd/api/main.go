//	@title			Media CDN Upload API
//	@version		1.0
//	@description	Multi-tenant image ingestion endpoint. Uploads are recompressed to a size budget and served back under per-tenant public URLs.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-KEY
//	@description				Per-tenant API key.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/umedia/cdn-service/internal/cdn"
	"github.com/umedia/cdn-service/internal/config"
	"github.com/umedia/cdn-service/internal/imaging"
	appMiddleware "github.com/umedia/cdn-service/internal/middleware"
	"github.com/umedia/cdn-service/internal/storage"
	"github.com/umedia/cdn-service/internal/tenant"
	"github.com/umedia/cdn-service/internal/upload"

	_ "github.com/umedia/cdn-service/docs/swagger"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		log.Fatalf("create base dir %q: %v", cfg.BaseDir, err)
	}

	registry := tenant.NewRegistry(cfg.Tenants)
	if registry.Len() == 0 {
		log.Println("warning: no tenants provisioned, every upload will be rejected")
	}

	// Wire dependencies: registry + encoder + allocator + disk → service → handler
	encoder := imaging.New(cfg.MaxUploadBytes, cfg.MaxDimension)
	allocator := cdn.NewAllocator(cfg.BaseDir)
	disk := storage.NewDisk()
	uploadSvc := upload.NewService(registry, encoder, allocator, disk, cfg.EncodeWorkers)
	uploadHandler := upload.NewHandler(uploadSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-KEY", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Local-only convenience: serve stored assets directly. In production a
	// CDN or dedicated file server fronts the same directory tree.
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.BaseDir))))

	// API
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload/{service}/{category}", uploadHandler.Upload)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, tenants=%d)", cfg.Port, cfg.AppEnv, registry.Len())
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
