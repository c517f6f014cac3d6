package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/mano-sesan/mano-stats/internal/anomaly"
	"github.com/mano-sesan/mano-stats/internal/config"
	"github.com/mano-sesan/mano-stats/internal/db"
	"github.com/mano-sesan/mano-stats/internal/export"
	"github.com/mano-sesan/mano-stats/internal/ingestion"
	"github.com/mano-sesan/mano-stats/internal/middleware"
	"github.com/mano-sesan/mano-stats/internal/repository"
	"github.com/mano-sesan/mano-stats/internal/stats"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig, err := config.LoadDBConfig(".")
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	serverConfig, err := config.LoadServerConfig(".")
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}

	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, serverConfig.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	orgRepo := repository.NewOrganizationRepository(conn.Pool)
	personRepo := repository.NewPersonRepository(conn.Pool)
	logRepo := repository.NewIngestionLogRepository(conn.Pool)

	// Services
	reporter := anomaly.NewLogReporter()
	statsService := stats.NewService(orgRepo, personRepo, stats.WithReporter(reporter))
	ingestionService := ingestion.NewService(personRepo, logRepo)
	exportService := export.NewService(orgRepo, statsService)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   serverConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(
			middleware.LoggingMiddleware(
				middleware.DataLoaderMiddleware(personRepo)(h),
			),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/stats/", wrap(stats.NewHTTPHandler(statsService)))
	mux.Handle("/ingest", wrap(ingestion.NewHTTPHandler(ingestionService)))
	mux.Handle("/exports/", wrap(export.NewHTTPHandler(exportService)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         serverConfig.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting stats server on %s", serverConfig.Addr)
		log.Printf("Cohort endpoint available at POST %s/stats/cohort", serverConfig.Addr)
		log.Printf("Transition endpoint available at POST %s/stats/transition", serverConfig.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
