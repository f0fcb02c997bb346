// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/GasperHribersek/SOA-project-fintech/auth"
	"github.com/GasperHribersek/SOA-project-fintech/config"
	"github.com/GasperHribersek/SOA-project-fintech/database"
	"github.com/GasperHribersek/SOA-project-fintech/handlers"
	"github.com/GasperHribersek/SOA-project-fintech/logbus"
	"github.com/GasperHribersek/SOA-project-fintech/middleware"
	"github.com/GasperHribersek/SOA-project-fintech/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		log.Fatalf("Failed to create database tables: %v", err)
	}
	cancelSchema()

	// --- Initialize the log bus ---
	busLogger := logbus.New(cfg.KafkaBrokers, cfg.LogTopic, cfg.ServiceName)
	defer busLogger.Close()

	// --- Select the token verification strategy ---
	var verifier auth.TokenVerifier
	switch cfg.AuthMode {
	case "remote":
		verifier = auth.NewRemoteVerifier(cfg.AuthServiceURL)
		log.Printf("Token verification delegated to auth service at %s", cfg.AuthServiceURL)
	default:
		verifier = auth.NewLocalVerifier(cfg.JWTSecret)
		log.Println("Token verification using local shared secret")
	}

	// --- Initialize Store and Handlers ---
	eventStore := store.NewEventStore(dbClient.DB)
	analyticsHandlers := handlers.NewAnalyticsHandlers(eventStore)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/api/analytics")
	api.Use(middleware.Correlation(busLogger))
	api.Use(middleware.AuthRequired(verifier))
	{
		api.POST("/event", analyticsHandlers.TrackEvent)
		api.POST("/events", analyticsHandlers.TrackEventsBatch)
		api.GET("/events", analyticsHandlers.GetEvents)
		api.GET("/stats", analyticsHandlers.GetStats)
		api.PUT("/event/:id", analyticsHandlers.UpdateEvent)
		api.PUT("/events", analyticsHandlers.UpdateEventsBatch)
		api.DELETE("/event/:id", analyticsHandlers.DeleteEvent)
		api.DELETE("/events", analyticsHandlers.DeleteEvents)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Analytics API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Analytics API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
