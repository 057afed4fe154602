package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crimewatch/classify"
	"crimewatch/config"
	"crimewatch/database"
	"crimewatch/gemini"
	"crimewatch/handlers"
	"crimewatch/metrics"
	"crimewatch/parser"
	"crimewatch/rabbitmq"
	"crimewatch/reward"
	"crimewatch/service"
	"crimewatch/workflow"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.SetLevelFromString(cfg.LogLevel)

	// Validate required configuration
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}
	if err := db.MigrateReportsTable(); err != nil {
		log.Fatalf("Failed to migrate reports table: %v", err)
	}

	metrics.Register()

	// Initialize the classification port and workflow
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	classifier := classify.New(llm, cfg.ClassifyTimeout, cfg.FallbackCategory)
	wf := workflow.New(classifier, parser.NormalizeCrimeType(cfg.FallbackCategory))

	// Initialize the reward sender; the service runs without one
	var sender reward.Sender
	if cfg.EthNetworkURL != "" && cfg.EthPrivateKey != "" {
		ethSender, err := reward.NewEthSender(cfg.EthNetworkURL, cfg.EthPrivateKey, cfg.ExplorerURLFmt)
		if err != nil {
			log.Fatalf("Failed to initialize reward sender: %v", err)
		}
		sender = ethSender
	} else {
		log.Warn("Reward sender not configured, payouts disabled")
	}

	// Initialize the optional event publisher
	var publisher *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAnalyzedKey)
		if err != nil {
			log.Warnf("Failed to initialize RabbitMQ publisher, events disabled: %v", err)
		}
	}
	defer publisher.Close()

	// Initialize service and handlers
	svc := service.New(cfg, db, wf, sender, publisher)
	h := handlers.NewHandlers(svc)

	// Setup HTTP server
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API routes
	api := router.Group("/api/v3")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/report", h.SubmitReport)
		api.POST("/verify", h.Verify)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/:seq", h.GetReport)
		api.POST("/reports/:seq/analyze", h.ReanalyzeReport)
		api.GET("/stats", h.GetStats)
		api.POST("/map", h.GetMap)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
