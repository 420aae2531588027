package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"touristsafety/config"
	"touristsafety/controllers"
	"touristsafety/database"
	"touristsafety/routes"
	"touristsafety/websocket"
	"touristsafety/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DatabaseName, cfg.SeedDemoData)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Redis is optional; rate limits and the responder cache degrade without it
	redisClient := config.InitRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := config.InitNATS(cfg)
	if err != nil {
		logrus.WithError(err).Warn("NATS unavailable, alert events are logged only")
		natsConn = nil
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// The hub gets its location handler once services exist
	hub := websocket.NewHub(nil)

	coordination := workers.NewCoordinationWorker(workers.CoordinationWorkerConfig{
		WorkerCount:       cfg.Coordination.Workers,
		QueueSize:         cfg.Coordination.QueueSize,
		ProcessingTimeout: cfg.Coordination.JobTimeout,
		RetryAttempts:     cfg.Coordination.JobRetries,
		RetryDelay:        cfg.Coordination.RetryDelay,
	})

	repos := routes.InitializeRepositories(db)
	svcs := routes.InitializeServices(cfg, repos, routes.Infrastructure{
		Redis:   redisClient,
		NATS:    natsConn,
		Hub:     hub,
		Queue:   coordination,
		Senders: cfg.InitNotificationSenders(startupCtx),
	})

	hub.SetLocationPinger(svcs.Location)
	go hub.Run()

	if err := svcs.Responder.Warm(startupCtx); err != nil {
		logrus.WithError(err).Warn("Failed to warm responder cache")
	}

	// Initialize workers
	zoneReload := workers.NewZoneReloadWorker(svcs.Zone, workers.ZoneReloadWorkerConfig{
		Interval: cfg.ZoneReloadInterval,
	})

	cleanupConfig := workers.DefaultCleanupWorkerConfig()
	cleanupConfig.LocationRetention = cfg.LocationRetention
	cleanup := workers.NewCleanupWorker(repos.Location, repos.Notification, repos.Alert, redisClient, cleanupConfig)

	inactivityConfig := workers.DefaultInactivityWorkerConfig()
	inactivityConfig.QuietPeriod = cfg.InactivityQuietPeriod
	inactivity := workers.NewInactivityWorker(repos.Location, repos.Alert, svcs.Coordinator, inactivityConfig)

	background := []struct {
		name   string
		worker interface {
			Start() error
			Stop() error
		}
	}{
		{"coordination", coordination},
		{"zone reload", zoneReload},
		{"cleanup", cleanup},
		{"inactivity", inactivity},
	}
	for _, bg := range background {
		if err := bg.worker.Start(); err != nil {
			logrus.WithError(err).Errorf("Failed to start %s worker", bg.name)
		}
	}

	// Setup routes
	router := routes.SetupRoutes(cfg, repos, svcs, redisClient, hub, healthChecks(redisClient, natsConn))

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("🚀 Tourist Safety API starting on port ", cfg.Port)
		logrus.Info("📱 WebSocket endpoint: /ws")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	hub.Shutdown()

	// Producers first so the coordination queue drains last
	for i := len(background) - 1; i >= 0; i-- {
		if err := background[i].worker.Stop(); err != nil {
			logrus.WithError(err).Warnf("Failed to stop %s worker", background[i].name)
		}
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logrus.WithError(err).Warn("Failed to drain NATS connection")
		}
	}

	logrus.Info("✅ Server shutdown complete")
}

func healthChecks(redisClient *redis.Client, natsConn *nats.Conn) map[string]controllers.HealthCheck {
	checks := map[string]controllers.HealthCheck{
		"mongodb": database.Ping,
		"redis":   nil,
		"nats":    nil,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		checks["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
