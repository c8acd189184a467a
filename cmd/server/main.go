package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urbanfIare/dmt-app/internal/app"
	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/config"
	"github.com/urbanfIare/dmt-app/internal/database"
	"github.com/urbanfIare/dmt-app/internal/handlers"
	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/router"
	"github.com/urbanfIare/dmt-app/internal/services"
	"github.com/urbanfIare/dmt-app/internal/telemetry"
	"github.com/urbanfIare/dmt-app/internal/websocket"
	"github.com/urbanfIare/dmt-app/internal/worker"
)

func main() {
	log.Println("🚀 Starting study session server...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("✗ Configuration invalid: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Tracing ────
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		log.Fatalf("✗ Tracing setup failed: %v", err)
	}
	if cfg.OTelEndpoint != "" {
		log.Printf("✓ Tracing exports to %s", cfg.OTelEndpoint)
	}

	// ──── Step 3: Open Store & Run Migrations ────
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("✗ Store initialization failed: %v", err)
	}
	defer stores.Close()
	log.Printf("✓ %s store ready", stores.Backend)

	// ──── Step 4: Redis & Notification Workers ────
	clk := clock.System{}
	var (
		notifier   services.Notifier
		workerPool *worker.Pool
		wsHub      *websocket.Hub
	)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		redisClients, err = database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		log.Println("✓ Redis connected")

		notifier = services.NewQueueNotifier(services.NewRedisQueue(redisClients.Queue), clk)
		workerPool = worker.NewPool(
			redisClients.Queue,
			stores.Members,
			worker.NewRedisPublisher(redisClients.PubSub),
			clk,
			cfg.NotificationWorkers,
		)
		workerPool.Start()
		log.Printf("✓ Notification workers started (%d goroutines)", cfg.NotificationWorkers)
	} else {
		log.Println("! REDIS_URL not set, realtime notifications disabled")
	}

	// ──── Step 5: Engine Services & Sweeps ────
	engine := app.NewEngine(stores, notifier, clk)
	scheduler := services.NewScheduler(engine.Sweeps(cfg)...)
	scheduler.Start()
	log.Println("✓ Sweep scheduler started")

	// ──── Step 6: WebSocket Hub ────
	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, jwtAuth, engine.Restriction)
	} else {
		wsHub = websocket.NewHub(nil, jwtAuth, engine.Restriction)
	}
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		handlers.NewStudySessionHandler(engine.Sessions, engine.Restriction),
		handlers.NewPhoneExceptionHandler(engine.Exceptions),
		handlers.NewAttendanceHandler(engine.Attendance),
		handlers.NewRestrictionHandler(engine.Restriction, clk),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		scheduler.Stop()
		if workerPool != nil {
			workerPool.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	log.Printf("✓ Server ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
