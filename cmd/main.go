package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"wedding/guesthub/internal/config"
	"wedding/guesthub/internal/events"
	"wedding/guesthub/internal/handler"
	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/repository"
	"wedding/guesthub/internal/service"
	jwtpkg "wedding/guesthub/pkg/jwt"
	"wedding/guesthub/pkg/metrics"
	"wedding/guesthub/pkg/mq"
	"wedding/guesthub/pkg/obs"
)

var version = "dev"

func main() {
	configPath := "config.yaml"
	if p := os.Getenv("GUESTHUB_CONFIG"); p != "" {
		configPath = p
	}

	// 1. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Tracing
	if cfg.Tracing.Enabled {
		shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracerConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Version:     version,
			Environment: cfg.Tracing.Environment,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	// 4. Initialize guest record store (Postgres or in-memory)
	var store repository.Store
	switch cfg.Store.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				logger.Fatal("failed to auto-migrate", zap.Error(err))
			}
			logger.Info("database migration completed")
		}
		store = repository.NewPGStore(db)
		logger.Info("using Postgres guest store")
	case "memory":
		store = repository.NewMemoryStore()
		logger.Info("using in-memory guest store")
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		stateStore = repository.NewRedisStateStore(redisClient, cfg.State.KeyPrefix)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, registry)
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = registry
	}

	// 7. Event bus, optionally mirrored to RabbitMQ
	bus := events.NewBus(logger)
	if cfg.Events.AMQP.Enabled {
		publisher, err := mq.NewPublisher(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer publisher.Close()
		stopBridge := events.BridgeToBroker(bus, publisher, cfg.Events.AMQP.PublishTimeout, logger)
		defer stopBridge()
		logger.Info("publishing events to rabbitmq", zap.String("exchange", cfg.Events.AMQP.Exchange))
	}

	// 8. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 9. Initialize services
	rsvpService := service.NewRSVPService(store, bus, m, logger)
	guestService := service.NewGuestService(store, stateStore, rsvpService, bus, m, logger)
	seatService := service.NewSeatService(store, stateStore, bus, m, logger, service.SeatConfig{
		LockTTL:  cfg.Seating.LockTTL,
		LockWait: cfg.Seating.LockWait,
	})

	// 10. Initialize handlers
	guestHandler := handler.NewGuestHandler(guestService, rsvpService)
	bookingHandler := handler.NewBookingHandler(seatService)
	eventsHandler := handler.NewEventsHandler(bus, logger)
	adminHandler := handler.NewAdminHandler(guestService, seatService)

	// 11. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, gatherer, guestHandler, bookingHandler, eventsHandler, adminHandler)

	// 12. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 13. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("server exited gracefully")
}
