package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-service/config"
	"commerce-service/internal/cache"
	"commerce-service/internal/database"
	"commerce-service/internal/gateway"
	"commerce-service/internal/idgen"
	"commerce-service/internal/logger"
	"commerce-service/internal/producer"
	"commerce-service/internal/repository"
	"commerce-service/internal/service"
	"commerce-service/internal/transport/httpx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	// Redis backs the daily order-number sequence; without it the service
	// falls back to a count-based sequence with duplicate-key retries.
	var seq idgen.SequenceSource
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		seq = redisClient
		log.Info("redis sequence source enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Event bus is optional (nil disables publishing)
	var bus service.EventBus
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		kafkaProducer := producer.NewEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaProducer.Close()
		bus = kafkaProducer
		log.Info("kafka event bus enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	var adapter gateway.Adapter
	switch cfg.GatewayMode {
	case "none":
		log.Warn("payment gateway disabled, charges stay pending")
	default:
		adapter = gateway.NewSandbox()
	}

	orderSvc := service.NewOrderService(repos, seq, bus)
	paymentSvc := service.NewPaymentService(repos, adapter, bus, log)

	router := httpx.NewRouter(
		httpx.RouterConfig{JWTSecret: cfg.JWTSecret},
		httpx.NewOrderHandler(orderSvc, log),
		httpx.NewPaymentHandler(paymentSvc, log),
		log,
	)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting commerce HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down commerce HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("Commerce HTTP server stopped gracefully")
}
