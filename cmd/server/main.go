package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/api"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/feed"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/gateway"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/generator"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/hub"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/repository"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/scheduler"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/scraper"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/store"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	rnd := generator.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	clock := generator.RealClock{}

	// Bootstrap: a valid synthetic snapshot exists before anything can read
	gen := generator.New(logger, rnd, clock)
	st := store.New(gen.Generate(nil), nil)
	logger.Info("Initial synthetic data loaded", zap.Int("stocks", generator.RosterSize))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Redis mirror: warm-start from a fresh mirrored snapshot and
	// keep mirroring new ones. The server runs fine without it.
	var mirror *repository.RedisMirror
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, mirroring disabled", zap.Error(err))
			rdb.Close()
		} else {
			mirror = repository.NewRedisMirror(rdb, cfg.Redis.TTL)
			if snap, err := mirror.Load(ctx); err != nil {
				logger.Warn("Mirror load failed", zap.Error(err))
			} else if snap != nil && len(snap.Stocks) > 0 {
				st.Replace(snap)
				logger.Info("Warm-started from Redis mirror", zap.Int("stocks", len(snap.Stocks)))
			}
		}
	}

	// Optional Kafka export feed for downstream consumers
	var exporter *feed.TickExporter
	if len(cfg.Kafka.Brokers) > 0 {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
		}
		exporter = feed.NewTickExporter(writer, logger)
		logger.Info("Kafka export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	wsHub := hub.NewHub(st, logger)
	scr := scraper.New(cfg.Scraper.BaseURL, cfg.Scraper.Timeout, logger, rnd, clock)

	opts := scheduler.Options{
		MajorInterval:  cfg.Refresh.MajorInterval,
		JitterInterval: cfg.Refresh.JitterInterval,
	}
	if mirror != nil {
		opts.Mirror = mirror
	}
	if exporter != nil {
		opts.Exporter = exporter
	}
	sched := scheduler.New(st, scr, gen, wsHub, rnd, clock, logger, opts)
	sched.Run(ctx)

	apiServer := api.NewServer(st, logger)
	router := apiServer.Routes(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		client := gateway.NewClient(conn, wsHub, logger)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: router}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if exporter != nil {
		if err := exporter.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		}
	}
	if mirror != nil {
		mirror.Close()
	}

	logger.Info("Shutdown Complete")
}
