package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/rl1809/shop/internal/adapter/handler"
	"github.com/rl1809/shop/internal/adapter/storage"
	"github.com/rl1809/shop/internal/config"
	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/service"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/platform/observability"
	"github.com/rl1809/shop/internal/port"
)

const (
	serviceName     = "shop"
	serviceVersion  = "0.1.0"
	shutdownTimeout = 5 * time.Second
	healthInterval  = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	seed := flag.Bool("seed", false, "load the sample members, items and orders")
	flag.Parse()

	if err := run(*configPath, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "shop: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, serviceName, serviceVersion, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	// Initialize database
	store, err := storage.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", cfg.Database.Driver, err)
	}
	log.Info("connected to database", "driver", cfg.Database.Driver)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	deps := map[string]handler.Pinger{"database": store}

	// Initialize Redis
	var idempotency port.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()

		redisAdapter := storage.NewRedisAdapter(rdb)
		if err := redisAdapter.Ping(ctx); err != nil {
			log.Warn("redis unavailable, order requests are not deduplicated", "addr", cfg.Redis.Addr, "error", err)
		} else {
			log.Info("connected to redis", "addr", cfg.Redis.Addr)
			idempotency = redisAdapter
			deps["redis"] = redisAdapter
		}
	}

	// Initialize services
	items := service.NewItemService(store, log)
	members := service.NewMemberService(store, log)
	orders := service.NewOrderService(store, store.Queries(cfg.Query.BatchSize), idempotency, log)
	categories := service.NewCategoryService(store, log)

	if seed || cfg.Database.Seed {
		_, err := service.NewSeeder(members, items, orders, log).Seed(ctx)
		switch {
		case errors.Is(err, domain.ErrConflict):
			log.Info("sample data already present")
		case err != nil:
			return err
		}
	}

	var limiter *rate.Limiter
	if cfg.Orders.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Orders.RatePerSecond), cfg.Orders.Burst)
	}

	httpHandler := handler.NewHTTPHandler(orders, items, members, categories, limiter, store, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health := handler.NewGRPCHealth(deps, healthInterval, log)
	health.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return health.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("connections closed")
	return nil
}
