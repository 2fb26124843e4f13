package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"

	"github.com/12darko/TeacherConnect-sub000/internal/config"
	"github.com/12darko/TeacherConnect-sub000/internal/db"
	internalgrpc "github.com/12darko/TeacherConnect-sub000/internal/grpc"
	internalhttp "github.com/12darko/TeacherConnect-sub000/internal/http"
	"github.com/12darko/TeacherConnect-sub000/internal/metrics"
	"github.com/12darko/TeacherConnect-sub000/internal/signaling"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
	"github.com/12darko/TeacherConnect-sub000/internal/store/memory"
)

const healthReportInterval = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(config.Load())
		},
	}
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st   store.Store
		ping func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		st = db.NewStore(pool)
		ping = pool.Ping
	} else {
		log.Printf("DATABASE_URL not set; using the in-memory store")
		st = memory.New()
	}

	relay, err := newRelay(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := relay.Close(); err != nil {
			log.Printf("relay close error: %v", err)
		}
	}()

	server := internalhttp.NewServer(cfg, st, relay, metrics.New(), internalhttp.WithHealthCheck(ping))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.ServiceAuthToken == "" {
		log.Printf("SERVICE_AUTH_TOKEN not set; gRPC runs without service authentication")
	}
	grpcServer, healthServer, err := internalgrpc.NewServer(cfg.ServiceAuthToken)
	if err != nil {
		return err
	}
	go reportHealth(ctx, healthServer, ping)

	go func() {
		log.Printf("teacherconnect http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen error: %v", err)
		}
		log.Printf("teacherconnect grpc listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("grpc server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	grpcServer.GracefulStop()
	return nil
}

func newRelay(ctx context.Context, cfg config.Config) (signaling.Relay, error) {
	if cfg.RedisAddr == "" {
		return signaling.NewMemoryRelay(cfg.SignalBuffer), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return signaling.NewRedisRelay(client, cfg.SignalBuffer), nil
}

// reportHealth keeps the gRPC health status in line with the database.
func reportHealth(ctx context.Context, healthServer *health.Server, ping func(context.Context) error) {
	ticker := time.NewTicker(healthReportInterval)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		internalgrpc.ReportHealth(checkCtx, healthServer, ping)
		cancel()
		select {
		case <-ctx.Done():
			healthServer.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL)
}
