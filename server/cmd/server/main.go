package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minikv/minikv/server/internal/api"
	"github.com/minikv/minikv/server/internal/command"
	"github.com/minikv/minikv/server/internal/config"
	"github.com/minikv/minikv/server/internal/metrics"
	"github.com/minikv/minikv/server/internal/rpc"
	"github.com/minikv/minikv/server/internal/server"
	"github.com/minikv/minikv/server/internal/store"
	"github.com/minikv/minikv/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	host := flag.String("host", "", "override server.host")
	port := flag.Int("port", 0, "override server.port")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("minikv-server starting", "config", *configPath)

	cfg, err := loadConfig(*configPath, *host, *port)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"addr", cfg.Server.Addr(),
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"default_ttl", cfg.Store.DefaultTTL,
		"sweep_interval", cfg.Store.SweepInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *configPath, level); err != nil {
		slog.Error("minikv-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("minikv-server shut down")
}

// loadConfig reads path (or the defaults) and applies flag overrides.
func loadConfig(path, host string, port int) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// run wires every component and blocks until ctx is cancelled or the line
// protocol listener fails.
func run(ctx context.Context, cfg *config.Config, configPath string, level *slog.LevelVar) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := store.New(store.Options{DefaultTTL: cfg.Store.DefaultTTL})
	sweeper := store.NewSweeper(st, cfg.Store.SweepInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	interp := command.New(st)
	srv := server.New(cfg.Server.Addr(), interp, server.Options{MaxLineBytes: cfg.Server.MaxLineBytes})

	if configPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := config.Watch(ctx, configPath, func(updated *config.Config) {
				st.SetDefaultTTL(updated.Store.DefaultTTL)
				sweeper.SetInterval(updated.Store.SweepInterval)
				level.Set(updated.Log.SlogLevel())
				slog.Info("config hot-reloaded",
					"default_ttl", updated.Store.DefaultTTL,
					"sweep_interval", updated.Store.SweepInterval,
					"log_level", updated.Log.Level,
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	if cfg.Server.HTTPPort > 0 {
		console := ws.New(interp)
		wg.Add(1)
		go func() {
			defer wg.Done()
			console.Run(ctx)
		}()

		mux := http.NewServeMux()
		mux.Handle("/api/", api.New(st, srv, console))
		mux.Handle("/metrics", metrics.New(st, interp, srv, console))
		mux.Handle("/ws/console", console)

		httpSrv := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.HTTPPort)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("HTTP server listening", "addr", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
		}()
	}

	if cfg.Server.GRPCPort > 0 {
		addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.GRPCPort))
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
		}
		health := rpc.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Serve(ctx, lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	err := srv.ListenAndServe(ctx)
	cancel()
	return err
}
