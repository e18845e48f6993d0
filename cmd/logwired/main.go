package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/logwire/internal/auth"
	"github.com/danmuck/logwire/internal/config"
	"github.com/danmuck/logwire/internal/host"
	"github.com/danmuck/logwire/internal/observability"
	"github.com/rs/zerolog"
)

var startedAt = time.Now()

func main() {
	configPath := flag.String("config", "", "path to logwired TOML config (defaults only when empty)")
	flag.Parse()

	cfg, logger, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logwired: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "logwired: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config, which also reads .env, before the logger is built.
func setup(configPath string) (config.HostConfig, zerolog.Logger, error) {
	cfg, err := config.LoadHostConfig(configPath)
	if err != nil {
		return config.HostConfig{}, zerolog.Logger{}, err
	}
	return cfg, observability.InitLogger("logwired", cfg.LogLevel), nil
}

func run(cfg config.HostConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           observability.RequestLogger(logger, routes(cfg.Name, cfg.MetricsToken)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err := host.New(cfg).Run(ctx)
	logger.Info().Msg("logwired stopped")
	return err
}

func routes(name, token string) http.Handler {
	mux := http.NewServeMux()
	metrics := observability.Handler()
	if token != "" {
		metrics = auth.RequireBearer(auth.StaticToken{Token: token}, metrics)
	}
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","uptime":%q,"service":%q}`, time.Since(startedAt).String(), name)
	})
	return mux
}
