// API server entry point for molscout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/molscout/internal/bootstrap"
	"github.com/turtacn/molscout/internal/config"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	watch := flag.Bool("watch", false, "reload log.level when the config file changes")
	flag.Parse()

	cfg, fromFile, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.HTTP.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.Server.GRPC.Port = *grpcPort
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer func() { _ = logging.Sync(logger) }()

	if !fromFile {
		logger.Warn("config file not found, using defaults and environment", logging.String("path", *configPath))
	} else if *watch {
		if err := bootstrap.WatchLogLevel(*configPath, logger); err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", logging.Err(err))
	}
	logger.Info("starting molscout API server",
		logging.String("version", bootstrap.Version),
		logging.Int("http_port", cfg.Server.HTTP.Port),
		logging.Bool("grpc_enabled", cfg.Server.GRPC.Enabled),
		logging.Int("grpc_port", cfg.Server.GRPC.Port),
	)

	if err := app.Run(ctx); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		_ = logging.Sync(logger)
		os.Exit(1)
	}
	logger.Info("servers stopped")
}

// loadConfig reads path when it exists and otherwise falls back to defaults
// overlaid with MOLSCOUT_* variables. The bool reports whether the file was
// used.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := config.LoadFromEnv()
		return cfg, false, err
	}
	cfg, err := config.LoadFromFile(path)
	return cfg, true, err
}
