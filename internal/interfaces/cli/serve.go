package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/molscout/internal/bootstrap"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
)

type serveOptions struct {
	httpPort int
	grpcPort int
	noGRPC   bool
	watch    bool
}

// NewServeCmd runs the API in the foreground until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the molscout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.httpPort, "http-port", 0, "override server.http.port")
	f.IntVar(&opts.grpcPort, "grpc-port", 0, "override server.grpc.port")
	f.BoolVar(&opts.noGRPC, "no-grpc", false, "disable the gRPC health endpoint")
	f.BoolVar(&opts.watch, "watch", false, "reload log.level when the config file changes")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	if opts.httpPort != 0 {
		cfg.Server.HTTP.Port = opts.httpPort
	}
	if opts.grpcPort != 0 {
		cfg.Server.GRPC.Port = opts.grpcPort
	}
	if opts.noGRPC {
		cfg.Server.GRPC.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The server logs with the configured format, not the CLI's console one.
	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	if opts.watch {
		if cliCtx.ConfigPath == "" {
			logger.Warn("--watch needs --config; config watch disabled")
		} else if err := bootstrap.WatchLogLevel(cliCtx.ConfigPath, logger); err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting molscout", logging.String("version", bootstrap.Version))
	return app.Run(ctx)
}
