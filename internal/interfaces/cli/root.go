// Package cli implements the molscout command-line tool: the serve command
// that runs the API, and query commands that call it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/molscout/internal/bootstrap"
	"github.com/turtacn/molscout/internal/config"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/pkg/client"
	"github.com/turtacn/molscout/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
	// Local runs queries in-process instead of calling a server.
	Local bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config *config.Config
	// ConfigPath is the --config flag value, empty when discovered or absent.
	ConfigPath   string
	Logger       logging.Logger
	Querier      MoleculeQuerier
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// RootOption customizes NewRootCommand.
type RootOption func(*rootDeps)

type rootDeps struct {
	querier MoleculeQuerier
	config  *config.Config
}

// WithQuerier replaces the querier built from flags.
func WithQuerier(q MoleculeQuerier) RootOption {
	return func(d *rootDeps) { d.querier = q }
}

// WithConfig skips config file discovery.
func WithConfig(cfg *config.Config) RootOption {
	return func(d *rootDeps) { d.config = cfg }
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand(options ...RootOption) *cobra.Command {
	opts := &RootOptions{}
	deps := &rootDeps{}
	for _, o := range options {
		o(deps)
	}

	cmd := &cobra.Command{
		Use:   "molscout",
		Short: "molscout finds molecules similar to a SMILES structure",
		Long: "molscout generates structural analogues of a molecule, lists commercial\n" +
			"reagents and searches PubChem for substructure matches. Run 'molscout serve'\n" +
			"to start the HTTP API, or use the query commands against a running server.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", bootstrap.Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./molscout.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-command timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address (default: derived from server.http in config)")
	pf.BoolVar(&opts.Local, "local", false, "run queries in-process instead of calling a server")

	cmd.AddCommand(
		NewServeCmd(),
		NewSimilarCmd(),
		NewCommercialCmd(),
		NewPubChemCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps *rootDeps) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q", opts.OutputFormat))
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg := deps.config
	if cfg == nil {
		var err error
		if cfg, err = initConfig(opts); err != nil {
			return fmt.Errorf("config initialization failed: %w", err)
		}
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	querier := deps.querier
	if querier == nil && needsQuerier(cmd) {
		if querier, err = initQuerier(cfg, opts, logger); err != nil {
			return err
		}
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   opts.ConfigPath,
		Logger:       logger,
		Querier:      querier,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// needsQuerier reports whether cmd is one of the query commands.
func needsQuerier(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[annotationSource]
	return ok
}

// initConfig loads an explicit config file, else the first file found on the
// search path, else environment variables over defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFromFile(opts.ConfigPath)
	}

	searchPaths := []string{"./molscout.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".molscout", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/molscout/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.LoadFromFile(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger writes console logs to stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := logging.LevelWarn
	switch strings.ToLower(opts.LogLevel) {
	case "debug":
		level = logging.LevelDebug
	case "info":
		level = logging.LevelInfo
	case "error":
		level = logging.LevelError
	}
	if opts.Verbose {
		level = logging.LevelDebug
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

func initQuerier(cfg *config.Config, opts *RootOptions, logger logging.Logger) (MoleculeQuerier, error) {
	if opts.Local {
		svc, err := bootstrap.NewService(cfg, logger, nil)
		if err != nil {
			return nil, err
		}
		return NewServiceQuerier(svc), nil
	}

	c, err := client.NewClient(serverAddr(cfg, opts),
		client.WithTimeout(opts.Timeout),
		client.WithLogger(clientLogger{logger}),
		client.WithUserAgent(fmt.Sprintf("molscout-cli/%s", bootstrap.Version)),
	)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return c.Molecules(), nil
}

// serverAddr prefers --server, then the configured HTTP listener. A wildcard
// bind host is dialled as localhost.
func serverAddr(cfg *config.Config, opts *RootOptions) string {
	if opts.ServerAddr != "" {
		return opts.ServerAddr
	}
	host := cfg.Server.HTTP.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	port := cfg.Server.HTTP.Port
	if port == 0 {
		port = config.DefaultHTTPPort
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// clientLogger adapts logging.Logger to the SDK's printf-style logger.
type clientLogger struct{ l logging.Logger }

func (c clientLogger) Debugf(format string, args ...interface{}) { c.l.Debug(fmt.Sprintf(format, args...)) }
func (c clientLogger) Infof(format string, args ...interface{})  { c.l.Info(fmt.Sprintf(format, args...)) }
func (c clientLogger) Errorf(format string, args ...interface{}) { c.l.Error(fmt.Sprintf(format, args...)) }

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the configured format. Values implementing
// TableHeaders/TableRows render as a table; others fall back to text.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch cliCtx.OutputFormat {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprint(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		renderTable(cmd.OutOrStdout(), tp.TableHeaders(), tp.TableRows())
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes err to stderr. API errors include their code and
// request id.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s (request_id=%s)\n",
			color.RedString("Error:"), apiErr.Code, apiErr.Message, apiErr.RequestID)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}
