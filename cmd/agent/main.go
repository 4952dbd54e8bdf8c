// Package main is the entry point for the Atlas host agent.
// It loads configuration, registers the host with the collector and reports
// metric samples until stopped, either as a Windows service or as a
// foreground process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-monitor/agent/internal/agent"
	"github.com/atlas-monitor/agent/internal/config"
	"github.com/atlas-monitor/agent/internal/service"
	"github.com/atlas-monitor/agent/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

type options struct {
	configPath string
	overrides  config.CLIOverrides
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "atlas-agent",
		Short:         "Host telemetry agent for the Atlas collector",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default: search standard locations)")
	flags.StringVar(&opts.overrides.URL, "server-url", "", "Collector base URL")
	flags.StringVar(&opts.overrides.Token, "token", "", "Bearer token sent to the collector")
	flags.StringVar(&opts.overrides.Location, "location", "", "Location tag reported for this host")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newVersionCmd(), newConfigCmd(opts))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atlas-agent %s\n", version)
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage agent configuration",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigPath()
			}
			if err := config.WriteConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cfgCmd
}

// loadConfig applies every configuration layer and validates the result.
func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadLayered(opts.overrides, embeddedConfig, opts.configPath)
	} else {
		cfg, err = config.LoadLayered(opts.overrides, embeddedConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfigPath() string {
	if p := config.Locate(); p != "" {
		return p
	}
	return "agent.yaml"
}

// run starts the agent and blocks until it stops. It returns nil after a
// requested shutdown and an error when the agent could not start.
func run(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if service.IsWindowsService() {
		logger.Info("Running as Windows service", zap.String("version", version))
		svc := service.New(logger, func(ctx context.Context) error {
			return runAgent(ctx, cfg, logger)
		})
		return svc.Run()
	}

	printBanner(os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAgent(ctx, cfg, logger)
}

// runAgent runs the agent and, if configured, the telemetry listener. It
// blocks until ctx is cancelled or the agent fails.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting Atlas Agent",
		zap.String("version", version),
		zap.String("server", cfg.Server.URL),
		zap.Duration("interval", cfg.Reporting.Interval.Duration))

	metrics := telemetry.New()
	a := agent.FromConfig(cfg, version, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Telemetry.Listen != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Telemetry.Listen, logger.Named("telemetry"))
		})
	}
	g.Go(func() error {
		return a.Run(gctx)
	})

	err := g.Wait()
	switch {
	case errors.Is(err, agent.ErrRegistrationFailed):
		logger.Error("Could not register with collector, exiting", zap.Error(err))
	case err != nil:
		logger.Error("Agent stopped with error", zap.Error(err))
	default:
		logger.Info("Agent stopped")
	}
	return err
}
