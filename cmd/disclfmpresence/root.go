package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/config"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/daemon"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/dbus"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/logging"
)

const appName = "disclfmpresence"

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global options and state
var (
	globalOpts struct {
		verbose    bool
		configPath string
	}
	rootOpts struct {
		watchConfig bool
	}
	logger *slog.Logger

	// exitCode is set by commands that ran to completion
	exitCode int
)

// rootCmd runs the presence daemon.
var rootCmd = &cobra.Command{
	Use:   appName + " [config.toml]",
	Short: "Show your last.fm now playing track as Discord Rich Presence",
	Long: `disclfmpresence polls last.fm for the track a user is listening to and
mirrors it into Discord Rich Presence through the local Discord client.

The config file is taken from the first argument, then --config, then
./config.toml. Run "disclfmpresence config init" to create one.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Usable before a config is loaded
		logger = logging.New(cmd.ErrOrStderr(), slog.LevelInfo, config.LogFormatText)
	},
	RunE: runDaemon,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	exitCode = failure.ExitOK
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Usage: %s [config.toml]\n", appName)
		return failure.ExitUsage
	}
	return exitCode
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable debug logging (overrides log_level)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ./config.toml)")

	rootCmd.Flags().BoolVar(&rootOpts.watchConfig, "watch-config", false,
		"Restart with the new settings when the config file changes")
}

// setupLogger configures the global slog logger from the loaded config.
func setupLogger(w io.Writer, cfg *config.Config) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	logger = logging.New(w, level, cfg.LogFormat)
	slog.SetDefault(logger)
}

// loadConfig resolves and loads the config file. When no file exists the
// usage is printed and ok is false.
func loadConfig(cmd *cobra.Command, args []string) (cfg *config.Config, path string, ok bool) {
	path = config.ResolvePath(args, globalOpts.configPath)
	if !config.Exists(path) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Usage: %s [config.toml]\n", appName)
		exitCode = failure.ExitUsage
		return nil, path, false
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		exitCode = daemon.ReportExit(logger, err)
		return nil, path, false
	}

	setupLogger(cmd.ErrOrStderr(), cfg)
	return cfg, path, true
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, path, ok := loadConfig(cmd, args)
	if !ok {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting", "version", version, "config", path, "user", cfg.ScrobbleUsername)

	opts := []daemon.SupervisorOption{
		daemon.WithNotifier(dbus.NewNotifier(appName, logger.With("component", "dbus"))),
	}
	if rootOpts.watchConfig {
		opts = append(opts, daemon.WithConfigWatch(path))
	}

	exitCode = daemon.Run(ctx, cfg, logger, opts...)
	return nil
}
