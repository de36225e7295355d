package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/config"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/daemon"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
)

var configInitOpts struct {
	force    bool
	apiKey   string
	username string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show and validate config files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default settings as TOML",
	Args:  cobra.NoArgs,
	RunE:  runConfigDefaults,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a config file for errors",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configDefaultsCmd, configValidateCmd)

	configInitCmd.Flags().BoolVarP(&configInitOpts.force, "force", "f", false,
		"Overwrite an existing file")
	configInitCmd.Flags().StringVar(&configInitOpts.apiKey, "api-key", "",
		"last.fm API key (https://www.last.fm/api/account/create)")
	configInitCmd.Flags().StringVar(&configInitOpts.username, "username", "",
		"last.fm username to follow")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(args, globalOpts.configPath)
	if config.Exists(path) && !configInitOpts.force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	cfg.ScrobbleAPIKey = configInitOpts.apiKey
	cfg.ScrobbleUsername = configInitOpts.username
	if err := cfg.Save(path); err != nil {
		exitCode = daemon.ReportExit(logger, failure.NewConfig(failure.CodeConfigLoad, "error writing config file", err))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	if cfg.ScrobbleAPIKey == "" || cfg.ScrobbleUsername == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Fill in scrobble_api_key and scrobble_username before starting.")
	}
	return nil
}

func runConfigDefaults(cmd *cobra.Command, args []string) error {
	data, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(args, globalOpts.configPath)
	if _, err := config.LoadFile(path); err != nil {
		exitCode = daemon.ReportExit(logger, err)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}
