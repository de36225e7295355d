package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/daemon"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/lastfm"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/output"
)

var checkOpts struct {
	output  string
	timeout time.Duration
}

var checkCmd = &cobra.Command{
	Use:   "check [config.toml]",
	Short: "Poll last.fm once and print what would be shown",
	Long: `Poll last.fm once with the configured account and print the track that
would be shown as Rich Presence, without touching Discord.

Retryable API errors are retried with the configured backoff until --timeout
expires.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOpts.output, "output", "o", string(output.FormatPlain),
		"Output format (plain, json, yaml)")
	checkCmd.Flags().DurationVar(&checkOpts.timeout, "timeout", 30*time.Second,
		"Give up after this long")
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(output.FormatType(checkOpts.output))
	if err != nil {
		return err
	}

	cfg, _, ok := loadConfig(cmd, args)
	if !ok {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, checkOpts.timeout)
	defer cancel()

	client := lastfm.NewClient(cfg.ScrobbleEndpoint, cfg.ScrobbleAPIKey)
	fetcher := lastfm.NewFetcher(client, cfg.ScrobbleUsername, cfg.RetryPolicy(), cfg.PollConfig().PlayingThreshold,
		lastfm.WithLogger(logger))

	track, err := fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = failure.NewTransient("gave up waiting for last.fm", err)
		}
		exitCode = daemon.ReportExit(logger, err)
		return nil
	}

	result := output.NewResult(cfg.ScrobbleUsername, track, time.Now())
	return formatter.Format(cmd.OutOrStdout(), result)
}
