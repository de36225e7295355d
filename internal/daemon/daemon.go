package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/config"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/discord"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/lastfm"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/presence"
)

// TrackSource reports the currently playing track, or nil.
type TrackSource interface {
	Fetch(ctx context.Context) (*model.PlayingTrack, error)
}

// PresenceSink applies a track to the presence.
type PresenceSink interface {
	Reconcile(ctx context.Context, track *model.PlayingTrack) bool
	Close()
}

// Daemon is one run of the poll loop with a fixed configuration.
type Daemon struct {
	source   TrackSource
	sink     PresenceSink
	interval time.Duration
	logger   *slog.Logger
	sleep    lastfm.SleepFunc
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithSleep replaces the interval sleep.
func WithSleep(sleep lastfm.SleepFunc) Option {
	return func(d *Daemon) { d.sleep = sleep }
}

// NewWithComponents creates a Daemon from already built components.
func NewWithComponents(source TrackSource, sink PresenceSink, interval time.Duration, logger *slog.Logger, opts ...Option) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
		sleep:    lastfm.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New wires the last.fm fetcher and the Discord reconciler for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	poll := cfg.PollConfig()

	client := lastfm.NewClient(cfg.ScrobbleEndpoint, cfg.ScrobbleAPIKey)
	fetcher := lastfm.NewFetcher(client, cfg.ScrobbleUsername, cfg.RetryPolicy(), poll.PlayingThreshold,
		lastfm.WithLogger(logger.With("component", "lastfm")))

	rpc := discord.NewClient(cfg.DiscordClientID, discord.WithLogger(logger.With("component", "discord")))
	reconciler := presence.NewReconciler(rpc, logger.With("component", "presence"))

	return NewWithComponents(fetcher, reconciler, poll.Interval, logger, opts...)
}

// Loop polls and reconciles until ctx is cancelled, which returns nil.
// A non-retryable API error or a panic stops the loop with a tagged error.
func (d *Daemon) Loop(ctx context.Context) (err error) {
	defer d.sink.Close()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("recovered panic", "stack", string(debug.Stack()))
			err = failure.NewFatal(fmt.Sprintf("unexpected panic: %v", r), nil)
		}
	}()

	for {
		d.logger.Debug("checking last.fm")
		track, err := d.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		d.sink.Reconcile(ctx, track)

		d.logger.Debug("sleeping", "interval", d.interval)
		if err := d.sleep(ctx, d.interval); err != nil {
			return nil
		}
	}
}
