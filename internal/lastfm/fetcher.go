package lastfm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
)

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetcher resolves the track a user is currently listening to.
type Fetcher struct {
	client    *Client
	user      string
	policy    model.RetryPolicy
	threshold time.Duration
	logger    *slog.Logger
	sleep     SleepFunc
	now       func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithClock replaces the wall clock used for the playing threshold.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a Fetcher for user.
func NewFetcher(client *Client, user string, policy model.RetryPolicy, threshold time.Duration, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    client,
		user:      user,
		policy:    policy,
		threshold: threshold,
		logger:    slog.Default(),
		sleep:     Sleep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch returns the currently playing track, or nil when nothing is playing.
// Transient failures are retried after the policy backoff until they clear.
// The returned error is either a NonRetryableAPI *failure.Error or the
// context error.
func (f *Fetcher) Fetch(ctx context.Context) (*model.PlayingTrack, error) {
	recent, err := f.recentTracks(ctx)
	if err != nil {
		return nil, err
	}
	return f.resolve(recent.Tracks), nil
}

func (f *Fetcher) recentTracks(ctx context.Context) (RecentTracks, error) {
	for {
		recent, err := f.client.UserGetRecentTracks(ctx, f.user, 1)
		if err == nil {
			return recent, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RecentTracks{}, ctxErr
		}

		var apiErr *APIError
		var decodeErr *DecodeError
		var statusErr *StatusError
		switch {
		case errors.As(err, &apiErr):
			f.logger.Warn("API error", "code", apiErr.Code, "message", apiErr.Message)
			if !f.policy.Retryable(apiErr.Code) {
				return RecentTracks{}, failure.NewAPI(apiErr.Code, apiErr.Message)
			}
			f.logger.Warn("retrying", "backoff", f.policy.Backoff)
		case errors.As(err, &decodeErr):
			f.logger.Warn("couldn't decode JSON response, retrying",
				"status", decodeErr.StatusCode,
				"backoff", f.policy.Backoff,
				"error", decodeErr.Err)
		case errors.As(err, &statusErr):
			f.logger.Warn("unexpected response status, retrying",
				"status", statusErr.StatusCode,
				"backoff", f.policy.Backoff)
		default:
			f.logger.Warn("couldn't retrieve data, retrying",
				"backoff", f.policy.Backoff,
				"error", err)
		}

		if err := f.sleep(ctx, f.policy.Backoff); err != nil {
			return RecentTracks{}, err
		}
	}
}

func (f *Fetcher) resolve(tracks TrackList) *model.PlayingTrack {
	if len(tracks) == 0 {
		f.logger.Debug("no recent tracks")
		return nil
	}

	t := tracks[0]
	track := &model.PlayingTrack{
		Title:  t.Name,
		Artist: t.Artist.Text,
		Album:  t.Album.Text,
		URL:    t.URL,
	}

	if t.NowPlaying() {
		track.NowPlaying = true
		return track
	}

	playedAt, ok := t.PlayedAt()
	if !ok {
		f.logger.Warn("track has neither nowplaying nor date", "track", track.String())
		return nil
	}

	now := f.now()
	if now.Sub(playedAt) > f.threshold {
		f.logger.Debug("last track is too old", "track", track.String(), "played", humanize.RelTime(playedAt, now, "ago", "from now"))
		return nil
	}

	track.PlayedAt = playedAt
	return track
}
