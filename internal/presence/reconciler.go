// Package presence keeps the Discord Rich Presence in line with the track
// reported by the latest poll.
package presence

import (
	"context"
	"log/slog"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/discord"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
)

// ImageKey is the art asset shown for every track.
const ImageKey = "logo"

// Sink is a presence destination with a persistent connection.
// *discord.Client satisfies it.
type Sink interface {
	Connect(ctx context.Context) error
	SetActivity(ctx context.Context, activity *discord.Activity) error
	Close() error
}

// ConnState is the reconciler's view of the sink connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Reconciler pushes presence updates to a Sink, reconnecting inline when a
// push fails. It is not safe for concurrent use.
type Reconciler struct {
	sink   Sink
	logger *slog.Logger

	conn      ConnState
	state     model.PresenceState
	announced *model.TrackKey
}

// NewReconciler creates a Reconciler. The sink starts disconnected.
func NewReconciler(sink Sink, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		sink:   sink,
		logger: logger,
		state:  model.Cleared(),
	}
}

// ActivityFor builds the presence payload for a track.
func ActivityFor(track model.PlayingTrack) *discord.Activity {
	state := track.Artist
	if track.Album != "" {
		state = track.Artist + " - " + track.Album
	}
	return &discord.Activity{
		State:   state,
		Details: track.Title,
		Assets: &discord.Assets{
			LargeImage: ImageKey,
			SmallImage: ImageKey,
		},
	}
}

// Reconcile makes the presence reflect track. A nil track clears it by
// closing the connection, which always succeeds. Otherwise the activity is
// pushed, with one reconnect attempt on failure. Returns whether the
// presence now matches.
func (r *Reconciler) Reconcile(ctx context.Context, track *model.PlayingTrack) bool {
	if track == nil {
		r.clear()
		return true
	}

	err := r.push(ctx, *track)
	if err != nil {
		r.logger.Debug("presence not applied", "error", err)
	} else {
		r.setState(model.Active(*track))
	}
	r.announce(*track)
	return err == nil
}

// Close releases the sink connection.
func (r *Reconciler) Close() {
	r.clear()
}

// ConnState returns the current connection state.
func (r *Reconciler) ConnState() ConnState {
	return r.conn
}

// State returns the last presence successfully applied.
func (r *Reconciler) State() model.PresenceState {
	return r.state
}

func (r *Reconciler) clear() {
	if err := r.sink.Close(); err != nil {
		r.logger.Debug("discord RPC already closed", "error", err)
	}
	r.conn = Disconnected
	r.setState(model.Cleared())
}

func (r *Reconciler) setState(next model.PresenceState) {
	if next == r.state {
		return
	}
	r.logger.Debug("presence changed", "from", r.state, "to", next)
	r.state = next
}

func (r *Reconciler) announce(track model.PlayingTrack) {
	key := track.Key()
	if r.announced != nil && *r.announced == key {
		return
	}
	r.announced = &key
	r.logger.Info("now playing", "track", track.String())
}

// push sends the activity, reconnecting once on failure. Failures are
// returned as SinkFailure errors.
func (r *Reconciler) push(ctx context.Context, track model.PlayingTrack) error {
	activity := ActivityFor(track)

	r.logger.Debug("updating presence")
	err := r.sink.SetActivity(ctx, activity)
	if err == nil {
		r.logger.Debug("presence updated")
		return nil
	}
	r.logger.Debug("presence update failed", "error", err)

	if r.conn == Connected {
		r.logger.Debug("closing discord RPC")
		if err := r.sink.Close(); err != nil {
			r.logger.Debug("failed to close", "error", err)
		}
	}
	r.conn = Disconnected

	r.logger.Debug("connecting to discord")
	if err := r.sink.Connect(ctx); err != nil {
		return failure.NewSink("reconnect failed", err)
	}
	r.conn = Connected
	r.logger.Info("connected to Discord")

	if err := r.sink.SetActivity(ctx, activity); err != nil {
		return failure.NewSink("retry failed", err)
	}
	r.logger.Debug("presence updated")
	return nil
}
