// Package model defines the core data structures for disclfmpresence.
package model

import (
	"fmt"
	"time"
)

// PlayingTrack is the track the user is currently listening to, derived from
// a single poll of the scrobbling API. It is never persisted.
type PlayingTrack struct {
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Album  string `json:"album,omitempty" yaml:"album,omitempty"` // may be empty

	// Diagnostic metadata, not part of the track identity.
	NowPlaying bool      `json:"now_playing" yaml:"now_playing"`
	PlayedAt   time.Time `json:"played_at,omitzero" yaml:"played_at,omitempty"` // zero while now playing
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
}

// TrackKey identifies a track for "now playing" deduplication.
type TrackKey struct {
	Title  string
	Artist string
	Album  string
}

// Key returns the (title, artist, album) identity of the track.
func (t PlayingTrack) Key() TrackKey {
	return TrackKey{Title: t.Title, Artist: t.Artist, Album: t.Album}
}

// String renders the track as "title | artist - album".
func (t PlayingTrack) String() string {
	if t.Album != "" {
		return fmt.Sprintf("%s | %s - %s", t.Title, t.Artist, t.Album)
	}
	return fmt.Sprintf("%s | %s", t.Title, t.Artist)
}

// PresenceKind distinguishes a cleared presence from an active one.
type PresenceKind int

const (
	PresenceCleared PresenceKind = iota
	PresenceActive
)

// PresenceState is the last presence successfully pushed to the sink.
type PresenceState struct {
	Kind  PresenceKind
	Track TrackKey // zero when cleared
}

// Cleared returns the cleared presence state.
func Cleared() PresenceState {
	return PresenceState{Kind: PresenceCleared}
}

// Active returns the presence state for a pushed track.
func Active(t PlayingTrack) PresenceState {
	return PresenceState{Kind: PresenceActive, Track: t.Key()}
}

func (s PresenceState) String() string {
	if s.Kind != PresenceActive {
		return "cleared"
	}
	return PlayingTrack{Title: s.Track.Title, Artist: s.Track.Artist, Album: s.Track.Album}.String()
}

// IsActive reports whether a track is being shown.
func (s PresenceState) IsActive() bool {
	return s.Kind == PresenceActive
}

// RetryPolicy controls how the fetcher handles transient failures.
// It is fixed for the lifetime of a run.
type RetryPolicy struct {
	Backoff        time.Duration
	RetryableCodes map[int]bool
}

// Scrobbling API error codes that are worth retrying.
const (
	ErrCodeServiceOffline = 11 // service temporarily offline
	ErrCodeTemporary      = 16 // temporary error processing the request
	ErrCodeRateLimit      = 29 // rate limit exceeded
)

// DefaultRetryableCodes returns the set of API error codes that are retried.
func DefaultRetryableCodes() map[int]bool {
	return map[int]bool{
		ErrCodeServiceOffline: true,
		ErrCodeTemporary:      true,
		ErrCodeRateLimit:      true,
	}
}

// NewRetryPolicy returns a policy with the default retryable codes.
func NewRetryPolicy(backoff time.Duration) RetryPolicy {
	return RetryPolicy{Backoff: backoff, RetryableCodes: DefaultRetryableCodes()}
}

// Retryable reports whether an API error code should be retried.
func (p RetryPolicy) Retryable(code int) bool {
	return p.RetryableCodes[code]
}

// PollConfig holds the loop timing.
type PollConfig struct {
	Interval         time.Duration
	PlayingThreshold time.Duration
}
