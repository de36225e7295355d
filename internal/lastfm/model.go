package lastfm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Response is the top-level JSON object returned by the API.
type Response struct {
	Error        Scalar        `json:"error,omitempty"`
	Message      string        `json:"message,omitempty"`
	RecentTracks *RecentTracks `json:"recenttracks,omitempty"`
}

// ErrorCode returns the API error code, or 0 for a successful response. The
// code may arrive as a number or a numeric string.
func (r Response) ErrorCode() (int, error) {
	if r.Error == "" {
		return 0, nil
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(r.Error)))
	if err != nil {
		return 0, fmt.Errorf("invalid error code %q", string(r.Error))
	}
	return code, nil
}

// RecentTracks is the user.getRecentTracks payload.
type RecentTracks struct {
	Tracks TrackList `json:"track"`
}

// TrackList decodes both a JSON array and a single object. The API collapses
// one-element lists into a bare object.
type TrackList []Track

func (l *TrackList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var tracks []Track
		if err := json.Unmarshal(data, &tracks); err != nil {
			return err
		}
		*l = tracks
		return nil
	default:
		var track Track
		if err := json.Unmarshal(data, &track); err != nil {
			return err
		}
		*l = TrackList{track}
		return nil
	}
}

// Track is one scrobbled or now playing track.
type Track struct {
	Name   string     `json:"name"`
	Artist Text       `json:"artist"`
	Album  Text       `json:"album"`
	URL    string     `json:"url"`
	Attr   *TrackAttr `json:"@attr,omitempty"`
	Date   *Date      `json:"date,omitempty"`
}

// Text is the {"#text": ...} wrapper the API uses for names.
type Text struct {
	Text string `json:"#text"`
	MBID string `json:"mbid,omitempty"`
}

// TrackAttr holds the "@attr" flags of a track.
type TrackAttr struct {
	NowPlaying Flag `json:"nowplaying"`
}

// Date is the scrobble time, absent while the track is playing.
type Date struct {
	UTS  Scalar `json:"uts"`
	Text string `json:"#text"`
}

// NowPlaying reports whether the track is being listened to right now.
func (t Track) NowPlaying() bool {
	return t.Attr != nil && bool(t.Attr.NowPlaying)
}

// PlayedAt returns the time the track finished, if it has a usable timestamp.
func (t Track) PlayedAt() (time.Time, bool) {
	if t.Date == nil {
		return time.Time{}, false
	}
	uts, err := strconv.ParseInt(string(t.Date.UTS), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(uts, 0), true
}

// Flag is a boolean the API sends as "true"/"false" strings. Bare JSON
// booleans and numbers are accepted too.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var s Scalar
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "", "false", "0", "null":
		*f = false
	default:
		*f = true
	}
	return nil
}

// Scalar holds a JSON string, number or boolean as text.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	*s = Scalar(data)
	return nil
}
