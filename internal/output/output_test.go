package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
)

var checkedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func nowPlaying() Result {
	return NewResult("someone", &model.PlayingTrack{
		Title:      "Song",
		Artist:     "Band",
		Album:      "Record",
		NowPlaying: true,
		URL:        "https://www.last.fm/music/Band/_/Song",
	}, checkedAt)
}

func recentlyPlayed() Result {
	return NewResult("someone", &model.PlayingTrack{
		Title:    "Single",
		Artist:   "Band",
		PlayedAt: checkedAt.Add(-90 * time.Second),
	}, checkedAt)
}

func TestNewFormatter(t *testing.T) {
	for _, format := range append(ValidFormats(), "") {
		f, err := NewFormatter(format)
		require.NoError(t, err, "format %q", format)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("dmenu")
	assert.Error(t, err)
}

func TestPlainFormatter_NowPlaying(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter().Format(&buf, nowPlaying()))

	out := buf.String()
	assert.Contains(t, out, "Song")
	assert.Contains(t, out, "Artist: Band")
	assert.Contains(t, out, "Album: Record")
	assert.Contains(t, out, "now playing")
	assert.Contains(t, out, "Presence: Song / Band - Record")
}

func TestPlainFormatter_RecentlyPlayed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter().Format(&buf, recentlyPlayed()))

	out := buf.String()
	assert.NotContains(t, out, "Album:")
	assert.Contains(t, out, "played 1 minute ago")
	assert.Contains(t, out, "Presence: Single / Band")
}

func TestPlainFormatter_NothingPlaying(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter().Format(&buf, NewResult("someone", nil, checkedAt)))

	assert.Contains(t, buf.String(), "someone is not playing anything")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, nowPlaying()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "someone", got["user"])
	assert.Equal(t, true, got["playing"])

	track := got["track"].(map[string]any)
	assert.Equal(t, "Song", track["title"])
	assert.Equal(t, true, track["now_playing"])
	assert.NotContains(t, track, "played_at")
}

func TestJSONFormatter_NothingPlaying(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, NewResult("someone", nil, checkedAt)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["playing"])
	assert.NotContains(t, got, "track")
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, recentlyPlayed()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "someone", got["user"])

	track := got["track"].(map[string]any)
	assert.Equal(t, "Single", track["title"])
	assert.NotContains(t, track, "album")
	assert.Contains(t, track, "played_at")
}
