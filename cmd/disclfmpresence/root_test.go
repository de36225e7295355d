package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
)

// run executes the CLI with args and returns the exit code and output.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	globalOpts.verbose = false
	globalOpts.configPath = ""
	rootOpts.watchConfig = false
	checkOpts.output = "plain"
	checkOpts.timeout = 30 * time.Second
	configInitOpts.force = false
	configInitOpts.apiKey = ""
	configInitOpts.username = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := Execute()
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRoot_NoConfigFile(t *testing.T) {
	code, _, stderr := run(t, filepath.Join(t.TempDir(), "missing.toml"))

	assert.Equal(t, failure.ExitUsage, code)
	assert.Contains(t, stderr, "Usage: disclfmpresence [config.toml]")
}

func TestRoot_TooManyArgs(t *testing.T) {
	code, _, stderr := run(t, "a.toml", "b.toml")

	assert.Equal(t, failure.ExitUsage, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestRoot_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "scrobble_api_key = \"k\"\nscrobble_username = \"u\"\nunknown = 1\n")

	code, _, stderr := run(t, path)

	assert.Equal(t, failure.ExitTagged, code)
	assert.Contains(t, stderr, "level=CRITICAL")
	assert.Contains(t, stderr, "CONFIG_INVALID")
	assert.Contains(t, stderr, "unknown")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	code, stdout, _ := run(t, "config", "init", path)
	require.Equal(t, failure.ExitOK, code)
	assert.Contains(t, stdout, "Fill in scrobble_api_key")

	// Required keys are still empty
	code, _, stderr := run(t, "config", "validate", path)
	assert.Equal(t, failure.ExitTagged, code)
	assert.Contains(t, stderr, "scrobble_api_key")

	// Refuses to overwrite without --force
	code, _, _ = run(t, "config", "init", path, "--api-key", "k", "--username", "u")
	assert.Equal(t, failure.ExitUsage, code)

	code, _, _ = run(t, "config", "init", path, "--force", "--api-key", "k", "--username", "u")
	require.Equal(t, failure.ExitOK, code)

	code, stdout, _ = run(t, "config", "validate", path)
	assert.Equal(t, failure.ExitOK, code)
	assert.Contains(t, stdout, "is valid")
}

func TestConfigDefaults(t *testing.T) {
	code, stdout, _ := run(t, "config", "defaults")

	assert.Equal(t, failure.ExitOK, code)
	assert.Contains(t, stdout, "interval = 60")
	assert.Contains(t, stdout, "rate_limit_backoff = 180")
	assert.Contains(t, stdout, "discord_client_id = '872110819100463214'")
}

func lastfmServer(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL + "/2.0/"
}

func checkConfig(t *testing.T, endpoint string) string {
	return writeConfig(t, fmt.Sprintf(`
scrobble_api_key = "key"
scrobble_username = "someone"
scrobble_endpoint = %q
`, endpoint))
}

func TestCheck_JSON(t *testing.T) {
	endpoint := lastfmServer(t, `{"recenttracks":{"track":[{"name":"Song","artist":{"#text":"Band"},"album":{"#text":"Record"},"@attr":{"nowplaying":"true"}}]}}`)

	code, stdout, _ := run(t, "check", checkConfig(t, endpoint), "-o", "json")

	require.Equal(t, failure.ExitOK, code)
	var result struct {
		User    string `json:"user"`
		Playing bool   `json:"playing"`
		Track   struct {
			Title string `json:"title"`
		} `json:"track"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "someone", result.User)
	assert.True(t, result.Playing)
	assert.Equal(t, "Song", result.Track.Title)
}

func TestCheck_NothingPlaying(t *testing.T) {
	endpoint := lastfmServer(t, `{"recenttracks":{"track":[]}}`)

	code, stdout, _ := run(t, "check", checkConfig(t, endpoint))

	assert.Equal(t, failure.ExitOK, code)
	assert.Contains(t, stdout, "someone is not playing anything")
}

func TestCheck_NonRetryableError(t *testing.T) {
	endpoint := lastfmServer(t, `{"error":6,"message":"User not found"}`)

	code, _, stderr := run(t, "check", checkConfig(t, endpoint))

	assert.Equal(t, failure.ExitTagged, code)
	assert.Contains(t, stderr, "LFM_API_ERROR")
	assert.Contains(t, stderr, "User not found")
}

func TestCheck_InvalidOutput(t *testing.T) {
	code, _, stderr := run(t, "check", "-o", "xml")

	assert.Equal(t, failure.ExitUsage, code)
	assert.Contains(t, stderr, "invalid output format")
}
