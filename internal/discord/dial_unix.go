//go:build !windows

package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

const maxSocketIndex = 10

// socketDirs lists directories that may hold the Discord IPC socket, in
// lookup order. Flatpak and Snap installs nest it in a subdirectory.
func socketDirs(getenv func(string) string) []string {
	var bases []string
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := getenv(key); v != "" {
			bases = append(bases, v)
		}
	}
	bases = append(bases, "/tmp")

	seen := make(map[string]bool)
	var dirs []string
	for _, base := range bases {
		for _, dir := range []string{
			base,
			filepath.Join(base, "app", "com.discordapp.Discord"),
			filepath.Join(base, "snap.discord"),
		} {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// SocketPaths returns every candidate IPC socket path.
func SocketPaths(getenv func(string) string) []string {
	var paths []string
	for i := range maxSocketIndex {
		for _, dir := range socketDirs(getenv) {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return paths
}

// Dial connects to the first Discord IPC socket that accepts a connection.
func Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var errs []error
	for _, path := range SocketPaths(os.Getenv) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no Discord IPC socket found, is Discord running?")
	}
	return nil, fmt.Errorf("no Discord IPC socket accepted a connection: %w", errors.Join(errs...))
}
