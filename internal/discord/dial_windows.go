//go:build windows

package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gopkg.in/natefinch/npipe.v2"
)

const maxSocketIndex = 10

// SocketPaths returns every candidate IPC named pipe.
func SocketPaths(func(string) string) []string {
	paths := make([]string, 0, maxSocketIndex)
	for i := range maxSocketIndex {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

// Dial connects to the first Discord IPC named pipe that accepts a connection.
func Dial(ctx context.Context) (net.Conn, error) {
	timeout := DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	var errs []error
	for _, path := range SocketPaths(nil) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, err := npipe.DialTimeout(path, timeout)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no Discord IPC pipe accepted a connection: %w", errors.Join(errs...))
}
