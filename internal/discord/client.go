// Package discord implements the subset of the Discord local RPC protocol
// needed to set and clear Rich Presence.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTimeout bounds a single IPC operation when the context has no deadline.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotConnected is returned by operations on a client without a connection.
	ErrNotConnected = errors.New("not connected to Discord")
	// ErrClosedByPeer is returned when Discord sends a CLOSE frame.
	ErrClosedByPeer = errors.New("connection closed by Discord")
)

// RPCError is an ERROR event or a CLOSE frame sent by Discord.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("discord RPC error %d: %s", e.Code, e.Message)
}

// Activity is the Rich Presence shown on the user's profile.
type Activity struct {
	State   string  `json:"state,omitempty"`
	Details string  `json:"details,omitempty"`
	Assets  *Assets `json:"assets,omitempty"`
}

// Assets names the images uploaded to the Discord application.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
}

// DialFunc opens the transport to the local Discord client.
type DialFunc func(ctx context.Context) (net.Conn, error)

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type activityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity"`
}

type message struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type readyData struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Client is a Discord IPC client. It is safe for concurrent use, though the
// daemon only ever drives it from one goroutine.
type Client struct {
	clientID string
	dial     DialFunc
	pid      int
	logger   *slog.Logger

	mu       sync.Mutex
	conn     net.Conn
	username string
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the platform dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPID overrides the process id reported with activities.
func WithPID(pid int) Option {
	return func(c *Client) { c.pid = pid }
}

// NewClient creates an unconnected client for the given application id.
func NewClient(clientID string, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		dial:     Dial,
		pid:      os.Getpid(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Connect dials Discord and performs the handshake. An existing connection
// is closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to dial Discord: %w", err)
	}

	payload, err := json.Marshal(handshake{Version: 1, ClientID: c.clientID})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to marshal handshake: %w", err)
	}

	var ready message
	err = withConnContext(ctx, conn, func() error {
		if err := WriteFrame(conn, OpHandshake, payload); err != nil {
			return err
		}
		ready, err = readReply(conn, func(m message) bool { return m.Evt == "READY" })
		return err
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	var data readyData
	if err := json.Unmarshal(ready.Data, &data); err == nil {
		c.username = data.User.Username
	}
	c.conn = conn
	c.logger.Debug("discord handshake complete", "user", c.username)
	return nil
}

// SetActivity replaces the Rich Presence. A nil activity clears it.
func (c *Client) SetActivity(ctx context.Context, activity *Activity) error {
	nonce := ulid.Make().String()
	payload, err := json.Marshal(command{
		Cmd:   "SET_ACTIVITY",
		Args:  activityArgs{PID: c.pid, Activity: activity},
		Nonce: nonce,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	conn := c.conn
	err = withConnContext(ctx, conn, func() error {
		if err := WriteFrame(conn, OpFrame, payload); err != nil {
			return err
		}
		reply, err := readReply(conn, func(m message) bool { return m.Nonce == nonce })
		if err != nil {
			return err
		}
		if reply.Evt == "ERROR" {
			rpcErr := &RPCError{}
			if err := json.Unmarshal(reply.Data, rpcErr); err != nil {
				return fmt.Errorf("failed to decode error reply: %w", err)
			}
			return rpcErr
		}
		return nil
	})
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) || errors.Is(err, ErrClosedByPeer) {
			// The stream is unusable after an I/O failure
			_ = conn.Close()
			c.conn = nil
		}
		return fmt.Errorf("SET_ACTIVITY failed: %w", err)
	}
	return nil
}

// Close sends a CLOSE frame and closes the connection.
// Returns ErrNotConnected when there is nothing to close.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	conn := c.conn
	c.conn = nil

	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	writeErr := WriteFrame(conn, OpClose, []byte("{}"))
	closeErr := conn.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to close connection: %w", closeErr)
	}
	if writeErr != nil {
		return writeErr
	}
	return nil
}

// Connected reports whether the client holds a connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Username returns the Discord user reported by the last handshake.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// readReply reads frames until match accepts one. PINGs are answered and
// CLOSE frames end the exchange.
func readReply(conn net.Conn, match func(message) bool) (message, error) {
	for {
		op, payload, err := ReadFrame(conn)
		if err != nil {
			return message{}, err
		}

		switch op {
		case OpPing:
			if err := WriteFrame(conn, OpPong, payload); err != nil {
				return message{}, err
			}
		case OpClose:
			rpcErr := &RPCError{}
			_ = json.Unmarshal(payload, rpcErr)
			return message{}, fmt.Errorf("%w: %w", ErrClosedByPeer, rpcErr)
		case OpFrame:
			var m message
			if err := json.Unmarshal(payload, &m); err != nil {
				return message{}, fmt.Errorf("failed to decode frame: %w", err)
			}
			if m.Evt == "ERROR" && m.Nonce == "" {
				rpcErr := &RPCError{}
				_ = json.Unmarshal(m.Data, rpcErr)
				return message{}, rpcErr
			}
			if match(m) {
				return m, nil
			}
		}
	}
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

// withConnContext runs fn with the connection deadline tied to ctx. The
// deadline is only moved once ctx is done, so an I/O timeout always reports
// the context's error.
func withConnContext(ctx context.Context, conn net.Conn, fn func() error) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer func() {
		stop()
		_ = conn.SetDeadline(time.Time{})
	}()

	err := fn()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
