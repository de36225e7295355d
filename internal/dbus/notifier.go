package dbus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notifyMethod       = notificationsName + ".Notify"
	defaultMinInterval = 5 * time.Second
)

// Caller is the subset of dbus.BusObject used to send notifications.
type Caller interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Notifier sends desktop notifications. Repeats of the same key within the
// minimum interval are dropped.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	appName string
	connect func() (Caller, error)
	obj     Caller

	// Rate limiting
	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time
}

// NewNotifier creates a Notifier that talks to the session bus on first use.
func NewNotifier(appName string, logger *slog.Logger) *Notifier {
	return NewNotifierWithCaller(appName, logger, sessionNotifications)
}

// NewNotifierWithCaller creates a Notifier using connect to reach the
// notification service.
func NewNotifierWithCaller(appName string, logger *slog.Logger, connect func() (Caller, error)) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		appName:        appName,
		connect:        connect,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    defaultMinInterval,
		now:            time.Now,
	}
}

func sessionNotifications() (Caller, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return conn.Object(notificationsName, notificationsPath), nil
}

// Notify sends notification unless key was used within the minimum interval.
// Returns the server assigned id, or 0 when rate-limited.
func (n *Notifier) Notify(key string, notification *Notification) (uint32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("notification rate-limited", "key", key, "summary", notification.Summary)
		return 0, nil
	}

	if n.obj == nil {
		obj, err := n.connect()
		if err != nil {
			return 0, err
		}
		n.obj = obj
	}

	if notification.AppName == "" {
		notification.AppName = n.appName
	}

	n.logger.Debug("sending notification", "key", key, "summary", notification.Summary)
	var id uint32
	if err := n.obj.Call(notifyMethod, 0, notification.Args()...).Store(&id); err != nil {
		return 0, fmt.Errorf("notify failed: %w", err)
	}
	n.lastNotifyTime[key] = now
	return id, nil
}

// NotifyFatal sends a critical notification saying the daemon stopped.
func (n *Notifier) NotifyFatal(summary, body string) error {
	_, err := n.Notify("fatal", &Notification{
		AppIcon: "dialog-error",
		Summary: summary,
		Body:    body,
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(UrgencyCritical),
			"category":      dbus.MakeVariant("device.error"),
			"desktop-entry": dbus.MakeVariant(n.appName),
		},
		ExpireTimeout: -1,
	})
	return err
}
