package dbus

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/logging"
)

func TestNotificationArgs(t *testing.T) {
	n := &Notification{
		AppName:       "disclfmpresence",
		AppIcon:       "dialog-error",
		Summary:       "stopped",
		Body:          "LFM_API_ERROR",
		ExpireTimeout: -1,
	}

	args := n.Args()
	require.Len(t, args, 8)
	assert.Equal(t, "disclfmpresence", args[0])
	assert.Equal(t, uint32(0), args[1])
	assert.Equal(t, "dialog-error", args[2])
	assert.Equal(t, "stopped", args[3])
	assert.Equal(t, "LFM_API_ERROR", args[4])
	// Nil collections are sent empty, the signature still needs them
	assert.Equal(t, []string{}, args[5])
	assert.Equal(t, map[string]dbus.Variant{}, args[6])
	assert.Equal(t, int32(-1), args[7])
}

type fakeCaller struct {
	methods []string
	args    [][]any
	err     error
}

func (c *fakeCaller) Call(method string, flags dbus.Flags, args ...any) *dbus.Call {
	c.methods = append(c.methods, method)
	c.args = append(c.args, args)
	return &dbus.Call{Body: []any{uint32(len(c.methods))}, Err: c.err}
}

func TestNotifier_NotifyFatal(t *testing.T) {
	caller := &fakeCaller{}
	n := NewNotifierWithCaller("disclfmpresence", logging.Discard(), func() (Caller, error) { return caller, nil })

	require.NoError(t, n.NotifyFatal("disclfmpresence stopped", "LFM_API_ERROR: API error 10"))

	require.Len(t, caller.methods, 1)
	assert.Equal(t, "org.freedesktop.Notifications.Notify", caller.methods[0])
	args := caller.args[0]
	assert.Equal(t, "disclfmpresence", args[0])
	assert.Equal(t, "dialog-error", args[2])
	assert.Equal(t, "LFM_API_ERROR: API error 10", args[4])

	hints := args[6].(map[string]dbus.Variant)
	assert.Equal(t, UrgencyCritical, hints["urgency"].Value())
	assert.Equal(t, "device.error", hints["category"].Value())
	assert.Equal(t, "disclfmpresence", hints["desktop-entry"].Value())
}

func TestNotifier_RateLimit(t *testing.T) {
	caller := &fakeCaller{}
	n := NewNotifierWithCaller("disclfmpresence", logging.Discard(), func() (Caller, error) { return caller, nil })
	now := time.Unix(1700000000, 0)
	n.now = func() time.Time { return now }

	id, err := n.Notify("k", &Notification{Summary: "one"})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	id, err = n.Notify("k", &Notification{Summary: "two"})
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = n.Notify("other", &Notification{Summary: "three"})
	require.NoError(t, err)

	now = now.Add(defaultMinInterval)
	_, err = n.Notify("k", &Notification{Summary: "four"})
	require.NoError(t, err)

	assert.Len(t, caller.methods, 3)
}

func TestNotifier_Errors(t *testing.T) {
	n := NewNotifierWithCaller("disclfmpresence", logging.Discard(), func() (Caller, error) {
		return nil, errors.New("no session bus")
	})
	assert.EqualError(t, n.NotifyFatal("s", "b"), "no session bus")

	caller := &fakeCaller{err: errors.New("org.freedesktop.DBus.Error.ServiceUnknown")}
	n = NewNotifierWithCaller("disclfmpresence", logging.Discard(), func() (Caller, error) { return caller, nil })
	err := n.NotifyFatal("s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ServiceUnknown")
}
