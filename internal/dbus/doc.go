// Package dbus sends desktop notifications through the
// org.freedesktop.Notifications D-Bus interface. disclfmpresence uses it to
// tell the user the daemon stopped on an error.
package dbus
