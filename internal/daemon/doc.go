// Package daemon provides the main orchestration for disclfmpresence.
// It runs the poll loop that feeds the last.fm track into the presence
// reconciler, supervises it alongside the optional config watcher, and maps
// the way it stopped to a process exit code.
package daemon
