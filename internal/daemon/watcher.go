package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/config"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// ConfigWatcher watches the config file and reports each new valid config.
type ConfigWatcher struct {
	logger     *slog.Logger
	configPath string
	debounce   time.Duration

	watcher *fsnotify.Watcher
	current config.Config
}

// NewConfigWatcher creates a watcher for path, starting from the config
// already loaded from it.
func NewConfigWatcher(path string, initial *config.Config, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory containing the file (editors replace it on save)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &ConfigWatcher{
		logger:     logger,
		configPath: path,
		debounce:   DefaultDebounce,
		watcher:    watcher,
		current:    *initial,
	}, nil
}

// Watch blocks until ctx is done, calling onReload for every change that
// produces a valid config different from the current one. Invalid changes are
// logged and ignored.
func (w *ConfigWatcher) Watch(ctx context.Context, onReload func(*config.Config)) error {
	defer w.watcher.Close()

	filename := filepath.Base(w.configPath)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Debug("config watcher started", "path", w.configPath)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-timer.C:
			w.reload(onReload)
		}
	}
}

func (w *ConfigWatcher) reload(onReload func(*config.Config)) {
	cfg, err := config.LoadFile(w.configPath)
	if err != nil {
		w.logger.Warn("ignoring invalid config change", "path", w.configPath, "error", err)
		return
	}
	if *cfg == w.current {
		w.logger.Debug("config file touched without changes", "path", w.configPath)
		return
	}

	w.current = *cfg
	w.logger.Info("config changed", "path", w.configPath)
	onReload(cfg)
}
