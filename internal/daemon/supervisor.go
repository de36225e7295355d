package daemon

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/config"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/logging"
)

// Runner is one run of the poll loop.
type Runner interface {
	Loop(ctx context.Context) error
}

// Notifier tells the user the daemon stopped on an error.
type Notifier interface {
	NotifyFatal(summary, body string) error
}

// Supervisor runs the poll loop and restarts it whenever the watched config
// file changes to a new valid config. Each run keeps its config unchanged.
type Supervisor struct {
	logger     *slog.Logger
	configPath string
	watch      bool
	notifier   Notifier
	newRunner  func(cfg *config.Config) Runner
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithConfigWatch restarts the loop when the file at path changes.
func WithConfigWatch(path string) SupervisorOption {
	return func(s *Supervisor) {
		s.configPath = path
		s.watch = path != ""
	}
}

// WithNotifier sets the notifier used when the daemon stops on an error and
// notify_on_fatal is enabled.
func WithNotifier(n Notifier) SupervisorOption {
	return func(s *Supervisor) { s.notifier = n }
}

// WithRunnerFactory replaces how a loop is built from a config.
func WithRunnerFactory(fn func(cfg *config.Config) Runner) SupervisorOption {
	return func(s *Supervisor) { s.newRunner = fn }
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{logger: logger}
	s.newRunner = func(cfg *config.Config) Runner {
		return New(cfg, s.logger)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run runs the loop with cfg until ctx is cancelled or the loop fails.
func (s *Supervisor) Run(ctx context.Context, cfg *config.Config) error {
	g, gctx := errgroup.WithContext(ctx)
	reloads := make(chan *config.Config, 1)

	if s.watch {
		watcher, err := NewConfigWatcher(s.configPath, cfg, s.logger.With("component", "watcher"))
		if err != nil {
			return failure.NewFatal("failed to watch config", err)
		}
		g.Go(func() error {
			return watcher.Watch(gctx, func(next *config.Config) {
				// Keep only the latest pending config
				select {
				case <-reloads:
				default:
				}
				reloads <- next
			})
		})
	}

	g.Go(func() error {
		current := cfg
		for {
			next, err := s.runOnce(gctx, current, reloads)
			if next == nil {
				if err != nil {
					return err
				}
				// Loop only returns nil once gctx is done; stop the watcher too
				return context.Canceled
			}
			s.logger.Info("restarting with new config")
			current = next
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// runOnce runs one loop. It returns the next config when a reload
// interrupted it.
func (s *Supervisor) runOnce(ctx context.Context, cfg *config.Config, reloads <-chan *config.Config) (*config.Config, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	runner := s.newRunner(cfg)
	go func() { done <- runner.Loop(runCtx) }()

	select {
	case err := <-done:
		return nil, err
	case next := <-reloads:
		cancel()
		<-done
		return next, nil
	}
}

// Run supervises the daemon for cfg and returns the process exit code.
// The way it stopped is logged: "Terminating." on interrupt, a CRITICAL
// record otherwise.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...SupervisorOption) int {
	s := NewSupervisor(logger, opts...)
	err := s.Run(ctx, cfg)

	code := ReportExit(s.logger, err)
	if code != failure.ExitOK && cfg.NotifyOnFatal && s.notifier != nil {
		if nerr := s.notifier.NotifyFatal("disclfmpresence stopped", exitMessage(err)); nerr != nil {
			s.logger.Warn("failed to send desktop notification", "error", nerr)
		}
	}
	return code
}

// ReportExit logs how the process is about to stop and returns its exit code.
func ReportExit(logger *slog.Logger, err error) int {
	code := failure.ExitCode(err)
	if code == failure.ExitOK {
		logger.Info("Terminating.")
		return code
	}

	var fe *failure.Error
	if errors.As(err, &fe) && fe.Kind != failure.Fatal {
		attrs := []any{"code", fe.Code, "message", fe.Message}
		if fe.Err != nil {
			attrs = append(attrs, "error", fe.Err)
		}
		logger.Log(context.Background(), logging.LevelCritical, "stopping on error", attrs...)
		return code
	}

	logger.Log(context.Background(), logging.LevelCritical, "unexpected error", "error", err)
	return code
}

func exitMessage(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Code + ": " + fe.Message
	}
	return err.Error()
}
