// Package app assembles the eventease services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"eventease/internal/config"
	"eventease/internal/dispatch"
	"eventease/internal/events"
	"eventease/internal/ics"
	"eventease/internal/invite"
	appLog "eventease/internal/log"
	"eventease/internal/mail"
	"eventease/internal/scheduler"
	"eventease/internal/storage"
	"eventease/internal/storage/memory"
	"eventease/internal/storage/postgres"
	"eventease/internal/storage/sqlite"
	"eventease/internal/web"
	"eventease/internal/workflow"
)

// App holds the wired services for one process.
type App struct {
	Config      *config.Config
	Store       storage.Store
	Sessions    workflow.SessionStore
	Transport   mail.Transport
	Calendar    ics.Generator
	Coordinator *workflow.Coordinator
	Events      *events.Service
	Invites     *invite.Service
	Dispatcher  *dispatch.Dispatcher

	memSessions *workflow.MemorySessionStore
	closers     []func() error
}

// Options override parts of the wiring, mainly for tests and one-shot
// commands.
type Options struct {
	// Transport replaces the configured mail transport.
	Transport mail.Transport
	// SkipSessions leaves the session store unconfigured for commands that
	// never touch the selection flow.
	SkipSessions bool
}

// New opens storage, sessions and the mail transport described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if !opts.SkipSessions {
		if err := a.openSessions(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.Transport = opts.Transport
	if a.Transport == nil {
		if a.Transport, err = openTransport(cfg); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	loc := cfg.Location()
	a.Calendar = ics.NewGenerator(loc, cfg.EventDuration())
	a.Events = events.NewService(store, a.Calendar)
	a.Invites = invite.NewService(a.Events, store, nil, nil)
	a.Dispatcher = dispatch.New(store, store, a.Calendar, a.Transport, dispatch.Options{
		Workers:     cfg.Dispatch.Workers,
		SendTimeout: cfg.SendTimeout(),
	})
	if a.Sessions != nil {
		a.Coordinator = workflow.NewCoordinator(a.Sessions, store, store, loc, nil, nil)
	}

	appLog.Info("app initialized",
		"storage", cfg.Storage.Driver,
		"sessions", cfg.Sessions.Backend,
		"smtp", cfg.SMTP.Host != "",
		"timezone", loc.String(),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	case config.DriverSQLite, "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (a *App) openSessions(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Sessions.Backend {
	case config.SessionsRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Sessions.RedisAddr})
		rs := workflow.NewRedisSessionStore(client, cfg.SessionTTL())
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return fmt.Errorf("connect redis %s: %w", cfg.Sessions.RedisAddr, err)
		}
		a.Sessions = rs
		a.closers = append(a.closers, rs.Close)
	default:
		a.memSessions = workflow.NewMemorySessionStore(cfg.SessionTTL(), nil)
		a.Sessions = a.memSessions
	}
	return nil
}

func openTransport(cfg *config.Config) (mail.Transport, error) {
	if cfg.SMTP.Host == "" {
		if cfg.SMTP.LogOnly {
			appLog.Warn("smtp host not configured; log_only set, logged invitations are marked sent")
			return mail.NewLogTransport(0), nil
		}
		appLog.Warn("smtp host not configured; invitations are logged and stay pending")
		return mail.NewHoldingTransport(), nil
	}
	t, err := mail.NewSMTPTransport(cfg.SMTP, cfg.SendTimeout())
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Server returns the HTTP API bound to this app.
func (a *App) Server() *web.Server {
	return web.NewServer(a.Config, web.Deps{
		Coordinator: a.Coordinator,
		Events:      a.Events,
		Invites:     a.Invites,
		Dispatcher:  a.Dispatcher,
		Providers:   a.Store,
		Calendar:    a.Calendar,
	})
}

// Scheduler returns a scheduler with the maintenance jobs this app needs.
// Only the in-memory session store needs sweeping; Redis expires keys.
func (a *App) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	s := scheduler.New(ctx, a.Config.Location())
	if a.memSessions != nil {
		sessions := a.memSessions
		err := s.Add("session-sweep", a.Config.Sessions.SweepCron, func(context.Context) {
			if n := sessions.Sweep(); n > 0 {
				appLog.Info("expired selections removed", "count", n)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves the API and maintenance jobs until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.Coordinator == nil {
		return errors.New("app was built without sessions")
	}
	sched, err := a.Scheduler(ctx)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop(context.Background())

	return a.Server().Serve(ctx)
}

// Close releases storage and session connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
