package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"persistkit/internal/config"
	"persistkit/internal/persist"
	"persistkit/internal/platform/logger"
	"persistkit/internal/platform/pg"
	"persistkit/internal/platform/sqlite"
	"persistkit/internal/schedule"
	"persistkit/pkg/retry"
)

// App wires application components.
type App struct {
	cfg      config.Config
	log      *slog.Logger
	closeLog func() error
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closeLog := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "persistkit",
	})
	return &App{cfg: cfg, log: log, closeLog: closeLog}, nil
}

// Run applies pending migrations and, when a schedule is configured, keeps
// re-applying them on that schedule until interrupted.
func (a *App) Run() error {
	defer func() { _ = a.closeLog() }()
	a.log.Info("starting", slog.String("driver", a.cfg.DB.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := a.provider()
	if err != nil {
		return err
	}
	ex := persist.NewExecutor(provider, persist.WithLogger(a.log))
	defer func() { _ = ex.Close() }()

	// The database may still be starting; wait for it with backoff.
	if err := retry.Do(ctx, retry.DefaultConfig(), ex.Ping); err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}

	runner := persist.NewRunner(ex)
	if err := runner.Apply(ctx, a.cfg.Migrations.Dir); err != nil {
		return err
	}
	a.log.Info("migrations up to date", slog.String("dir", a.cfg.Migrations.Dir))

	if a.cfg.Migrations.Schedule == "" {
		return nil
	}

	sched := schedule.New(ctx, a.log)
	if _, err := sched.AddJob(a.cfg.Migrations.Schedule, "apply-migrations", func(ctx context.Context) error {
		return runner.Apply(ctx, a.cfg.Migrations.Dir)
	}); err != nil {
		return err
	}
	sched.Start()
	<-ctx.Done()
	sched.Stop()
	return nil
}

// provider builds the connection provider from configuration.
func (a *App) provider() (persist.ConnectionProvider, error) {
	switch a.cfg.DB.Driver {
	case sqlite.DriverName:
		return persist.Static{
			DriverName: sqlite.DriverName,
			DSN:        sqlite.DSN(a.cfg.DB.Path, sqlite.DefaultOptions()),
		}, nil
	case pg.DriverName:
		dsnCfg := pg.DefaultDSNConfig()
		dsnCfg.User = a.cfg.DB.User
		dsnCfg.Password = a.cfg.DB.Password
		dsnCfg.Database = a.cfg.DB.Name
		dsnCfg.ApplicationName = "persistkit"
		if a.cfg.DB.Host != "" {
			dsnCfg.Host = a.cfg.DB.Host
		}
		if a.cfg.DB.Port != 0 {
			dsnCfg.Port = a.cfg.DB.Port
		}
		if a.cfg.DB.SSLMode != "" {
			dsnCfg.SSLMode = a.cfg.DB.SSLMode
		}
		if err := pg.ValidateConfig(dsnCfg); err != nil {
			return nil, err
		}
		return persist.Static{
			DriverName: pg.DriverName,
			DSN:        pg.BuildDSN(dsnCfg),
			User:       a.cfg.DB.User,
			Pass:       a.cfg.DB.Password,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", a.cfg.DB.Driver)
	}
}
