package main

import (
	"context"
	"fmt"
	"time"

	"agendash/internal/agenda"
	"agendash/internal/config"
	"agendash/internal/dashboard"
	"agendash/internal/ics"
	"agendash/internal/instrumentation"
	appLog "agendash/internal/log"
	"agendash/internal/source"
	"agendash/internal/store"
	"agendash/internal/tasks"
)

// app is the wired set of components shared by the subcommands.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	tasks    *tasks.Manager
	session  *dashboard.Session
	provider *instrumentation.Provider
	closers  []func()
}

// newApp builds every component from cfg. withRemote=false skips connecting
// to the remote source, for commands that only touch personal tasks.
func newApp(ctx context.Context, cfg *config.Config, withRemote bool) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("invalid timezone; using UTC", err, "timezone", cfg.Timezone)
	}

	tabs := make([]time.Month, 0, len(cfg.MonthTabs))
	for _, label := range cfg.MonthTabs {
		m, err := agenda.ParseMonth(label)
		if err != nil {
			return nil, fmt.Errorf("month_tabs: %w", err)
		}
		tabs = append(tabs, m)
	}

	a := &app{cfg: cfg, loc: loc}

	a.provider, err = instrumentation.NewProvider(cfg.MetricsEnabled)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := a.provider.Shutdown(context.Background()); err != nil {
			appLog.Error("metrics shutdown failed", err)
		}
	})

	a.tasks = tasks.NewManager(
		newStore(cfg, ephemeral),
		tasks.WithKey(cfg.Store.Key),
		tasks.WithLocation(loc),
	)

	var src source.Source = source.Empty{}
	if withRemote {
		src, err = a.buildSource(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.session = dashboard.NewSession(dashboard.Options{
		Source:    src,
		Tasks:     a.tasks,
		Location:  loc,
		WeekStart: cfg.FirstWeekday(),
		MonthTabs: tabs,
		Metrics:   a.provider.Metrics(),
	})
	return a, nil
}

// newStore picks the slot backend for personal tasks.
func newStore(cfg *config.Config, inMemory bool) store.Store {
	if inMemory {
		appLog.Info("personal tasks are ephemeral")
		return store.NewMemoryStore()
	}
	return store.NewFileStore(cfg.Store.Dir)
}

func (a *app) buildSource(ctx context.Context) (source.Source, error) {
	sc := a.cfg.Source
	switch sc.Kind {
	case config.SourcePostgres:
		if sc.DatabaseURL == "" {
			return nil, fmt.Errorf("source.database_url is required for the postgres source")
		}
		pool, err := source.Connect(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		appLog.Info("remote source ready", "kind", sc.Kind, "table", sc.Table)
		return source.NewPostgres(pool, sc.Table), nil

	case config.SourceICS:
		feeds := make([]ics.Feed, 0, len(sc.ICS))
		for i, f := range sc.ICS {
			if f.URL == "" {
				continue
			}
			id := f.ID
			if id == "" {
				id = fmt.Sprintf("feed%d", i+1)
			}
			feeds = append(feeds, ics.Feed{ID: id, URL: f.URL, Category: f.Category})
		}
		appLog.Info("remote source ready", "kind", sc.Kind, "feeds", len(feeds))
		return source.NewICS(ics.NewFetcher(sc.CacheDir, nil), feeds, a.loc, sc.HorizonDays), nil

	default:
		appLog.Info("no remote source configured")
		return source.Empty{}, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
