package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agendash/internal/dashboard"
	appLog "agendash/internal/log"
	"agendash/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("agendash starting", "version", version)
			appLog.Info("effective config",
				"listen", conf.Listen,
				"timezone", conf.Timezone,
				"week_start", conf.WeekStart,
				"refresh", conf.RefreshCron,
				"source", conf.Source.Kind,
				"month_tabs", conf.MonthTabs,
				"metrics", conf.MetricsEnabled,
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, conf, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tasks.Load(ctx); err != nil {
				return err
			}
			// The page stays usable while the first fetch is in flight.
			go a.session.Refresh(ctx)

			sched, err := dashboard.NewScheduler(a.session, conf.RefreshCron, a.loc)
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}

			srv := web.NewServer(conf, a.session, a.provider)
			err = web.StartServer(ctx, conf.Listen, srv.Handler())
			appLog.Info("agendash exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// contextOrBackground returns cmd.Context() or a background context when the
// command was executed without one.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
