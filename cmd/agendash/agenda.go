package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"agendash/internal/agenda"
)

func newAgendaCmd() *cobra.Command {
	var (
		mode   string
		week   int
		month  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Fetch events once and print the grouped view",
		Example: `  agendash agenda
  agendash agenda --mode weekly --week 1
  agendash agenda --mode monthly --month April --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := agenda.ParseMode(mode)
			if err != nil {
				return err
			}

			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := contextOrBackground(cmd)

			a, err := newApp(ctx, conf, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Start(ctx); err != nil {
				return err
			}

			now := a.session.Now()
			st := a.session.Snapshot(ctx, now).State
			st.Mode = m
			st.WeekOffset = week
			if month != "" {
				mm, err := agenda.ParseMonth(month)
				if err != nil {
					return err
				}
				st.Month = mm
				st.MonthLabel = mm.String()
			}

			res := a.session.Compute(st, now)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "daily", "View mode: daily, weekly or monthly")
	cmd.Flags().IntVar(&week, "week", 0, "Week offset from the current week (weekly mode)")
	cmd.Flags().StringVar(&month, "month", "", "Month name (monthly mode, defaults to the current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// printResult renders each bucket as a heading followed by aligned rows.
func printResult(w io.Writer, res agenda.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, b := range res.Buckets {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%d)\n", b.Label, len(b.Events))
		if len(b.Events) == 0 {
			fmt.Fprintln(tw, "  no events")
			continue
		}
		for _, ev := range b.Events {
			marker := ""
			if ev.IsPersonal {
				marker = "*"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s%s\t%s\n", ev.EventDate, ev.Category, ev.Title, marker, ev.TimeRange)
		}
	}
	return tw.Flush()
}
