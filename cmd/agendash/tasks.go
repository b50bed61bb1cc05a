package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage personal tasks",
	}
	cmd.AddCommand(newTasksAddCmd(), newTasksRmCmd(), newTasksLsCmd())
	return cmd
}

func newTasksAddCmd() *cobra.Command {
	var timeLabel string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a personal task dated today",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := tasksApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ev, created, err := a.session.CreateTask(contextOrBackground(cmd), strings.Join(args, " "), timeLabel)
			if err != nil {
				return err
			}
			if !created {
				cmd.Println("title is empty; nothing added")
				return nil
			}
			cmd.Printf("added %s  %s  %s  (%s)\n", ev.ID, ev.EventDate, ev.Title, ev.TimeRange)
			return nil
		},
	}
	cmd.Flags().StringVar(&timeLabel, "time", "", `Time label, e.g. "18:00" (default "All Day")`)
	return cmd
}

func newTasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a personal task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := tasksApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.session.DeleteTask(contextOrBackground(cmd), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				cmd.Printf("no task with id %s\n", args[0])
				return nil
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newTasksLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List personal tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := tasksApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.session.Tasks()
			if len(list) == 0 {
				cmd.Println("no personal tasks")
				return nil
			}
			for _, ev := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  (%s)\n", ev.ID, ev.EventDate, ev.Title, ev.TimeRange)
			}
			return nil
		},
	}
}

// tasksApp wires the components without a remote source and loads the
// persisted task list.
func tasksApp(cmd *cobra.Command) (*app, error) {
	conf, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	conf.MetricsEnabled = false

	ctx := contextOrBackground(cmd)
	a, err := newApp(ctx, conf, false)
	if err != nil {
		return nil, err
	}
	if err := a.tasks.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
