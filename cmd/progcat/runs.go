package main

import (
	"fmt"
	"time"

	"github.com/pevans/progcat/runs"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit  int
		status string
		since  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List crawl history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := runs.RunFilter{Limit: limit}

			if status != "" {
				st := runs.Status(status)
				switch st {
				case runs.StatusRunning, runs.StatusCompleted, runs.StatusCancelled, runs.StatusFailed:
				default:
					return fmt.Errorf("--status must be running, completed, cancelled, or failed")
				}
				filter.Status = &st
			}

			if since != "" {
				d, err := parseDuration(since)
				if err != nil {
					return err
				}
				t := time.Now().Add(-d)
				filter.Since = &t
			}

			history, err := runs.NewRunStore(a.settings.RunsDB)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer history.Close()

			list, err := history.List(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				printRunsTable(out, list)
			case "json":
				return printRunsJSON(out, list)
			default:
				return fmt.Errorf("--format must be table or json")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 = all)")
	cmd.Flags().StringVar(&status, "status", "", "Only show runs with this status")
	cmd.Flags().StringVar(&since, "since", "", "Only show runs started within this period (e.g. 24h, 7d, 2w)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")

	return cmd
}
