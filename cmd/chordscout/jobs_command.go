package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chordscout/internal/history"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(ctx, cmd, 0)
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(ctx, cmd, limit)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job record(s).\n", removed)
			return nil
		},
	}

	jobsCmd.AddCommand(listCmd)
	jobsCmd.AddCommand(clearCmd)
	return jobsCmd
}

func runJobsList(ctx *commandContext, cmd *cobra.Command, limit int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No jobs recorded yet.")
		return nil
	}
	fmt.Fprintln(out, jobsTable(records))
	return nil
}
