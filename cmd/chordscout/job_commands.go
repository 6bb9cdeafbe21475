package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chordscout/internal/analysis"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a media URL and wait for its waveform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := ctx.acquireRunLock()
			if err != nil {
				return err
			}
			defer release()

			orch, cleanup, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			waveform, err := orch.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			snap := orch.Snapshot()
			if snap.Job != nil {
				fmt.Fprintf(out, "Job %s ready.\n", snap.Job.ID)
			}
			fmt.Fprintf(out, "Waveform: %.1fs of audio, %d peaks at %d Hz.\n",
				waveform.Duration, len(waveform.Peaks), waveform.SampleRate)
			fmt.Fprintln(out, "Run `chordscout analyze` with --start/--end to analyze a segment.")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Fetch the extraction status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:    %s\n", args[0])
			fmt.Fprintf(out, "Status: %s\n", status.Status)
			if status.Error != "" {
				fmt.Fprintf(out, "Error:  %s\n", status.Error)
			}
			if status.Waveform != nil {
				fmt.Fprintf(out, "Audio:  %.1fs, %d peaks at %d Hz\n",
					status.Waveform.Duration, len(status.Waveform.Peaks), status.Waveform.SampleRate)
			}
			return nil
		},
	}
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var rawOutput bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Fetch the analysis result of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := client.Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Status != analysis.StatusCompleted || !result.HasAnalysis() {
				fmt.Fprintf(out, "Job %s is %s; no analysis available yet.\n", args[0], result.Status)
				if result.Message != "" {
					fmt.Fprintf(out, "Message: %s\n", result.Message)
				}
				return nil
			}
			if rawOutput {
				fmt.Fprintln(out, string(result.Analysis))
				return nil
			}
			printAnalysisSummary(out, result.Analysis)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawOutput, "json", false, "Print the raw analysis payload")
	return cmd
}
