package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chordscout/internal/cloud"
)

func newCloudCommand(ctx *commandContext) *cobra.Command {
	cloudCmd := &cobra.Command{
		Use:   "cloud",
		Short: "Cloud capability utilities",
	}
	cloudCmd.AddCommand(newCloudStatusCommand(ctx))
	cloudCmd.AddCommand(newCloudWakeCommand(ctx))
	return cloudCmd
}

func newCloudStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which cloud services are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, err := ctx.newProbe()
			if err != nil {
				return err
			}
			report := probe.Status(cmd.Context())
			printCloudReport(cmd, report)
			return nil
		},
	}
}

func newCloudWakeCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "wake",
		Short: "Wake hibernating cloud services",
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, err := ctx.newProbe()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wait {
				outcome := probe.WakeAndAwait(cmd.Context())
				if outcome.Woken {
					fmt.Fprintln(out, "Cloud services are awake.")
				} else {
					fmt.Fprintf(out, "Cloud services did not wake: %s\n", outcome.Message)
				}
				printCloudReport(cmd, outcome.Report)
				return nil
			}

			outcome := probe.Wake(cmd.Context())
			if outcome.Woken {
				fmt.Fprintln(out, "Wake request acknowledged.")
			} else {
				fmt.Fprintf(out, "Wake requested; %s\n", outcome.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Re-probe until a service becomes healthy")
	return cmd
}

func printCloudReport(cmd *cobra.Command, report cloud.Report) {
	out := cmd.OutOrStdout()
	if report.Degraded {
		fmt.Fprintf(out, "Capability probe failed (%s); all services assumed down.\n", report.ProbeError)
	}
	fmt.Fprintln(out, cloudTable(report))
}
