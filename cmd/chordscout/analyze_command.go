package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chordscout/internal/analysis"
	"chordscout/internal/cloud"
	"chordscout/internal/orchestrator"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		startSeconds float64
		endSeconds   float64
		useCloud     bool
		wakeCloud    bool
		rawOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Submit a media URL and analyze a segment end to end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := ctx.acquireRunLock()
			if err != nil {
				return err
			}
			defer release()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if wakeCloud || (useCloud && cfg.Cloud.Enabled) {
				probe, err := ctx.newProbe()
				if err != nil {
					return err
				}
				outcome := probe.WakeAndAwait(cmd.Context())
				if !outcome.Woken {
					fmt.Fprintf(cmd.OutOrStdout(), "Cloud services unavailable (%s); continuing with local analysis.\n", outcome.Message)
					useCloud = false
				} else {
					logger, err := ctx.ensureLogger()
					if err != nil {
						return err
					}
					// Keep the capability report warm while the long
					// analysis polls run.
					refresher := cloud.NewRefresher(probe,
						time.Duration(cfg.Cloud.RefreshInterval)*time.Second, logger)
					refresher.Start(cmd.Context())
					defer refresher.Stop()
				}
			}

			orch, cleanup, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitting %s ...\n", args[0])
			waveform, err := orch.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Waveform ready: %.1fs of audio, %d peaks at %d Hz.\n",
				waveform.Duration, len(waveform.Peaks), waveform.SampleRate)

			segment := orchestrator.Segment{Start: startSeconds, End: endSeconds}
			opts := analysis.AnalyzeOptions{EnableCloudServices: useCloud}
			if useCloud {
				opts.CloudOptions = analysis.CloudOptions{
					SourceSeparation:     cfg.Cloud.SourceSeparation,
					AdvancedStructure:    cfg.Cloud.AdvancedStructure,
					EnhancedKeyDetection: cfg.Cloud.EnhancedKeyDetection,
				}
			}

			fmt.Fprintf(out, "Analyzing %.2fs-%.2fs ...\n", segment.Start, segment.End)
			payload, err := orch.Analyze(cmd.Context(), segment, opts)
			if err != nil {
				return err
			}

			if rawOutput {
				fmt.Fprintln(out, string(payload))
				return nil
			}
			printAnalysisSummary(out, payload)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&startSeconds, "start", "s", 0, "Segment start in seconds")
	cmd.Flags().Float64VarP(&endSeconds, "end", "e", 0, "Segment end in seconds")
	cmd.Flags().BoolVar(&useCloud, "cloud", false, "Enable cloud-backed analysis features")
	cmd.Flags().BoolVar(&wakeCloud, "wake", false, "Wake hibernating cloud services before analyzing")
	cmd.Flags().BoolVar(&rawOutput, "json", false, "Print the raw analysis payload")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
