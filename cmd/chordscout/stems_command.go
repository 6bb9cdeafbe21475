package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"chordscout/internal/analysis"
)

func newStemsCommand(ctx *commandContext) *cobra.Command {
	var (
		model    string
		audioURL string
	)

	cmd := &cobra.Command{
		Use:   "stems <job-id>",
		Short: "Separate an analyzed job's audio into stems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			result, err := client.SeparateTracks(cmd.Context(), args[0], audioURL, analysis.SeparationModel(model))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stems := make([]string, 0, len(result.Tracks))
			for stem := range result.Tracks {
				stems = append(stems, stem)
			}
			sort.Strings(stems)

			fmt.Fprintf(out, "Separation complete (%s):\n", model)
			for _, stem := range stems {
				fmt.Fprintf(out, "  %-8s %s\n", displayName(stem), result.Tracks[stem])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", string(analysis.ModelDemucs), "Separation model (demucs or spleeter)")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Audio URL to separate (defaults to the job's source audio)")
	return cmd
}
