package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

var titleCaser = cases.Title(language.English)

// displayName turns a wire-level service or stem name into a display label.
func displayName(name string) string {
	return titleCaser.String(name)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// analysisSummary holds the known top-level fields of an analysis payload.
// The payload is otherwise opaque; unknown fields are ignored, missing fields
// simply do not print.
type analysisSummary struct {
	Key           string  `json:"key"`
	Tempo         float64 `json:"tempo"`
	TimeSignature string  `json:"timeSignature"`
	Confidence    float64 `json:"confidence"`
	Chords        []struct {
		Time  float64 `json:"time"`
		Label string  `json:"label"`
	} `json:"chords"`
}

func printAnalysisSummary(out io.Writer, payload json.RawMessage) {
	var summary analysisSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		// Shape we do not recognize; show it verbatim rather than nothing.
		fmt.Fprintln(out, string(payload))
		return
	}

	heading := "Analysis"
	if shouldColorize(out) {
		heading = ansiBold + heading + ansiReset
	}
	fmt.Fprintln(out, heading)
	if summary.Key != "" {
		fmt.Fprintf(out, "  Key:            %s\n", summary.Key)
	}
	if summary.Tempo > 0 {
		fmt.Fprintf(out, "  Tempo:          %.1f BPM\n", summary.Tempo)
	}
	if summary.TimeSignature != "" {
		fmt.Fprintf(out, "  Time signature: %s\n", summary.TimeSignature)
	}
	if summary.Confidence > 0 {
		fmt.Fprintf(out, "  Confidence:     %.0f%%\n", summary.Confidence*100)
	}
	if len(summary.Chords) > 0 {
		fmt.Fprintf(out, "  Chords (%d):\n", len(summary.Chords))
		for _, chord := range summary.Chords {
			fmt.Fprintf(out, "    %7.2fs  %s\n", chord.Time, chord.Label)
		}
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
