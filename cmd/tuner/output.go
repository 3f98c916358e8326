package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	msg := color.RedString("error: ") + fmt.Sprintf(format, args...)
	if _, err := fmt.Fprint(os.Stderr, msg); err != nil {
		fmt.Print(msg)
	}
}

func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

func scoreColor(score, target float64) *color.Color {
	switch {
	case score >= target:
		return color.New(color.FgGreen, color.Bold)
	case score >= 50:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printResult(w io.Writer, res entity.BatchResult, target float64) {
	symbol, attr := "✓", color.FgGreen
	if res.BestAvgScore < target {
		symbol, attr = "⚠", color.FgYellow
	}
	printStatus(w, symbol, fmt.Sprintf("%s: best %s after %d attempt(s) (last %.1f%%)",
		color.New(color.Bold).Sprint(res.Family),
		scoreColor(res.BestAvgScore, target).Sprintf("%.1f%%", res.BestAvgScore),
		res.Attempts,
		res.LastAvgScore,
	), attr)

	for _, c := range res.BatchQueue {
		fmt.Fprintf(w, "    %-32s %s\n", c.CaseID, scoreColor(c.Score, target).Sprintf("%6.1f%%", c.Score))
	}
	switch {
	case res.ArtifactError != "":
		printStatus(w, "✗", "master artifact not saved: "+res.ArtifactError, color.FgRed)
	case res.ArtifactPath != "":
		printStatus(w, "✓", "master artifact: "+res.ArtifactPath, color.FgGreen)
	case res.BestTactic == nil:
		printStatus(w, "⚠", "no tactic produced; master artifact unchanged", color.FgYellow)
	}
}

func printMismatches(w io.Writer, ms []entity.Mismatch, limit int) {
	lines := entity.FormatMismatches(ms, limit)
	for _, l := range lines {
		fmt.Fprintf(w, "    %s %s\n", color.RedString("✗"), l)
	}
	if rest := len(ms) - len(lines); rest > 0 {
		fmt.Fprintf(w, "    %s\n", color.New(color.Faint).Sprintf("... %d more", rest))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// oneLine flattens s and cuts it to n runes for table output.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n > 0 && len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
