package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/fuse/internal/scoring"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// notice writes a one-line, symbol-prefixed message to stderr so stdout
// stays clean for JSON and score output.
func notice(color, symbol, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notice(colorGreen, "✓", format, args...) }
func printError(format string, args ...any) { notice(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notice(colorYellow, "⚠", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// scoreColor bands a 0-100 score: green from 80, yellow from 60, red below.
func scoreColor(score int) string {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 60:
		return colorYellow
	default:
		return colorRed
	}
}

func formatScore(score int) string {
	return colorize(scoreColor(score), fmt.Sprintf("%3d", score))
}

const barWidth = 20

// scoreBar renders a 0-100 score as a fixed-width bar, one cell per 5 points.
func scoreBar(score int) string {
	filled := min(max(score, 0), 100) * barWidth / 100
	return colorize(scoreColor(score), strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled)
}

// printResult writes the overall score, one bar per component and the
// reasoning lines.
func printResult(w io.Writer, r scoring.Result) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Overall:"), formatScore(r.Overall))
	rows := []struct {
		label string
		score int
	}{
		{"MBTI", r.Breakdown.MBTI},
		{"Traits", r.Breakdown.Traits},
		{"Interests", r.Breakdown.Interests},
		{"Location", r.Breakdown.Location},
		{"Age", r.Breakdown.Age},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-10s %s %s\n", row.label, formatScore(row.score), scoreBar(row.score))
	}
	for _, reason := range r.Reasoning {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
}
