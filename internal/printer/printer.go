// Package printer provides formatted, colored output for the openinglens CLI.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	white  = color.New(color.FgHiWhite)
	grey   = color.New(color.FgHiBlack)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	// Print title in red to stderr
	red.Fprintf(os.Stderr, "%s\n\n", title)

	// Print explanation
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	// Print suggestions
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

// MoveLine prints a numbered movetext line in emphasis
func MoveLine(line string) {
	if line == "" {
		grey.Println("(starting position)")
		return
	}
	white.Println(line)
}

// StatsBar renders win/draw/loss rates as a fixed-width bar with a
// percentage legend, e.g. "████████░░░░▒▒▒▒  W 50.0%  D 25.0%  B 25.0%".
// The rates slice is [white, draw, black]; anything else prints "n/a".
func StatsBar(stats []float64) string {
	if len(stats) != 3 {
		return "n/a"
	}
	const width = 24
	w := int(stats[0]*width + 0.5)
	b := int(stats[2]*width + 0.5)
	if w+b > width {
		b = width - w
	}
	d := width - w - b

	var sb strings.Builder
	sb.WriteString(white.Sprint(strings.Repeat("█", w)))
	sb.WriteString(grey.Sprint(strings.Repeat("░", d)))
	sb.WriteString(cyan.Sprint(strings.Repeat("▒", b)))
	sb.WriteString(fmt.Sprintf("  W %.1f%%  D %.1f%%  B %.1f%%",
		stats[0]*100, stats[1]*100, stats[2]*100))
	return sb.String()
}

// TreeRow prints one node of an opening tree listing: indentation by
// depth, the move, game count, and optionally the opening name.
func TreeRow(depth int, move string, count int, name string) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s", indent, white.Sprint(move))
	grey.Printf("  (%d games)", count)
	if name != "" {
		cyan.Printf("  %s", name)
	}
	fmt.Println()
}
