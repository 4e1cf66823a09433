package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold       = color.New(color.Bold).SprintFunc()
	Dim        = color.New(color.Faint).SprintFunc()
	Cyan       = color.New(color.FgCyan).SprintFunc()
	Green      = color.New(color.FgGreen).SprintFunc()
	Red        = color.New(color.FgRed).SprintFunc()
	Yellow     = color.New(color.FgYellow).SprintFunc()
	BoldCyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen  = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed    = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldWhite  = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetColor turns ANSI output on or off for every helper in this package.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// PrintBanner renders the tool banner.
func PrintBanner(w io.Writer) {
	frame := color.New(color.FgCyan)
	nodes := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgCyan)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +-----------------------+")
	nodes.Fprintln(w, "   |  o--o--o     o--o--o  |")
	brand.Fprintln(w, "   |    P  E  R  T   ⚡    |")
	nodes.Fprintln(w, "   |     \\--o--o--/        |")
	frame.Fprintln(w, "   +-----------------------+")
	fmt.Fprintf(w, "   %s\n\n", Dim("Program evaluation and review"))
}

// CriticalMark returns the marker shown next to critical tasks.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Slack colors a slack value: zero is critical, small is at risk.
func Slack(slack, total float64) string {
	s := fmt.Sprintf("%.2f", slack)
	switch {
	case slack == 0:
		return BoldYellow(s)
	case total > 0 && slack/total < 0.1:
		return Yellow(s)
	default:
		return Green(s)
	}
}

// Probability colors a completion probability by how safe the deadline is.
func Probability(p float64) string {
	s := fmt.Sprintf("%.2f%%", p*100)
	switch {
	case p >= 0.9:
		return BoldGreen(s)
	case p >= 0.5:
		return Yellow(s)
	default:
		return BoldRed(s)
	}
}

// TaskID renders a task id for inline display.
func TaskID(id string) string {
	return Bold(id)
}

// Level returns a colored log level tag.
func Level(level string) string {
	switch level {
	case "DEBUG":
		return Dim("DBG")
	case "WARN":
		return Yellow("WRN")
	case "ERROR":
		return BoldRed("ERR")
	default:
		return Cyan("INF")
	}
}
