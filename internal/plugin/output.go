package plugin

import (
	"fmt"
	"io"
	"strings"
)

// Line is one status line as printed for the supervisor
type Line struct {
	Host            string
	Service         string
	Output          string
	PerformanceData []string
}

// String renders the line without a trailing newline.
//
//	Host web1, Service Disk, OK - disk free|used=10%
//	Host web1, OK - disk free|used=10%
func (l Line) String() string {
	var b strings.Builder
	b.WriteString("Host ")
	b.WriteString(l.Host)
	if l.Service != "" {
		b.WriteString(", Service ")
		b.WriteString(l.Service)
	}
	b.WriteString(", ")
	b.WriteString(l.Output)
	b.WriteByte('|')
	b.WriteString(JoinPerfdata(l.PerformanceData))
	return b.String()
}

// JoinPerfdata joins performance data tokens with a single space
func JoinPerfdata(tokens []string) string {
	return strings.Join(tokens, " ")
}

// WriteLine prints the status line followed by a newline
func WriteLine(w io.Writer, l Line) error {
	if _, err := fmt.Fprintln(w, l.String()); err != nil {
		return fmt.Errorf("failed to write status line: %w", err)
	}
	return nil
}

// WriteError prints the UNKNOWN error line used for every failure path.
// Line breaks in msg are folded into single spaces.
func WriteError(w io.Writer, msg string) error {
	if _, err := fmt.Fprintf(w, "Error: %s\n", singleLine(msg)); err != nil {
		return fmt.Errorf("failed to write error line: %w", err)
	}
	return nil
}

func singleLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	return strings.Join(lines, " ")
}
