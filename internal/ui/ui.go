// Package ui styles sprintctl output with lipgloss.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Teal  = lipgloss.Color("#0F766E")
	Mint  = lipgloss.Color("#34D399")
	Amber = lipgloss.Color("#F59E0B")
	Rose  = lipgloss.Color("#E11D48")
	Slate = lipgloss.Color("#64748B")
	White = lipgloss.Color("#FFFFFF")

	Title   = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	Success = lipgloss.NewStyle().Foreground(Mint)
	Warning = lipgloss.NewStyle().Foreground(Amber)
	Error   = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	Muted   = lipgloss.NewStyle().Foreground(Slate)

	KeyStyle   = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	ValueStyle = lipgloss.NewStyle()

	Badge = lipgloss.NewStyle().Foreground(White).Background(Teal).Padding(0, 1).Bold(true)
)

const (
	IconOk    = "✓ "
	IconError = "✗ "
	IconWarn  = "! "
	IconFire  = "🔥"
)

// Printer writes styled lines to Out and errors to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New returns a Printer over out and errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

func (p *Printer) Ok(format string, args ...any) {
	fmt.Fprintln(p.Out, Success.Render(IconOk+fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.Out, Warning.Render(IconWarn+fmt.Sprintf(format, args...)))
}

func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintln(p.Err, Error.Render(IconError+fmt.Sprintf(format, args...)))
}

// Header prints a title underlined with a rule.
func (p *Printer) Header(s string) {
	fmt.Fprintln(p.Out, Title.Render(s))
	fmt.Fprintln(p.Out, Muted.Render(strings.Repeat("─", lipgloss.Width(s))))
}

// Kv prints a padded key-value pair.
func (p *Printer) Kv(key, value string) {
	fmt.Fprintf(p.Out, "%s %s\n", KeyStyle.Render(fmt.Sprintf("  %-16s", key)), ValueStyle.Render(value))
}

// Table prints rows in left-aligned columns sized to their widest cell.
func (p *Printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i]).Render(c)
		}
		fmt.Fprintln(p.Out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	line(header, KeyStyle)
	for _, row := range rows {
		line(row, ValueStyle)
	}
}

// StreakBar renders a bar of filled and empty cells for a streak.
func StreakBar(current, longest int) string {
	if longest < current {
		longest = current
	}
	if longest > 30 {
		current = current * 30 / longest
		longest = 30
	}
	return Success.Render(strings.Repeat("■", current)) + Muted.Render(strings.Repeat("□", longest-current))
}
