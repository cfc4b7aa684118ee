package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/erg0nix/skill-improver/internal/session"
)

var (
	colorPrimary = lipgloss.Color("#7C71F9")
	colorSuccess = lipgloss.Color("#34D399")
	colorError   = lipgloss.Color("#F87171")
	colorWarning = lipgloss.Color("#FBBF24")
	colorDim     = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#60A5FA")
)

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)

	styleLabel = styleDim
	styleValue = lipgloss.NewStyle()

	styleCommand = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	styleActive  = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	styleOverdue = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	styleID      = lipgloss.NewStyle().Foreground(colorAccent)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
}

func sessionTable(sessions []session.Info) *table.Table {
	t := newTable("SESSION", "SKILL", "ITERATION", "STATE", "STARTED")
	for _, info := range sessions {
		t.Row(
			styleID.Render(string(info.ID)),
			info.SkillName,
			progress(info),
			sessionState(info),
			formatStarted(info.CreatedAt),
		)
	}
	return t
}

func progress(info session.Info) string {
	return fmt.Sprintf("%d/%d", info.Iteration, info.MaxIterations)
}

func sessionState(info session.Info) string {
	if info.Overdue() {
		return styleOverdue.Render("overdue")
	}
	return styleActive.Render("active")
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func kvLine(key, value string) string {
	return fmt.Sprintf("  %s %s", styleLabel.Render(key+":"), styleValue.Render(value))
}

func styledError(msg string, hints ...string) string {
	out := styleError.Render(msg)
	for _, h := range hints {
		out += "\n  " + styleDim.Render(h)
	}
	return out
}
