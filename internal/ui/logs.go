package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skein-net/skein/internal/journal"
)

// renderLogLines formats journal entries for the log viewport.
func (m Model) renderLogLines(entries []journal.Entry) string {
	styles := m.theme.Styles()
	if len(entries) == 0 {
		return styles.FaintText.Render("  no log lines yet")
	}

	var b strings.Builder
	for i, e := range entries {
		b.WriteString(styles.FaintText.Render(e.Timestamp.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(m.levelStyle(styles, e.Level).Render(pad(e.Level, 7)))
		b.WriteString(styles.Text.Render(e.Message))
		if i < len(entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) levelStyle(styles Styles, level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	case "NOTICE":
		return styles.InfoText
	default:
		return styles.MutedText
	}
}
