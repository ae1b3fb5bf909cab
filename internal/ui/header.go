package ui

import (
	"fmt"
	"strings"

	"github.com/skein-net/skein/internal/bus"
)

// renderHeader renders the mode tabs and the active mode's status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	pane := m.panes[m.mode]

	var parts []string
	parts = append(parts, styles.AccentText.Bold(true).Render("SKEIN"))

	for _, mode := range []bus.Mode{bus.ModeClient, bus.ModeRelay} {
		label := strings.ToUpper(string(mode))
		if mode == m.mode {
			parts = append(parts, styles.ActiveTab.Render("["+label+"]"))
		} else {
			parts = append(parts, styles.Tab.Render(" "+label+" "))
		}
	}

	switch {
	case !m.ctl.Running(m.mode):
		parts = append(parts, styles.MutedText.Render("● paused"))
	case pane.connected:
		parts = append(parts, styles.SuccessText.Render("● connected"))
	default:
		parts = append(parts, styles.DangerText.Render("● disconnected"))
	}

	parts = append(parts, styles.MutedText.Render(
		fmt.Sprintf("circuits: %d", len(pane.circuits))))
	if pane.inUse != nil {
		parts = append(parts, styles.InfoText.Render(
			fmt.Sprintf("in use: %d", pane.inUse.ID)))
	}
	if m.lastErr != nil {
		parts = append(parts, styles.DangerText.Render(
			truncate(m.lastErr.Error(), 40)))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderFooter renders the command bar.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	hint := "tab switch mode · space pause/resume · l logs · q circuits · h help · e quit"
	if m.currentView == ViewLogs {
		follow := "off"
		if m.panes[m.mode].follow {
			follow = "on"
		}
		hint = fmt.Sprintf("f follow (%s) · j/k scroll · g/G top/bottom · q circuits · e quit", follow)
	}
	return styles.Footer.Width(m.width).Render(hint)
}

func truncate(s string, max int) string {
	if len(s) <= max || max < 1 {
		return s
	}
	return s[:max-1] + "…"
}
