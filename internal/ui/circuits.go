package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/skein-net/skein/internal/circuit"
)

var circuitColumns = []struct {
	title string
	width int
}{
	{"ID", 6},
	{"STATUS", 10},
	{"PATH", 34},
	{"AGE", 8},
	{"EXPIRES", 9},
	{"RATE", 10},
	{"", 4},
}

// renderCircuits renders the active mode's circuit table.
func (m Model) renderCircuits() string {
	styles := m.theme.Styles()
	pane := m.panes[m.mode]

	var b strings.Builder

	var header strings.Builder
	for _, col := range circuitColumns {
		header.WriteString(pad(col.title, col.width))
	}
	b.WriteString(styles.MutedText.Bold(true).Render(header.String()))
	b.WriteString("\n")

	if len(pane.circuits) == 0 {
		b.WriteString(styles.FaintText.Render("  no circuits observed yet"))
		return b.String()
	}

	now := time.Now()
	rows := contentHeight(m.height) - 1
	start := 0
	if pane.selected >= rows {
		start = pane.selected - rows + 1
	}

	for i := start; i < len(pane.circuits) && i < start+rows; i++ {
		c := pane.circuits[i]
		line := m.renderCircuitRow(styles, c, pane.inUse, now)
		if i == pane.selected {
			line = styles.Selected.Render(stripStyles(line))
		}
		b.WriteString(line)
		if i < len(pane.circuits)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderCircuitRow(styles Styles, c circuit.Circuit, inUse *circuit.Circuit, now time.Time) string {
	status := string(c.Status)
	statusStyle := styles.StatusStyle(c.Status)
	if c.Expired {
		status = "expired"
		statusStyle = styles.FaintText
	}

	marker := ""
	if inUse != nil && inUse.ID == c.ID {
		marker = "◀"
	}

	var b strings.Builder
	b.WriteString(styles.Text.Render(pad(fmt.Sprintf("%d", c.ID), circuitColumns[0].width)))
	b.WriteString(statusStyle.Render(pad(status, circuitColumns[1].width-2)))
	b.WriteString("  ")
	b.WriteString(styles.Text.Render(pad(pathSummary(c), circuitColumns[2].width)))
	b.WriteString(styles.MutedText.Render(pad(ageString(now.Sub(c.CreatedAt)), circuitColumns[3].width)))
	b.WriteString(styles.MutedText.Render(pad(expiryString(c, now), circuitColumns[4].width)))
	b.WriteString(styles.InfoText.Render(pad(rateString(c.Relays), circuitColumns[5].width)))
	b.WriteString(styles.SuccessText.Render(pad(marker, circuitColumns[6].width)))
	return b.String()
}

// pathSummary condenses a circuit's relay path into one cell: nicknames
// when known, fingerprint prefixes otherwise, bare fingerprints and IPs
// when no relay list has arrived yet.
func pathSummary(c circuit.Circuit) string {
	if len(c.Relays) > 0 {
		hops := make([]string, 0, len(c.Relays))
		for _, r := range c.Relays {
			switch {
			case r.Nickname != "":
				hops = append(hops, r.Nickname)
			case len(r.Fingerprint) >= 8:
				hops = append(hops, r.Fingerprint[:8])
			default:
				hops = append(hops, r.IP)
			}
		}
		return strings.Join(hops, "›")
	}

	hops := make([]string, 0, len(c.Fingerprints)+len(c.IPs))
	for _, fp := range c.Fingerprints {
		if len(fp) >= 8 {
			fp = fp[:8]
		}
		hops = append(hops, fp)
	}
	hops = append(hops, c.IPs...)
	if len(hops) == 0 {
		return "-"
	}
	return strings.Join(hops, "›")
}

// ageString formats an elapsed duration for a narrow table cell.
func ageString(d time.Duration) string {
	switch {
	case d < 0:
		return "-"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// expiryString shows the countdown to a circuit's idle expiry.
func expiryString(c circuit.Circuit, now time.Time) string {
	if c.ExpiresAt.IsZero() {
		return "-"
	}
	remaining := c.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return "expired"
	}
	return ageString(remaining)
}

// rateString totals the per-hop payment rate across the path.
func rateString(relays []circuit.Relay) string {
	var total int64
	for _, r := range relays {
		total += r.RateMsat
	}
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d msat", total)
}

func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		cut, _ := cutDisplay(s, width)
		return cut
	}
	cut, cw := cutDisplay(s, width-2)
	return cut + "…" + strings.Repeat(" ", width-cw-1)
}

// cutDisplay returns the longest prefix of s that fits w display cells,
// never splitting a rune, along with the prefix's cell width. Relay
// nicknames are operator-chosen and not guaranteed to be ASCII.
func cutDisplay(s string, w int) (string, int) {
	total := 0
	for i, r := range s {
		rw := lipgloss.Width(string(r))
		if total+rw > w {
			return s[:i], total
		}
		total += rw
	}
	return s, total
}

// stripStyles flattens a styled row so the selection background covers it
// uniformly.
func stripStyles(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
