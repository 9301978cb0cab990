package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/erpmon/internal/model"
)

const meterWidth = 30

var (
	isolatedBadge = badge(colorYellow).Padding(0, 1).Render("ISOLATED")
	sharedBadge   = badge(colorGreen).Padding(0, 1).Render("SHARED KERNEL")
	nameStyle     = fg(colorPink).Bold(true)
	netStyle      = fg(colorSky)
	degradedStyle = fg(colorPeach).Italic(true)
)

func (m Model) statsBody(width int) string {
	c, ok := m.current()
	switch {
	case !ok:
		return "No containers available"
	case !c.Running():
		return fmt.Sprintf("Container: %s\n\n%s", c.Name, dimStyle.Render("Stats are only read from running containers"))
	}
	return renderStats(c, m.stats.last) + "\n\n" + m.renderHistory(width)
}

// renderStats shows one normalized sample with its isolation mode. A
// degraded sample also shows why.
func renderStats(c model.Container, s *model.NormalizedStats) string {
	if s == nil {
		return dimStyle.Render("Waiting for the first sample...")
	}

	mode := sharedBadge
	if s.IsIsolatedContainer {
		mode = isolatedBadge
	}

	lines := []string{
		nameStyle.Render(c.Name) + " " + mode,
		meterBox("CPU", colorBlue, s.CPUPercent, fmt.Sprintf("%6.2f%%", s.CPUPercent)),
		meterBox("MEM", colorGreen, s.MemoryPercent, fmt.Sprintf("%s / %s (%.2f%%)",
			formatBytes(s.MemoryUsageBytes), formatBytes(s.MemoryLimitBytes), s.MemoryPercent)),
		netStyle.Render(fmt.Sprintf("Network  rx %s  tx %s", formatBytes(s.NetworkRxBytes), formatBytes(s.NetworkTxBytes))),
	}
	if s.Degraded() {
		lines = append(lines, degradedStyle.Render("⚠ "+s.Warning))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func meterBox(label string, border lipgloss.Color, percent float64, value string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(label + "\n" + loadStyle(percent).Render(value+" "+meter(percent, meterWidth)))
}

// meter draws percent of width cells as a bar, clamped to 0-100.
func meter(percent float64, width int) string {
	filled := min(max(int(percent/100*float64(width)), 0), width)
	return "|" + strings.Repeat("█", filled) + strings.Repeat("─", width-filled) + "|"
}

func loadStyle(percent float64) lipgloss.Style {
	switch {
	case percent > 80:
		return badStyle
	case percent > 50:
		return warnStyle
	default:
		return okStyle
	}
}

func formatBytes(b uint64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	v, i := float64(b), 0
	for v >= 1000 && i < len(units)-1 {
		v /= 1000
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}
