package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// footerLines is the height of the status and help lines.
const footerLines = 2

// layout is the 60/40 split of the screen into four panels.
type layout struct {
	leftW, rightW int
	topH, bottomH int
}

func (m Model) layout() layout {
	bodyH := max(m.height-footerLines, 0)
	l := layout{leftW: m.width * 3 / 5, topH: bodyH * 3 / 5}
	l.rightW = m.width - l.leftW
	l.bottomH = bodyH - l.topH
	return l
}

// View piirtää näkymän
func (m Model) View() string {
	l := m.layout()
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		panel("Containers", m.listBody(l.leftW), l.leftW, l.topH),
		panel("Stats", m.statsBody(l.rightW), l.rightW, l.topH))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		panel("Network Diagnosis", m.diagnosisBody(l.leftW), l.leftW, l.bottomH),
		panel("Log Preview", m.logsBody(l.rightW), l.rightW, l.bottomH))
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom, m.footer())
}

// panel frames body under a title. w and h include the border.
func panel(title, body string, w, h int) string {
	return panelStyle.
		Width(max(w-4, 0)).
		Height(max(h-4, 0)).
		Render(titleStyle.Render(title) + "\n\n" + body)
}

func (m Model) footer() string {
	status := m.status
	if m.err != nil {
		status = badStyle.Render("Error: " + m.err.Error())
	}
	return status + "\n" + helpStyle.Render(helpLine())
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}
