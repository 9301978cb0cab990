package tui

import (
	"fmt"
	"strings"
)

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the last width values of a percentage series.
// Values are scaled against 0-100, not the series' own range, so flat
// idle containers stay at the bottom.
func sparkline(data []float64, width int) string {
	if width <= 0 || len(data) == 0 {
		return ""
	}
	data = data[max(len(data)-width, 0):]

	top := len(sparkChars) - 1
	var b strings.Builder
	for _, v := range data {
		b.WriteRune(sparkChars[min(max(int(v/100*float64(top)), 0), top)])
	}
	return b.String()
}

// history returns CPU and memory series for the selected container,
// preferring persisted samples over the in-memory window.
func (m Model) history() (cpu, mem []float64) {
	if m.store == nil || m.selected == "" {
		return m.stats.cpu, m.stats.mem
	}
	points, err := m.store.Query(m.selected, m.timeRange)
	if err != nil || len(points) == 0 {
		return m.stats.cpu, m.stats.mem
	}

	cpu = make([]float64, len(points))
	mem = make([]float64, len(points))
	for i, p := range points {
		cpu[i], mem[i] = p.CPUPercent, p.MemoryPercent
	}
	return cpu, mem
}

func (m Model) renderHistory(width int) string {
	cpu, mem := m.history()
	if len(cpu) == 0 {
		return dimStyle.Render("No history yet...")
	}

	w := width - 14
	return strings.Join([]string{
		dimStyle.Render(fmt.Sprintf("History (%s)", m.timeRange)),
		dimStyle.Render("CPU ") + fg(colorBlue).Render(sparkline(cpu, w)),
		dimStyle.Render("MEM ") + fg(colorGreen).Render(sparkline(mem, w)),
	}, "\n")
}
