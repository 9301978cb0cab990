package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/erpmon/internal/model"
)

// listChrome is the panel frame, the title, the summary and the header.
const listChrome = 10

var (
	isolatedMode = fg(colorYellow).Render("isolated")
	sharedMode   = fg(colorGreen).Render("shared")
)

// mode is the isolation column: known once a sample has been seen.
func (m Model) mode(id string) string {
	isolated, ok := m.isolated[id]
	switch {
	case !ok:
		return dimStyle.Render("-")
	case isolated:
		return isolatedMode
	default:
		return sharedMode
	}
}

func (m Model) listBody(width int) string {
	switch {
	case m.err != nil && len(m.containers) == 0:
		return badStyle.Render("Cannot list containers")
	case m.loading && len(m.containers) == 0:
		return "Loading..."
	case len(m.containers) == 0:
		return dimStyle.Render("No containers")
	}

	var b strings.Builder
	up, failed := 0, 0
	for _, c := range m.containers {
		switch {
		case c.Running():
			up++
		case c.Failed():
			failed++
		}
	}
	fmt.Fprintf(&b, "%d total, %d running, %d failed\n\n", len(m.containers), up, failed)

	// frame, padding, the cursor marker and the gaps between columns
	cols := columnWidths(width - 14)
	b.WriteString(headerStyle.Render(row(cols, "NAME", "IMAGE", "MODE", "STATUS")) + "\n")

	rows := max(m.layout().topH-listChrome, 1)
	first := max(m.cursor-rows+1, 0)
	for i := first; i < len(m.containers) && i < first+rows; i++ {
		c := m.containers[i]
		line := row(cols, c.Name, c.Image, m.mode(c.ID), stateStyle(c).Render(c.DisplayStatus))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
			continue
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func stateStyle(c model.Container) lipgloss.Style {
	switch {
	case c.Running():
		return okStyle
	case c.Failed():
		return badStyle
	default:
		return dimStyle
	}
}

// columnWidths splits w between name, image, mode and status.
func columnWidths(w int) [4]int {
	name, image, mode := w/4, w*3/10, 9
	return [4]int{name, image, mode, max(w-name-image-mode, 0)}
}

// row pads each cell to its column. Cells may carry colour codes, so the
// padding is computed from the visible width.
func row(cols [4]int, cells ...string) string {
	var b strings.Builder
	for i, cell := range cells {
		if lipgloss.Width(cell) == len(cell) {
			cell = truncate(cell, cols[i])
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", max(cols[i]-lipgloss.Width(cell), 0)+1))
	}
	return strings.TrimRight(b.String(), " ")
}
