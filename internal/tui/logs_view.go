package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/model"
)

// logChrome is the panel frame, the title, the container line and the
// scroll line around the visible log lines.
const logChrome = 10

var (
	levelStyles = map[diagnose.Level]lipgloss.Style{
		diagnose.LevelError: fg(colorRed),
		diagnose.LevelWarn:  fg(colorPeach),
		diagnose.LevelInfo:  fg(colorBlue),
		diagnose.LevelDebug: dimStyle,
	}
	spanStyles = map[diagnose.SpanKind]lipgloss.Style{
		diagnose.SpanPort:      fg(colorYellow).Bold(true).Underline(true),
		diagnose.SpanErrorCode: fg(colorMauve).Bold(true),
	}
	streamMarks = map[string]string{
		"stdout": fg(colorGreen).Render("○"),
		"stderr": fg(colorRed).Render("●"),
	}
	// ruleMark flags lines a diagnosis rule matches on their own.
	ruleMark = fg(colorRed).Bold(true).Render("!")
)

func (m Model) logPage() int {
	return max(m.layout().bottomH-logChrome, 3)
}

func (m Model) maxLogOffset() int {
	return max(len(m.logs.lines)-m.logPage(), 0)
}

// scrollLogs moves the window by delta lines. Reaching the end turns
// following back on, scrolling up turns it off.
func (m *Model) scrollLogs(delta int) {
	if delta == 0 {
		delta = 1
	}
	limit := m.maxLogOffset()
	m.logs.offset = min(max(m.logs.offset+delta, 0), limit)
	m.logs.follow = m.logs.offset == limit && delta > 0
}

func (m Model) logsBody(width int) string {
	c, ok := m.current()
	if !ok {
		return "No container selected"
	}

	var b strings.Builder
	b.WriteString("Container: " + c.Name)
	if m.logs.follow {
		b.WriteString(dimStyle.Render("  [following]"))
	}
	b.WriteString("\n\n")

	if len(m.logs.lines) == 0 {
		b.WriteString(dimStyle.Render("No logs yet..."))
		return b.String()
	}

	page := m.logPage()
	start := min(m.logs.offset, m.maxLogOffset())
	end := min(start+page, len(m.logs.lines))
	for _, e := range m.logs.lines[start:end] {
		b.WriteString(m.renderLogLine(e, width-8) + "\n")
	}
	if len(m.logs.lines) > page {
		fmt.Fprintf(&b, "\n%s", dimStyle.Render(fmt.Sprintf("[%d/%d] PgUp/PgDn scroll  a follow  c clear", start+1, len(m.logs.lines))))
	}
	return b.String()
}

// renderLogLine draws one entry: time, stream, rule mark and message. The
// message is coloured by its level, with ports and error codes picked out.
func (m Model) renderLogLine(e model.LogEntry, width int) string {
	msg := truncate(e.Message, max(width-12, 10))
	a := m.classifier.Annotate(msg)

	base, ok := levelStyles[a.Level]
	if !ok {
		base = textStyle
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(e.Timestamp.Format("15:04:05")) + " ")
	b.WriteString(streamMarks[e.Stream])
	if a.Type != "" {
		b.WriteString(ruleMark)
	} else {
		b.WriteString(" ")
	}

	pos := 0
	for _, s := range a.Spans {
		if s.Start > pos {
			b.WriteString(base.Render(msg[pos:s.Start]))
		}
		b.WriteString(spanStyles[s.Kind].Render(msg[s.Start:s.End]))
		pos = s.End
	}
	if pos < len(msg) {
		b.WriteString(base.Render(msg[pos:]))
	}
	return b.String()
}
