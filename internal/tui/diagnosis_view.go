package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/erpmon/internal/model"
)

var (
	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: fg(colorRed).Bold(true),
		model.SeverityWarning:  fg(colorPeach).Bold(true),
		model.SeverityInfo:     fg(colorBlue).Bold(true),
	}
	scriptStyle = fg(colorMauve)
)

func (m Model) diagnosisBody(width int) string {
	if _, ok := m.current(); !ok {
		return "No container selected"
	}
	switch m.diagState {
	case diagnosisIdle:
		return dimStyle.Render(fmt.Sprintf("Press [d] to classify the last %d log lines", diagnoseTail))
	case diagnosisRunning:
		return "Analyzing logs..."
	}
	if m.diagnosis == nil {
		return okStyle.Render("No known network failure in recent logs")
	}

	d := m.diagnosis
	var b strings.Builder
	b.WriteString(severityStyles[d.Severity].Render(fmt.Sprintf("[%s] %s", strings.ToUpper(string(d.Severity)), d.Type)) + "\n")
	if d.ErrorCode != "" {
		b.WriteString("Code: " + d.ErrorCode + "\n")
	}
	if len(d.AffectedPorts) > 0 {
		ports := make([]string, len(d.AffectedPorts))
		for i, p := range d.AffectedPorts {
			ports[i] = strconv.Itoa(p)
		}
		b.WriteString("Ports: " + strings.Join(ports, ", ") + "\n")
	}
	b.WriteString(dimStyle.Render(truncate(d.Message, max(width-10, 10))) + "\n\n")

	for i, s := range d.Suggestions {
		marker := "•"
		if s.Automated {
			marker = "⚙"
		}
		b.WriteString(textStyle.Render(fmt.Sprintf("%s %d. %s", marker, i+1, s.Title)))
		if s.ScriptReference != "" {
			b.WriteString(" " + scriptStyle.Render(s.ScriptReference))
		}
		b.WriteString("\n")
	}
	return b.String()
}
