package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/erpmon/internal/storage"
)

type binding struct {
	keys []string
	// label and help are shown in the footer; bindings without help are not.
	label, help string
	run         func(m *Model) tea.Cmd
}

var keymap = []binding{
	{keys: []string{"up", "k"}, label: "↑/k", help: "up", run: func(m *Model) tea.Cmd { return m.moveCursor(-1) }},
	{keys: []string{"down", "j"}, label: "↓/j", help: "down", run: func(m *Model) tea.Cmd { return m.moveCursor(1) }},
	{keys: []string{"s"}, label: "s", help: "start", run: func(m *Model) tea.Cmd { return m.act("Started", m.client.StartContainer) }},
	{keys: []string{"x"}, label: "x", help: "stop", run: func(m *Model) tea.Cmd { return m.act("Stopped", m.client.StopContainer) }},
	{keys: []string{"r"}, label: "r", help: "restart", run: func(m *Model) tea.Cmd { return m.act("Restarted", m.client.RestartContainer) }},
	{keys: []string{"d"}, label: "d", help: "diagnose", run: (*Model).startDiagnosis},
	{keys: []string{"R"}, label: "R", help: "refresh", run: (*Model).reload},
	{keys: []string{"1", "2", "3", "4", "5"}, label: "1-5", help: "range"},
	{keys: []string{"q", "ctrl+c"}, label: "q", help: "quit", run: func(m *Model) tea.Cmd {
		m.stopFeeds()
		return tea.Quit
	}},

	{keys: []string{"pgup"}, run: func(m *Model) tea.Cmd { m.scrollLogs(-m.logPage() / 2); return nil }},
	{keys: []string{"pgdown"}, run: func(m *Model) tea.Cmd { m.scrollLogs(m.logPage() / 2); return nil }},
	{keys: []string{"home"}, run: func(m *Model) tea.Cmd { m.scrollLogs(-len(m.logs.lines)); return nil }},
	{keys: []string{"end"}, run: func(m *Model) tea.Cmd { m.scrollLogs(len(m.logs.lines)); return nil }},
	{keys: []string{"a"}, run: func(m *Model) tea.Cmd {
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.offset = m.maxLogOffset()
		}
		return nil
	}},
	{keys: []string{"c"}, run: func(m *Model) tea.Cmd {
		m.logs.lines, m.logs.offset = nil, 0
		return nil
	}},
}

var timeRangeKeys = map[string]storage.TimeRange{
	"1": storage.Range30Min,
	"2": storage.Range1Hour,
	"3": storage.Range6Hour,
	"4": storage.Range1Day,
	"5": storage.Range1Week,
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if r, ok := timeRangeKeys[key]; ok {
		m.timeRange = r
		return m, nil
	}
	for _, b := range keymap {
		if b.run != nil && slices.Contains(b.keys, key) {
			cmd := b.run(&m)
			return m, cmd
		}
	}
	return m, nil
}

// helpLine lists the documented bindings.
func helpLine() string {
	parts := make([]string, 0, len(keymap))
	for _, b := range keymap {
		if b.help != "" {
			parts = append(parts, "["+b.label+"] "+b.help)
		}
	}
	return strings.Join(parts, "  ")
}
