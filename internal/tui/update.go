package tui

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/erpmon/internal/model"
)

// Update käsittelee viestit
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.logs.follow {
			m.logs.offset = m.maxLogOffset()
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(fetchContainers(m.ctx, m.client), tick(m.refresh))

	case containersMsg:
		return m.applyContainers(msg)

	case actionMsg:
		m.status = msg.message
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}
		return m, fetchContainers(m.ctx, m.client)

	case statsMsg:
		return m.applyStats(msg)

	case logsMsg:
		if msg.done {
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("Logs error: %v", msg.err)
		} else {
			m.appendLog(msg.entry)
		}
		return m, m.logs.next()

	case diagnosisMsg:
		if msg.containerID != m.selected {
			return m, nil
		}
		m.diagState = diagnosisDone
		m.diagnosis = msg.diagnosis
		if msg.err != nil {
			// the streamed buffer is better than nothing
			m.status = fmt.Sprintf("Logs error: %v", msg.err)
			m.diagnosis = m.classifier.Classify(model.Lines(m.logs.lines))
		}
	}

	return m, nil
}

func (m Model) applyContainers(msg containersMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.err = msg.err
	if msg.err != nil {
		return m, nil
	}

	changed := containersListChanged(m.containers, msg.containers)
	m.containers = msg.containers
	m.cursor = min(m.cursor, max(len(m.containers)-1, 0))
	if !changed {
		return m, nil
	}
	return m, m.follow()
}

func (m Model) applyStats(msg statsMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		return m, nil
	}
	if msg.err != nil {
		m.status = fmt.Sprintf("Stats error: %v", msg.err)
		return m, m.stats.next()
	}

	s := msg.stats
	m.stats.last = &s
	m.status = ""
	if len(m.stats.cpu) > 0 {
		m.stats.cpu = append(m.stats.cpu[1:], s.CPUPercent)
		m.stats.mem = append(m.stats.mem[1:], s.MemoryPercent)
	}
	if m.selected != "" {
		m.isolated[m.selected] = s.IsIsolatedContainer
		if m.store != nil {
			m.store.Write(m.selected, s)
		}
	}
	return m, m.stats.next()
}

func (m *Model) appendLog(e model.LogEntry) {
	if e.Message == "" {
		return
	}
	m.logs.lines = append(m.logs.lines, e)
	if over := len(m.logs.lines) - maxLogLines; over > 0 {
		m.logs.lines = slices.Delete(m.logs.lines, 0, over)
	}
	if m.logs.follow {
		m.logs.offset = m.maxLogOffset()
	}
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	next := m.cursor + delta
	if next < 0 || next >= len(m.containers) {
		return nil
	}
	m.cursor = next
	return m.follow()
}

func (m *Model) act(done string, call func(ctx context.Context, id string) error) tea.Cmd {
	c, ok := m.current()
	if !ok {
		return nil
	}
	return containerAction(m.ctx, c, done, call)
}

func (m *Model) startDiagnosis() tea.Cmd {
	c, ok := m.current()
	if !ok {
		return nil
	}
	m.diagState = diagnosisRunning
	return diagnoseContainer(m.ctx, m.client, m.classifier, c.ID)
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	m.status = "Refreshing..."
	return fetchContainers(m.ctx, m.client)
}

func (m *Model) stopFeeds() {
	if m.stats.cancel != nil {
		m.stats.cancel()
		m.stats.cancel = nil
	}
	if m.logs.cancel != nil {
		m.logs.cancel()
		m.logs.cancel = nil
	}
}

// follow points the feeds at the container under the cursor. Stats only
// stream while it runs; logs restart only when the selection changes.
func (m *Model) follow() tea.Cmd {
	c, ok := m.current()
	if !ok {
		m.stopFeeds()
		m.stats.last = nil
		m.selected = ""
		return nil
	}

	var cmds []tea.Cmd
	if c.ID != m.selected {
		m.stopFeeds()
		m.selected = c.ID
		m.stats = statsFeed{cpu: make([]float64, historyLen), mem: make([]float64, historyLen)}
		m.logs = logFeed{follow: true}
		m.diagState, m.diagnosis = diagnosisIdle, nil

		if c.Running() {
			m.logs.entries, m.logs.errs, m.logs.cancel = m.client.StreamContainerLogs(c.ID)
			cmds = append(cmds, m.logs.next())
		}
	}

	switch {
	case c.Running() && m.stats.cancel == nil:
		m.stats.samples, m.stats.errs, m.stats.cancel = m.client.StreamContainerStats(c.ID)
		cmds = append(cmds, m.stats.next())
	case !c.Running() && m.stats.cancel != nil:
		m.stats.cancel()
		m.stats.cancel = nil
		m.stats.last = nil
	}
	return tea.Batch(cmds...)
}

// containersListChanged reports a change in membership, order or state.
func containersListChanged(old, cur []model.Container) bool {
	return !slices.EqualFunc(old, cur, func(a, b model.Container) bool {
		return a.ID == b.ID && a.State == b.State
	})
}
