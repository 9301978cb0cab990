package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/model"
	"github.com/rusenback/erpmon/internal/storage"
)

type fakeClient struct {
	mu         sync.Mutex
	containers []model.Container
	logs       []model.LogEntry
	logsErr    error
	started    []string
	streamed   []string
}

func (f *fakeClient) ListContainers(context.Context) ([]model.Container, error) {
	return f.containers, nil
}

func (f *fakeClient) StartContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	return nil
}

func (f *fakeClient) StopContainer(context.Context, string) error    { return nil }
func (f *fakeClient) RestartContainer(context.Context, string) error { return nil }

func (f *fakeClient) GetRawStats(context.Context, string) (model.RawStatsSnapshot, error) {
	return model.RawStatsSnapshot{}, nil
}

func (f *fakeClient) GetContainerStats(context.Context, string) (model.NormalizedStats, error) {
	return model.NormalizedStats{}, nil
}

func (f *fakeClient) StreamContainerStats(id string) (<-chan model.NormalizedStats, <-chan error, func()) {
	f.mu.Lock()
	f.streamed = append(f.streamed, id)
	f.mu.Unlock()
	return make(chan model.NormalizedStats), make(chan error), func() {}
}

func (f *fakeClient) GetContainerLogs(context.Context, string, int) ([]model.LogEntry, error) {
	return f.logs, f.logsErr
}

func (f *fakeClient) StreamContainerLogs(string) (<-chan model.LogEntry, <-chan error, func()) {
	return make(chan model.LogEntry), make(chan error), func() {}
}

func (f *fakeClient) Close() error { return nil }

type memStore struct {
	written map[string][]model.NormalizedStats
	points  []storage.DataPoint
}

func (s *memStore) Write(id string, st model.NormalizedStats) {
	if s.written == nil {
		s.written = map[string][]model.NormalizedStats{}
	}
	s.written[id] = append(s.written[id], st)
}

func (s *memStore) Query(string, storage.TimeRange) ([]storage.DataPoint, error) {
	return s.points, nil
}

func newTestModel(client *fakeClient, store HistoryStore) Model {
	m := NewModel(context.Background(), client, Options{
		Classifier: diagnose.NewClassifier(diagnose.DefaultPortRange),
		Store:      store,
	})
	m.width, m.height = 160, 50
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func running(id, name string) model.Container {
	return model.Container{ID: id, Name: name, State: "running", Status: "Up 5 minutes"}
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(context.Background(), &fakeClient{}, Options{})
	assert.Equal(t, defaultRefresh, m.refresh)
	assert.NotNil(t, m.classifier)

	m = NewModel(context.Background(), &fakeClient{}, Options{RefreshInterval: 10 * time.Second})
	assert.Equal(t, 10*time.Second, m.refresh)
}

func TestTickUsesRefreshInterval(t *testing.T) {
	m := NewModel(context.Background(), &fakeClient{}, Options{RefreshInterval: time.Millisecond})
	_, cmd := update(t, m, tickMsg(time.Now()))
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	var ticked bool
	for _, c := range batch {
		if _, ok := c().(tickMsg); ok {
			ticked = true
		}
	}
	assert.True(t, ticked)
}

func TestContainersMsgStartsFeedsForSelection(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(client, nil)

	m, cmd := update(t, m, containersMsg{containers: []model.Container{running("a", "web"), running("b", "db")}})
	require.NotNil(t, cmd)
	assert.Equal(t, "a", m.selected)
	assert.Equal(t, []string{"a"}, client.streamed)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, "b", m.selected)
	assert.Equal(t, []string{"a", "b"}, client.streamed)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
}

func TestStatsMsgRecordsHistoryAndStorage(t *testing.T) {
	store := &memStore{}
	m := newTestModel(&fakeClient{}, store)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})

	m, cmd := update(t, m, statsMsg{stats: model.NormalizedStats{CPUPercent: 42, MemoryPercent: 10, IsIsolatedContainer: true}})
	require.NotNil(t, cmd)
	require.NotNil(t, m.stats.last)
	assert.Equal(t, 42.0, m.stats.last.CPUPercent)
	assert.Equal(t, 42.0, m.stats.cpu[len(m.stats.cpu)-1])
	assert.Len(t, m.stats.cpu, historyLen)
	assert.Len(t, store.written["a"], 1)

	view := m.View()
	assert.Contains(t, view, "ISOLATED")
	assert.Contains(t, view, "isolated")
}

func TestListShowsIsolationModeAndExitCode(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	failed := model.Container{ID: "f", Name: "nav", State: "exited", ExitCode: 3, DisplayStatus: "exited (3)"}
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web"), failed}})

	body := m.listBody(100)
	assert.Contains(t, body, "MODE")
	assert.Contains(t, body, "2 total, 1 running, 1 failed")
	assert.Contains(t, body, "exited (3)")
	assert.NotContains(t, body, "shared")

	m, _ = update(t, m, statsMsg{stats: model.NormalizedStats{}})
	assert.Contains(t, m.listBody(100), "shared")
}

func TestDisplayStatus(t *testing.T) {
	assert.Equal(t, "Up 5 minutes", displayStatus(running("a", "web")))
	assert.Equal(t, "exited (137)", displayStatus(model.Container{State: "exited", ExitCode: 137}))
	assert.Equal(t, "exited", displayStatus(model.Container{State: "exited", ExitCode: 0}))
	assert.Equal(t, "created", displayStatus(model.Container{State: "created", ExitCode: -1}))
}

func TestStatsWarningIsRendered(t *testing.T) {
	out := renderStats(model.Container{Name: "web"}, &model.NormalizedStats{
		IsIsolatedContainer: true,
		Warning:             "stats limited under isolation",
	})
	assert.Contains(t, out, "ISOLATED")
	assert.Contains(t, out, "stats limited under isolation")

	out = renderStats(model.Container{Name: "web"}, &model.NormalizedStats{})
	assert.Contains(t, out, "SHARED KERNEL")
	assert.NotContains(t, out, "⚠")
}

func TestDiagnoseKeyClassifiesRecentLogs(t *testing.T) {
	client := &fakeClient{logs: []model.LogEntry{
		{Message: "starting"},
		{Message: "Error response from daemon: failed to create endpoint web on network nat: HNS failed with error : The port already exists (0x803b0013). Port 8080"},
	}}
	m := newTestModel(client, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})

	m, cmd := update(t, m, key("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, diagnosisRunning, m.diagState)

	m, _ = update(t, m, cmd())
	assert.Equal(t, diagnosisDone, m.diagState)
	require.NotNil(t, m.diagnosis)
	assert.Equal(t, model.PortConflict, m.diagnosis.Type)
	assert.Equal(t, []int{8080}, m.diagnosis.AffectedPorts)

	view := m.View()
	assert.Contains(t, view, "port_conflict")
	assert.Contains(t, view, "0x803b0013")
}

func TestDiagnosisFallsBackToBufferedLogs(t *testing.T) {
	client := &fakeClient{logsErr: errors.New("engine unavailable")}
	m := newTestModel(client, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})
	m, _ = update(t, m, logsMsg{entry: model.LogEntry{Message: "NAT static mapping already exists"}})

	m, _ = update(t, m, diagnosisMsg{containerID: "a", err: client.logsErr})
	require.NotNil(t, m.diagnosis)
	assert.Equal(t, model.NATMappingConflict, m.diagnosis.Type)
	assert.Contains(t, m.status, "engine unavailable")
}

func TestDiagnosisForOtherContainerIsIgnored(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})

	m, _ = update(t, m, diagnosisMsg{containerID: "gone", diagnosis: &model.ErrorDiagnosis{Type: model.ServiceFailure}})
	assert.Nil(t, m.diagnosis)
	assert.Equal(t, diagnosisIdle, m.diagState)
}

func TestCleanLogsShowNoFailure(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})
	m, _ = update(t, m, diagnosisMsg{containerID: "a"})

	assert.Equal(t, diagnosisDone, m.diagState)
	assert.Nil(t, m.diagnosis)
	assert.Contains(t, m.View(), "No known network failure")
}

func TestLogLineHighlightsClassifiedParts(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	line := m.renderLogLine(model.LogEntry{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stream:    "stderr",
		Message:   "[ERROR] port already exists (0x803b0013) - port 8080 is in use",
	}, 120)

	assert.Contains(t, line, "12:00:00")
	assert.Contains(t, line, "●!")
	assert.Contains(t, line, "0x803b0013")
	assert.Contains(t, line, "8080")

	plain := m.renderLogLine(model.LogEntry{Stream: "stdout", Message: "ready"}, 120)
	assert.Contains(t, plain, "○ ready")
}

func TestLogScrolling(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})
	for i := range 100 {
		m, _ = update(t, m, logsMsg{entry: model.LogEntry{Message: fmt.Sprintf("line %d", i)}})
	}
	assert.True(t, m.logs.follow)
	assert.Equal(t, m.maxLogOffset(), m.logs.offset)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.False(t, m.logs.follow)
	assert.Less(t, m.logs.offset, m.maxLogOffset())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.logs.offset)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	assert.True(t, m.logs.follow)

	m, _ = update(t, m, key("c"))
	assert.Empty(t, m.logs.lines)
}

func TestLogBufferIsBounded(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})
	for i := range maxLogLines + 5 {
		m.appendLog(model.LogEntry{Message: fmt.Sprintf("line %d", i)})
	}
	require.Len(t, m.logs.lines, maxLogLines)
	assert.Equal(t, "line 5", m.logs.lines[0].Message)
}

func TestStartKeyUsesSelectedContainer(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(client, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{{ID: "x", Name: "job", State: "exited"}}})

	_, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(actionMsg)
	require.True(t, ok)
	assert.NoError(t, msg.err)
	assert.Equal(t, "Started: job", msg.message)
	assert.Equal(t, []string{"x"}, client.started)
}

func TestTimeRangeKeys(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, key("4"))
	assert.Equal(t, storage.Range1Day, m.timeRange)
}

func TestHelpLineListsDocumentedKeys(t *testing.T) {
	help := helpLine()
	for _, want := range []string{"[d] diagnose", "[1-5] range", "[q] quit"} {
		assert.Contains(t, help, want)
	}
	assert.NotContains(t, help, "pgup")
}

func TestHistoryPrefersStorage(t *testing.T) {
	store := &memStore{points: []storage.DataPoint{{CPUPercent: 1, MemoryPercent: 2}, {CPUPercent: 3, MemoryPercent: 4}}}
	m := newTestModel(&fakeClient{}, store)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})

	cpu, mem := m.history()
	assert.Equal(t, []float64{1, 3}, cpu)
	assert.Equal(t, []float64{2, 4}, mem)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", sparkline(nil, 10))
	assert.Equal(t, "▁█", sparkline([]float64{0, 100}, 10))
	assert.Equal(t, "█", sparkline([]float64{0, 250}, 1))
	assert.Equal(t, "▁", sparkline([]float64{-5}, 3))
}

func TestMeterAndBytes(t *testing.T) {
	assert.Equal(t, "|██──|", meter(50, 4))
	assert.Equal(t, "|████|", meter(140, 4))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 MB", formatBytes(1_500_000))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
	assert.Equal(t, "", truncate("abc", -1))
	assert.Equal(t, "åäö", truncate("åäö", 3))
}

func TestContainersListChanged(t *testing.T) {
	a := []model.Container{running("a", "web")}
	assert.False(t, containersListChanged(a, []model.Container{running("a", "web")}))
	assert.True(t, containersListChanged(a, nil))
	assert.True(t, containersListChanged(a, []model.Container{{ID: "a", State: "exited"}}))
}

func TestViewRendersAllPanels(t *testing.T) {
	m := newTestModel(&fakeClient{}, nil)
	m, _ = update(t, m, containersMsg{containers: []model.Container{running("a", "web")}})
	view := m.View()
	for _, title := range []string{"Containers", "Stats", "Network Diagnosis", "Log Preview", "[q] quit"} {
		assert.True(t, strings.Contains(view, title), title)
	}
}
