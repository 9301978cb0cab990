package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/docker"
	"github.com/rusenback/erpmon/internal/model"
	"github.com/rusenback/erpmon/internal/storage"
)

const (
	defaultRefresh = 2 * time.Second
	historyLen     = 150
	maxLogLines    = 1000
)

// HistoryStore persists samples and serves them back for the graph.
type HistoryStore interface {
	Write(containerID string, s model.NormalizedStats)
	Query(containerID string, r storage.TimeRange) ([]storage.DataPoint, error)
}

// Options tunes the dashboard. Zero values fall back to defaults.
type Options struct {
	Classifier *diagnose.Classifier
	// Store may be nil, the graph then only shows this session.
	Store HistoryStore
	// RefreshInterval is how often the container list is reloaded.
	RefreshInterval time.Duration
}

// statsFeed follows the stats stream of the selected container.
type statsFeed struct {
	cancel  func()
	samples <-chan model.NormalizedStats
	errs    <-chan error

	last     *model.NormalizedStats
	cpu, mem []float64
}

// logFeed follows the log stream of the selected container.
type logFeed struct {
	cancel  func()
	entries <-chan model.LogEntry
	errs    <-chan error

	lines  []model.LogEntry
	offset int
	follow bool
}

type diagnosisState int

const (
	diagnosisIdle diagnosisState = iota
	diagnosisRunning
	diagnosisDone
)

// Model on koko TUI:n tila
type Model struct {
	ctx        context.Context
	client     docker.DockerClient
	classifier *diagnose.Classifier
	store      HistoryStore
	refresh    time.Duration

	containers []model.Container
	cursor     int
	loading    bool
	err        error
	status     string
	width      int
	height     int

	// selected is the container ID the feeds and diagnosis belong to.
	selected string
	stats    statsFeed
	logs     logFeed

	diagState diagnosisState
	diagnosis *model.ErrorDiagnosis

	// isolated keeps the last isolation mode seen per container ID.
	isolated  map[string]bool
	timeRange storage.TimeRange
}

// NewModel creates the dashboard model.
func NewModel(ctx context.Context, client docker.DockerClient, opts Options) Model {
	if opts.Classifier == nil {
		opts.Classifier = diagnose.NewClassifier(diagnose.DefaultPortRange)
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefresh
	}
	return Model{
		ctx:        ctx,
		client:     client,
		classifier: opts.Classifier,
		store:      opts.Store,
		refresh:    opts.RefreshInterval,
		loading:    true,
		isolated:   make(map[string]bool),
		timeRange:  storage.Range30Min,
	}
}

// Init loads the container list and starts the refresh timer
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchContainers(m.ctx, m.client), tick(m.refresh))
}

func (m Model) current() (model.Container, bool) {
	if m.cursor < 0 || m.cursor >= len(m.containers) {
		return model.Container{}, false
	}
	return m.containers[m.cursor], true
}
