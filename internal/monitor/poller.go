// Package monitor drives the core components: a polling loop that
// normalizes container stats and a watcher that diagnoses failed
// deployments.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rusenback/erpmon/internal/model"
	"github.com/rusenback/erpmon/internal/stats"
)

// StatsSource is the part of the engine client the poller needs.
type StatsSource interface {
	ListContainers(ctx context.Context) ([]model.Container, error)
	GetRawStats(ctx context.Context, id string) (model.RawStatsSnapshot, error)
}

// StatsSink receives every normalized sample.
type StatsSink interface {
	Write(containerID string, s model.NormalizedStats)
}

// ContainerRecorder is implemented by sinks that also keep container
// metadata. It is called once per cycle for each running container.
type ContainerRecorder interface {
	RecordContainer(c model.Container, seen time.Time) error
}

// Observer is notified about samples and vanished containers.
type Observer interface {
	Observe(container string, s model.NormalizedStats)
	Forget(container string)
}

// PollerConfig controls polling cadence.
type PollerConfig struct {
	Interval time.Duration
	// Timeout bounds each snapshot read so one slow container cannot
	// stall the cycle.
	Timeout     time.Duration
	Platform    stats.Platform
	Concurrency int
}

// Sample is the per-container outcome of one poll cycle.
type Sample struct {
	Container model.Container
	Stats     model.NormalizedStats
	Err       error
}

// Poller fetches and normalizes stats for every running container.
type Poller struct {
	source   StatsSource
	cfg      PollerConfig
	sinks    []StatsSink
	observer Observer
	logger   *zap.Logger

	// Exits, when set, is called for containers that were running in the
	// previous cycle and have since exited with a non-zero code.
	Exits ExitHandler

	mu      sync.Mutex
	known   map[string]struct{}
	running map[string]struct{}
}

// NewPoller creates a poller. sinks and observer may be nil.
func NewPoller(source StatsSource, cfg PollerConfig, observer Observer, logger *zap.Logger, sinks ...StatsSink) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Poller{
		source:   source,
		cfg:      cfg,
		sinks:    sinks,
		observer: observer,
		logger:   logger,
		known:    make(map[string]struct{}),
		running:  make(map[string]struct{}),
	}
}

// Run polls once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle. Only a failure to list containers is returned;
// per-container failures are reported in the samples.
func (p *Poller) Poll(ctx context.Context) ([]Sample, error) {
	containers, err := p.source.ListContainers(ctx)
	if err != nil {
		return nil, err
	}

	running := make([]model.Container, 0, len(containers))
	for _, c := range containers {
		if c.Running() {
			running = append(running, c)
		}
	}

	p.record(running)
	p.handleExits(ctx, containers)

	samples := make([]Sample, len(running))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, c := range running {
		g.Go(func() error {
			samples[i] = p.sample(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	p.forgetMissing(running)
	return samples, nil
}

func (p *Poller) sample(ctx context.Context, c model.Container) Sample {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	raw, err := p.source.GetRawStats(ctx, c.ID)
	if err != nil {
		p.logger.Warn("failed to read container stats",
			zap.String("container", c.Name), zap.String("id", c.ID), zap.Error(err))
		return Sample{Container: c, Err: err}
	}

	normalized := stats.Normalize(raw, p.cfg.Platform)
	if normalized.Timestamp.IsZero() {
		normalized.Timestamp = time.Now()
	}
	if normalized.Degraded() {
		p.logger.Warn("degraded container stats",
			zap.String("container", c.Name), zap.String("warning", normalized.Warning))
	}

	for _, sink := range p.sinks {
		sink.Write(c.ID, normalized)
	}
	if p.observer != nil {
		p.observer.Observe(c.Name, normalized)
	}
	return Sample{Container: c, Stats: normalized}
}

func (p *Poller) record(running []model.Container) {
	now := time.Now()
	for _, sink := range p.sinks {
		rec, ok := sink.(ContainerRecorder)
		if !ok {
			continue
		}
		for _, c := range running {
			if err := rec.RecordContainer(c, now); err != nil {
				p.logger.Warn("failed to record container", zap.String("container", c.Name), zap.Error(err))
			}
		}
	}
}

// handleExits remembers which containers run now and hands the ones that
// failed since the previous cycle to Exits.
func (p *Poller) handleExits(ctx context.Context, containers []model.Container) {
	p.mu.Lock()
	var failed []model.Container
	current := make(map[string]struct{}, len(containers))
	for _, c := range containers {
		if c.Running() {
			current[c.ID] = struct{}{}
			continue
		}
		if _, was := p.running[c.ID]; was && c.Failed() {
			failed = append(failed, c)
		}
	}
	p.running = current
	p.mu.Unlock()

	if p.Exits == nil {
		return
	}
	for _, c := range failed {
		p.logger.Info("container exited", zap.String("container", c.Name), zap.Int("exit_code", c.ExitCode))
		if err := p.Exits.ContainerExited(ctx, c); err != nil {
			p.logger.Warn("failed to diagnose exited container", zap.String("container", c.Name), zap.Error(err))
		}
	}
}

func (p *Poller) forgetMissing(running []model.Container) {
	current := make(map[string]struct{}, len(running))
	for _, c := range running {
		current[c.Name] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for name := range p.known {
		if _, ok := current[name]; !ok && p.observer != nil {
			p.observer.Forget(name)
		}
	}
	p.known = current
}
