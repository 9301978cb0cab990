package stats

import "github.com/rusenback/erpmon/internal/model"

// Mode is the isolation mode a snapshot was classified as.
type Mode int

const (
	ModeSharedKernel Mode = iota
	ModeIsolated
)

func (m Mode) String() string {
	switch m {
	case ModeIsolated:
		return "isolated"
	default:
		return "shared-kernel"
	}
}

// counters is implemented by exactly the two mode variants below. Each
// carries only the fields its formulas read.
type counters interface {
	mode() Mode
	normalize() model.NormalizedStats
}

type sharedKernelCounters struct {
	cpu          cpuCounters
	usage        *uint64
	limit        *uint64
	cache        *uint64
	inactiveFile *uint64
}

type isolatedCounters struct {
	cpu               cpuCounters
	elapsedMs         float64
	numProcs          uint32
	privateWorkingSet *uint64
	commit            *uint64
	peakCommit        *uint64
	limit             *uint64
}

// Detect reports the isolation mode Normalize would use for raw.
func Detect(raw model.RawStatsSnapshot, hint Platform) Mode {
	return detect(raw, hint).mode()
}

// detect is a priority chain: isolated-mode fields, then shared-kernel
// fields, then the platform hint, then shared-kernel.
func detect(raw model.RawStatsSnapshot, hint Platform) counters {
	cur, prev := raw.Current, raw.Previous
	switch {
	case hasIsolatedFields(cur):
		return newIsolated(cur, prev)
	case hasSharedKernelFields(cur):
		return newSharedKernel(cur, prev)
	case hint == PlatformWindows:
		return newIsolated(cur, prev)
	default:
		return newSharedKernel(cur, prev)
	}
}

func hasIsolatedFields(s model.CounterSample) bool {
	return s.CommitBytes != nil || s.PeakCommitBytes != nil || s.PrivateWorkingSetBytes != nil ||
		(s.NumProcs != nil && *s.NumProcs > 0)
}

func hasSharedKernelFields(s model.CounterSample) bool {
	return s.MemoryUsage != nil || s.MemoryLimit != nil || s.Cache != nil || s.InactiveFile != nil
}

func newSharedKernel(cur, prev model.CounterSample) sharedKernelCounters {
	return sharedKernelCounters{
		cpu:          newCPUCounters(cur, prev),
		usage:        cur.MemoryUsage,
		limit:        cur.MemoryLimit,
		cache:        cur.Cache,
		inactiveFile: cur.InactiveFile,
	}
}

func newIsolated(cur, prev model.CounterSample) isolatedCounters {
	procs := uint32(1)
	if cur.NumProcs != nil && *cur.NumProcs > 0 {
		procs = *cur.NumProcs
	}
	return isolatedCounters{
		cpu:               newCPUCounters(cur, prev),
		elapsedMs:         elapsedMillis(cur.Read, prev.Read),
		numProcs:          procs,
		privateWorkingSet: cur.PrivateWorkingSetBytes,
		commit:            cur.CommitBytes,
		peakCommit:        cur.PeakCommitBytes,
		limit:             cur.MemoryLimit,
	}
}

func (sharedKernelCounters) mode() Mode { return ModeSharedKernel }

func (c sharedKernelCounters) normalize() model.NormalizedStats {
	usage := value(c.usage)
	reclaimable := firstNonZero(c.cache, c.inactiveFile)
	if reclaimable > usage {
		usage = 0
	} else {
		usage -= reclaimable
	}
	limit := value(c.limit)

	return model.NormalizedStats{
		CPUPercent:       c.cpu.systemPercent(),
		MemoryUsageBytes: usage,
		MemoryLimitBytes: limit,
		MemoryPercent:    memoryPercent(usage, limit),
	}
}

func (isolatedCounters) mode() Mode { return ModeIsolated }

func (c isolatedCounters) normalize() model.NormalizedStats {
	usage := firstNonZero(c.privateWorkingSet, c.commit)
	limit := firstNonZero(c.peakCommit, c.limit)

	out := model.NormalizedStats{
		CPUPercent:          c.cpuPercent(),
		MemoryUsageBytes:    usage,
		MemoryLimitBytes:    limit,
		MemoryPercent:       memoryPercent(usage, limit),
		IsIsolatedContainer: true,
	}
	if c.privateWorkingSet == nil && c.commit == nil {
		out.Warning = IsolationWarning
	}
	return out
}

// cpuPercent uses the system counter when the engine reports one and
// otherwise compares CPU ticks with the wall-clock ticks available to
// numProcs processes.
func (c isolatedCounters) cpuPercent() float64 {
	if c.cpu.hasSystem {
		return c.cpu.systemPercent()
	}
	if c.elapsedMs <= 0 {
		return 0
	}
	possibleTicks := c.elapsedMs * ticksPerMillisecond * float64(c.numProcs)
	return c.cpu.cpuDelta / possibleTicks * 100
}

func memoryPercent(usage, limit uint64) float64 {
	if limit == 0 {
		return 0
	}
	return float64(usage) / float64(limit) * 100
}
