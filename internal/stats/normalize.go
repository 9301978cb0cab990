// Package stats derives platform-agnostic container metrics from raw
// engine counters.
package stats

import (
	"strings"
	"time"

	"github.com/rusenback/erpmon/internal/model"
)

// Platform is an optional hint used when the counters themselves do not
// reveal the isolation mode.
type Platform string

const (
	PlatformUnknown Platform = ""
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// ParsePlatform maps an engine OS type or config value to a Platform.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linux":
		return PlatformLinux
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

const (
	// PrimaryInterface is preferred when a container has several interfaces.
	PrimaryInterface = "eth0"

	// IsolationWarning is reported when an isolated container exposes
	// neither a working set nor a commit counter.
	IsolationWarning = "stats limited under isolation"

	// Windows reports CPU time in 100ns ticks.
	ticksPerMillisecond = 10_000
)

// Normalize turns two consecutive samples into one NormalizedStats record.
// It never fails: absent counters contribute zero and the result is always
// finite with percentages in [0, 100].
func Normalize(raw model.RawStatsSnapshot, hint Platform) model.NormalizedStats {
	out := detect(raw, hint).normalize()
	out.NetworkRxBytes, out.NetworkTxBytes = pickInterface(raw.Networks)
	out.Timestamp = raw.Current.Read
	return sanitize(out)
}

// pickInterface returns the totals of the primary interface, or of the
// first one listed. Snapshots carry running totals so no delta is taken.
func pickInterface(networks []model.InterfaceCounters) (rx, tx uint64) {
	if len(networks) == 0 {
		return 0, 0
	}
	for _, n := range networks {
		if n.Name == PrimaryInterface {
			return n.RxBytes, n.TxBytes
		}
	}
	return networks[0].RxBytes, networks[0].TxBytes
}

// cpuCounters holds the deltas both modes need.
type cpuCounters struct {
	cpuDelta    float64
	systemDelta float64
	hasSystem   bool
	numCores    int
}

func newCPUCounters(cur, prev model.CounterSample) cpuCounters {
	c := cpuCounters{
		cpuDelta:  delta(cur.TotalUsage, prev.TotalUsage),
		hasSystem: cur.SystemUsage != nil,
		numCores:  1,
	}
	if c.hasSystem {
		c.systemDelta = delta(cur.SystemUsage, prev.SystemUsage)
	}
	switch {
	case cur.OnlineCPUs != nil && *cur.OnlineCPUs > 0:
		c.numCores = int(*cur.OnlineCPUs)
	case len(cur.PercpuUsage) > 0:
		c.numCores = len(cur.PercpuUsage)
	}
	return c
}

// systemPercent is the cgroup formula shared by both modes.
func (c cpuCounters) systemPercent() float64 {
	if c.systemDelta <= 0 {
		return 0
	}
	return c.cpuDelta / c.systemDelta * float64(c.numCores) * 100
}

// delta returns cur-prev. A counter reset between samples (cur < prev)
// yields 0 rather than a negative contribution.
func delta(cur, prev *uint64) float64 {
	c, p := value(cur), value(prev)
	if c < p {
		return 0
	}
	return float64(c - p)
}

func value(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

// firstNonZero mirrors "a || b || 0": absent and zero both fall through.
func firstNonZero(vs ...*uint64) uint64 {
	for _, v := range vs {
		if v != nil && *v != 0 {
			return *v
		}
	}
	return 0
}

func elapsedMillis(cur, prev time.Time) float64 {
	if cur.IsZero() || prev.IsZero() {
		return 0
	}
	return float64(cur.Sub(prev)) / float64(time.Millisecond)
}
