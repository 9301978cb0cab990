// internal/model/stats.go
package model

import "time"

// CounterSample is one reading of a container's counters.
// Every counter is optional: nil means the engine did not report it,
// which is normal for the opposite isolation mode or a partial read.
type CounterSample struct {
	Read time.Time

	// CPU
	TotalUsage  *uint64
	PercpuUsage []uint64
	SystemUsage *uint64
	OnlineCPUs  *uint32

	// Memory, shared-kernel (cgroup) accounting
	MemoryUsage  *uint64
	MemoryLimit  *uint64
	Cache        *uint64
	InactiveFile *uint64

	// Memory, isolated (commit) accounting
	CommitBytes            *uint64
	PeakCommitBytes        *uint64
	PrivateWorkingSetBytes *uint64

	NumProcs *uint32
}

// InterfaceCounters holds cumulative byte totals for one network interface.
type InterfaceCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// RawStatsSnapshot is two consecutive samples as returned by the engine.
type RawStatsSnapshot struct {
	Current  CounterSample
	Previous CounterSample

	// Networks keeps the engine's interface order.
	Networks []InterfaceCounters
}

// NormalizedStats sisältää containerin resurssitiedot alustasta riippumatta
type NormalizedStats struct {
	CPUPercent float64 `json:"cpuPercent"`

	MemoryUsageBytes uint64  `json:"memoryUsageBytes"`
	MemoryLimitBytes uint64  `json:"memoryLimitBytes"`
	MemoryPercent    float64 `json:"memoryPercent"`

	NetworkRxBytes uint64 `json:"networkRxBytes"`
	NetworkTxBytes uint64 `json:"networkTxBytes"`

	IsIsolatedContainer bool `json:"isIsolatedContainer"`

	// Warning is set when the record was derived from incomplete counters.
	Warning string `json:"warning,omitempty"`

	// Timestamp for rate calculations
	Timestamp time.Time `json:"timestamp"`
}

// Degraded reports whether the record carries a warning.
func (s NormalizedStats) Degraded() bool {
	return s.Warning != ""
}
