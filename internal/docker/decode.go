package docker

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cast"

	"github.com/rusenback/erpmon/internal/model"
)

// snapshotFromDocument maps the engine's stats document onto a raw
// snapshot. The engine omits keys that do not apply to a container's
// isolation mode, so key presence is kept: a missing or malformed value
// becomes a nil counter instead of a zero.
func snapshotFromDocument(doc map[string]any) model.RawStatsSnapshot {
	cur := sampleFrom(object(doc, "cpu_stats"), timestamp(doc, "read"))
	prev := sampleFrom(object(doc, "precpu_stats"), timestamp(doc, "preread"))

	mem := object(doc, "memory_stats")
	breakdown := object(mem, "stats")
	cur.MemoryUsage = counter(mem, "usage")
	cur.MemoryLimit = counter(mem, "limit")
	cur.Cache = counter(breakdown, "cache")
	cur.InactiveFile = firstCounter(breakdown, "inactive_file", "total_inactive_file")
	cur.CommitBytes = counter(mem, "commitbytes")
	cur.PeakCommitBytes = counter(mem, "commitpeakbytes")
	cur.PrivateWorkingSetBytes = counter(mem, "privateworkingset")
	cur.NumProcs = counter32(doc, "num_procs")

	return model.RawStatsSnapshot{
		Current:  cur,
		Previous: prev,
		Networks: networks(object(doc, "networks")),
	}
}

func sampleFrom(cpu map[string]any, read time.Time) model.CounterSample {
	usage := object(cpu, "cpu_usage")
	return model.CounterSample{
		Read:        read,
		TotalUsage:  counter(usage, "total_usage"),
		PercpuUsage: counterList(usage, "percpu_usage"),
		SystemUsage: counter(cpu, "system_cpu_usage"),
		OnlineCPUs:  counter32(cpu, "online_cpus"),
	}
}

// networks returns interfaces sorted by name so the fallback choice of
// primary interface is stable between polls.
func networks(nets map[string]any) []model.InterfaceCounters {
	if len(nets) == 0 {
		return nil
	}
	out := make([]model.InterfaceCounters, 0, len(nets))
	for _, name := range slices.Sorted(maps.Keys(nets)) {
		n := object(nets, name)
		if n == nil {
			continue
		}
		out = append(out, model.InterfaceCounters{
			Name:    name,
			RxBytes: valueOrZero(counter(n, "rx_bytes")),
			TxBytes: valueOrZero(counter(n, "tx_bytes")),
		})
	}
	return out
}

func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

func toUint64(raw any) (uint64, bool) {
	var (
		v   uint64
		err error
	)
	switch n := raw.(type) {
	case json.Number:
		v, err = cast.ToUint64E(n.String())
	case string:
		v, err = cast.ToUint64E(n)
	case float64:
		v, err = cast.ToUint64E(n)
	default:
		return 0, false
	}
	return v, err == nil
}

func counter(m map[string]any, key string) *uint64 {
	if m == nil {
		return nil
	}
	v, ok := toUint64(m[key])
	if !ok {
		return nil
	}
	return &v
}

func firstCounter(m map[string]any, keys ...string) *uint64 {
	for _, k := range keys {
		if v := counter(m, k); v != nil {
			return v
		}
	}
	return nil
}

func counter32(m map[string]any, key string) *uint32 {
	v := counter(m, key)
	if v == nil || *v > uint64(^uint32(0)) {
		return nil
	}
	n := uint32(*v)
	return &n
}

func counterList(m map[string]any, key string) []uint64 {
	if m == nil {
		return nil
	}
	items, _ := m[key].([]any)
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		if v, ok := toUint64(item); ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// timestamp treats the engine's zero time ("0001-01-01T00:00:00Z", sent
// as preread on a first sample) as absent.
func timestamp(m map[string]any, key string) time.Time {
	s, ok := m[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := cast.ToTimeE(s)
	if err != nil || t.IsZero() {
		return time.Time{}
	}
	return t
}

func valueOrZero(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
