package stats

import (
	"math"

	"github.com/rusenback/erpmon/internal/model"
)

// sanitize is applied once to every record Normalize returns.
func sanitize(s model.NormalizedStats) model.NormalizedStats {
	s.CPUPercent = clampPercent(s.CPUPercent)
	s.MemoryPercent = clampPercent(s.MemoryPercent)
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	v = finite(v)
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
