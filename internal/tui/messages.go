package tui

import (
	"time"

	"github.com/rusenback/erpmon/internal/model"
)

type tickMsg time.Time

type containersMsg struct {
	containers []model.Container
	err        error
}

type actionMsg struct {
	message string
	err     error
}

// statsMsg and logsMsg carry one value of a feed. done is set once the
// feed's channels are closed.
type statsMsg struct {
	stats model.NormalizedStats
	err   error
	done  bool
}

type logsMsg struct {
	entry model.LogEntry
	err   error
	done  bool
}

type diagnosisMsg struct {
	containerID string
	diagnosis   *model.ErrorDiagnosis
	err         error
}
