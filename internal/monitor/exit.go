package monitor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rusenback/erpmon/internal/model"
)

// DefaultExitTail is how many log lines are read from a container that
// exited with an error.
const DefaultExitTail = 500

// LogSource reads the tail of a container's output.
type LogSource interface {
	GetContainerLogs(ctx context.Context, id string, tail int) ([]model.LogEntry, error)
}

// ExitHandler is told about containers that stopped with a non-zero exit
// code after having been seen running.
type ExitHandler interface {
	ContainerExited(ctx context.Context, c model.Container) error
}

// ExitDiagnoser classifies the last output of a failed container the same
// way a watched deployment is classified.
type ExitDiagnoser struct {
	logs    LogSource
	watcher *DeployWatcher
	tail    int
	logger  *zap.Logger
}

// NewExitDiagnoser creates a diagnoser that reads tail lines per failure.
func NewExitDiagnoser(logs LogSource, watcher *DeployWatcher, tail int, logger *zap.Logger) *ExitDiagnoser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tail <= 0 {
		tail = DefaultExitTail
	}
	return &ExitDiagnoser{logs: logs, watcher: watcher, tail: tail, logger: logger}
}

func (d *ExitDiagnoser) ContainerExited(ctx context.Context, c model.Container) error {
	entries, err := d.logs.GetContainerLogs(ctx, c.ID, d.tail)
	if err != nil {
		return fmt.Errorf("read logs of %s: %w", c.Name, err)
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Message)
		b.WriteByte('\n')
	}

	res, err := d.watcher.Watch(ctx, strings.NewReader(b.String()), ExitCode(c.ExitCode))
	if err != nil {
		return fmt.Errorf("diagnose %s: %w", c.Name, err)
	}
	if res.Diagnosis != nil {
		d.logger.Warn("container exited with a network failure",
			zap.String("container", c.Name),
			zap.Int("exit_code", c.ExitCode),
			zap.String("type", string(res.Diagnosis.Type)))
	}
	return nil
}
