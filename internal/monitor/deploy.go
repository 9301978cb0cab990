package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/model"
)

// DefaultMaxLines bounds how much output is kept for classification.
const DefaultMaxLines = 2000

// DiagnosisObserver is notified about every diagnosis produced.
type DiagnosisObserver interface {
	ObserveDiagnosis(d *model.ErrorDiagnosis)
}

// DeployResult is the outcome of one watched deployment.
type DeployResult struct {
	ExitCode  int
	Lines     []string
	Diagnosis *model.ErrorDiagnosis
}

// Failed reports whether the deployment exited non-zero.
func (r DeployResult) Failed() bool {
	return r.ExitCode != 0
}

// DeployWatcher accumulates the output of a deployment and classifies it
// when the deployment fails. Starting the process is the caller's job.
type DeployWatcher struct {
	classifier *diagnose.Classifier
	observer   DiagnosisObserver
	logger     *zap.Logger
	maxLines   int

	// OnLine, when set, is called for every output line as it arrives.
	OnLine func(line string)
}

// NewDeployWatcher creates a watcher. observer may be nil.
func NewDeployWatcher(classifier *diagnose.Classifier, observer DiagnosisObserver, logger *zap.Logger, maxLines int) *DeployWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &DeployWatcher{
		classifier: classifier,
		observer:   observer,
		logger:     logger,
		maxLines:   maxLines,
	}
}

// Watch reads r until EOF, then calls wait for the exit status. Output is
// only classified when the exit status is non-zero. When more than
// maxLines lines arrive, the oldest are dropped.
func (w *DeployWatcher) Watch(ctx context.Context, r io.Reader, wait func() (int, error)) (DeployResult, error) {
	lines := make([]string, 0, 64)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return DeployResult{}, err
		}
		line := scanner.Text()
		if w.OnLine != nil {
			w.OnLine(line)
		}
		lines = append(lines, line)
		if len(lines) > w.maxLines {
			lines = lines[len(lines)-w.maxLines:]
		}
	}
	if err := scanner.Err(); err != nil {
		return DeployResult{}, fmt.Errorf("read deployment output: %w", err)
	}

	exitCode, err := wait()
	if err != nil {
		return DeployResult{}, fmt.Errorf("wait for deployment: %w", err)
	}

	result := DeployResult{ExitCode: exitCode, Lines: lines}
	if !result.Failed() {
		return result, nil
	}

	result.Diagnosis = w.classifier.Classify(lines)
	if result.Diagnosis == nil {
		w.logger.Info("deployment failed without a known network cause",
			zap.Int("exit_code", exitCode), zap.Int("lines", len(lines)))
		return result, nil
	}

	w.logger.Warn("deployment failed",
		zap.Int("exit_code", exitCode),
		zap.String("type", string(result.Diagnosis.Type)),
		zap.String("severity", string(result.Diagnosis.Severity)),
		zap.String("error_code", result.Diagnosis.ErrorCode),
		zap.Ints("ports", result.Diagnosis.AffectedPorts))
	if w.observer != nil {
		w.observer.ObserveDiagnosis(result.Diagnosis)
	}
	return result, nil
}

// ExitCode returns a wait func for an already known exit status.
func ExitCode(code int) func() (int, error) {
	return func() (int, error) { return code, nil }
}
