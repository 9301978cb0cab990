package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/docker"
	"github.com/rusenback/erpmon/internal/model"
)

// diagnoseTail is how many log lines are classified on demand.
const diagnoseTail = 500

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchContainers(ctx context.Context, client docker.DockerClient) tea.Cmd {
	return func() tea.Msg {
		list, err := client.ListContainers(ctx)
		for i := range list {
			list[i].DisplayStatus = displayStatus(list[i])
		}
		return containersMsg{containers: list, err: err}
	}
}

func displayStatus(c model.Container) string {
	switch {
	case c.Running():
		return truncate(c.Status, 30)
	case c.Failed():
		return fmt.Sprintf("exited (%d)", c.ExitCode)
	default:
		return c.State
	}
}

// receive waits for the next value or error of a feed.
func receive[T any](values <-chan T, errs <-chan error, wrap func(v T, err error, done bool) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		var zero T
		select {
		case v, ok := <-values:
			if !ok {
				return wrap(zero, nil, true)
			}
			return wrap(v, nil, false)
		case err, ok := <-errs:
			return wrap(zero, err, !ok)
		}
	}
}

func (f statsFeed) next() tea.Cmd {
	return receive(f.samples, f.errs, func(s model.NormalizedStats, err error, done bool) tea.Msg {
		return statsMsg{stats: s, err: err, done: done}
	})
}

func (f logFeed) next() tea.Cmd {
	return receive(f.entries, f.errs, func(e model.LogEntry, err error, done bool) tea.Msg {
		return logsMsg{entry: e, err: err, done: done}
	})
}

// diagnoseContainer classifies the container's recent output
func diagnoseContainer(ctx context.Context, client docker.DockerClient, classifier *diagnose.Classifier, id string) tea.Cmd {
	return func() tea.Msg {
		entries, err := client.GetContainerLogs(ctx, id, diagnoseTail)
		if err != nil {
			return diagnosisMsg{containerID: id, err: err}
		}
		return diagnosisMsg{containerID: id, diagnosis: classifier.Classify(model.Lines(entries))}
	}
}

// containerAction runs a lifecycle call and reports it as "<done>: <name>".
func containerAction(ctx context.Context, c model.Container, done string, call func(context.Context, string) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{message: fmt.Sprintf("%s: %s", done, c.Name), err: call(ctx, c.ID)}
	}
}
