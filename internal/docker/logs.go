package docker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"golang.org/x/sync/errgroup"

	"github.com/rusenback/erpmon/internal/model"
)

const (
	streamStdout = "stdout"
	streamStderr = "stderr"

	// streamBacklog is how many old lines a followed stream starts with.
	streamBacklog = 50
)

// GetContainerLogs returns the last tail lines of container output, oldest first.
func (c *Client) GetContainerLogs(ctx context.Context, id string, tail int) ([]model.LogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var entries []model.LogEntry
	err := c.readLogs(ctx, id, logOptions(tail, false), func(e model.LogEntry) bool {
		entries = append(entries, e)
		return true
	})
	if err != nil {
		return nil, err
	}

	// stdout and stderr are read concurrently
	slices.SortStableFunc(entries, func(a, b model.LogEntry) int { return a.Timestamp.Compare(b.Timestamp) })
	return entries, nil
}

// StreamContainerLogs follows container output until the returned func is called.
func (c *Client) StreamContainerLogs(id string) (<-chan model.LogEntry, <-chan error, func()) {
	out := make(chan model.LogEntry)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(c.ctx)

	go func() {
		defer close(out)
		defer close(errs)

		err := c.readLogs(ctx, id, logOptions(streamBacklog, true), func(e model.LogEntry) bool {
			select {
			case out <- e:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return out, errs, cancel
}

func logOptions(tail int, follow bool) container.LogsOptions {
	return container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Follow:     follow,
		Tail:       strconv.Itoa(tail),
	}
}

// readLogs passes every line to emit until emit returns false or the
// output ends. Containers without a TTY send multiplexed frames.
func (c *Client) readLogs(ctx context.Context, id string, opts container.LogsOptions, emit func(model.LogEntry) bool) error {
	info, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return fmt.Errorf("inspect container %s: %w", id, err)
	}

	body, err := c.cli.ContainerLogs(ctx, id, opts)
	if err != nil {
		return fmt.Errorf("container logs %s: %w", id, err)
	}
	defer body.Close()

	if info.Config != nil && info.Config.Tty {
		return scanLog(body, streamStdout, emit)
	}
	return demuxLogs(body, emit)
}

// demuxLogs splits multiplexed output with stdcopy and scans both streams.
// emit is only ever called from the calling goroutine.
func demuxLogs(r io.Reader, emit func(model.LogEntry) bool) error {
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	entries := make(chan model.LogEntry)
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		_, err := stdcopy.StdCopy(stdoutW, stderrW, r)
		stdoutW.CloseWithError(err)
		stderrW.CloseWithError(err)
		return err
	})

	var scanners sync.WaitGroup
	for stream, pr := range map[string]*io.PipeReader{streamStdout: stdoutR, streamStderr: stderrR} {
		scanners.Add(1)
		g.Go(func() error {
			defer scanners.Done()
			return scanLog(pr, stream, func(e model.LogEntry) bool {
				select {
				case entries <- e:
					return true
				case <-done:
					return false
				}
			})
		})
	}
	go func() {
		scanners.Wait()
		close(entries)
	}()

	for e := range entries {
		if emit(e) {
			continue
		}
		close(done)
		stdoutR.Close()
		stderrR.Close()
		for range entries {
		}
		_ = g.Wait()
		return nil
	}

	if err := g.Wait(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

// scanLog parses r line by line as one stream.
func scanLog(r io.Reader, stream string, emit func(model.LogEntry) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		entry, ok := parseLogLine(scanner.Text(), stream)
		if !ok {
			continue
		}
		if !emit(entry) {
			return nil
		}
	}
	return scanner.Err()
}

// parseLogLine splits the RFC3339 timestamp the engine prefixes when
// timestamps are requested. Blank lines are dropped.
func parseLogLine(line, stream string) (model.LogEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.LogEntry{}, false
	}

	entry := model.LogEntry{Timestamp: time.Now(), Message: line, Stream: stream}

	head, rest, _ := strings.Cut(line, " ")
	if ts, err := time.Parse(time.RFC3339Nano, head); err == nil {
		entry.Timestamp = ts
		entry.Message = strings.TrimSpace(rest)
		if entry.Message == "" {
			return model.LogEntry{}, false
		}
	}
	return entry, true
}
