package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rusenback/erpmon/internal/model"
	"github.com/rusenback/erpmon/internal/stats"
)

// GetRawStats reads a single stats document without normalizing it.
func (c *Client) GetRawStats(ctx context.Context, id string) (model.RawStatsSnapshot, error) {
	resp, err := c.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return model.RawStatsSnapshot{}, fmt.Errorf("container stats %s: %w", id, err)
	}
	defer resp.Body.Close()

	raw, err := decodeRawStats(json.NewDecoder(resp.Body))
	if err != nil {
		return model.RawStatsSnapshot{}, fmt.Errorf("decode stats %s: %w", id, err)
	}
	return raw, nil
}

// GetContainerStats reads one sample and normalizes it. The read is bounded
// by the configured stats timeout as well as by ctx.
func (c *Client) GetContainerStats(ctx context.Context, id string) (model.NormalizedStats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statsTimeout)
	defer cancel()

	raw, err := c.GetRawStats(ctx, id)
	if err != nil {
		return model.NormalizedStats{}, err
	}
	return stats.Normalize(raw, c.platform), nil
}

// StreamContainerStats follows the engine's stats stream, one normalized
// sample per document, until the returned func is called. The error channel
// receives at most one error; a stream that just ends is not an error.
func (c *Client) StreamContainerStats(id string) (<-chan model.NormalizedStats, <-chan error, func()) {
	out := make(chan model.NormalizedStats)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(c.ctx)

	go func() {
		defer close(out)
		defer close(errs)

		if err := c.followStats(ctx, id, out); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return out, errs, cancel
}

func (c *Client) followStats(ctx context.Context, id string, out chan<- model.NormalizedStats) error {
	resp, err := c.cli.ContainerStats(ctx, id, true)
	if err != nil {
		return fmt.Errorf("container stats %s: %w", id, err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		raw, err := decodeRawStats(dec)
		if errors.Is(err, ErrNoStats) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode stats %s: %w", id, err)
		}

		s := stats.Normalize(raw, c.platform)
		if s.Degraded() {
			c.logger.Debug("degraded stats sample", zap.String("container", id), zap.String("warning", s.Warning))
		}

		select {
		case out <- s:
		case <-ctx.Done():
			return nil
		}
	}
}

// decodeRawStats reads the next stats document from dec. Numbers are kept
// as json.Number so absent and malformed counters can be told apart from 0.
func decodeRawStats(dec *json.Decoder) (model.RawStatsSnapshot, error) {
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return model.RawStatsSnapshot{}, ErrNoStats
		}
		return model.RawStatsSnapshot{}, err
	}
	return snapshotFromDocument(doc), nil
}
