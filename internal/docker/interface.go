package docker

import (
	"context"
	"errors"

	"github.com/rusenback/erpmon/internal/model"
)

// ErrNoStats is returned when the engine closed the stats stream without
// sending a sample, which happens for containers that just stopped.
var ErrNoStats = errors.New("no stats sample received")

// ErrContainerNotRunning is returned by callers that need live stats from
// a container that is stopped.
var ErrContainerNotRunning = errors.New("container is not running")

// DockerClient interface mahdollistaa mockauksen testeissä
type DockerClient interface {
	ListContainers(ctx context.Context) ([]model.Container, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RestartContainer(ctx context.Context, id string) error
	GetRawStats(ctx context.Context, id string) (model.RawStatsSnapshot, error)
	GetContainerStats(ctx context.Context, id string) (model.NormalizedStats, error)
	StreamContainerStats(id string) (<-chan model.NormalizedStats, <-chan error, func())
	GetContainerLogs(ctx context.Context, id string, tail int) ([]model.LogEntry, error)
	StreamContainerLogs(id string) (<-chan model.LogEntry, <-chan error, func())
	Close() error
}

// Varmista että Client toteuttaa interfacen
var _ DockerClient = (*Client)(nil)
