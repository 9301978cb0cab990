package docker

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/rusenback/erpmon/internal/model"
)

// stopGrace is how long a container gets to stop before it is killed.
const stopGrace = 10

// exitedStatus matches the engine's "Exited (137) 5 minutes ago" status.
var exitedStatus = regexp.MustCompile(`^Exited \((-?\d+)\)`)

// ListContainers returns every container, stopped ones included.
func (c *Client) ListContainers(ctx context.Context) ([]model.Container, error) {
	list, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, err
	}

	result := make([]model.Container, len(list))
	for i, cont := range list {
		result[i] = toContainer(cont)
	}
	return result, nil
}

func toContainer(cont types.Container) model.Container {
	c := model.Container{
		ID:       shortID(cont.ID),
		Name:     cont.ID,
		Image:    cont.Image,
		Status:   cont.Status,
		State:    cont.State,
		Created:  time.Unix(cont.Created, 0),
		Ports:    make([]model.Port, 0, len(cont.Ports)),
		ExitCode: exitCode(cont.Status),
	}
	if len(cont.Names) > 0 {
		c.Name = strings.TrimPrefix(cont.Names[0], "/")
	}
	for _, p := range cont.Ports {
		c.Ports = append(c.Ports, model.Port{Private: int(p.PrivatePort), Public: int(p.PublicPort), Type: p.Type})
	}
	return c
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func exitCode(status string) int {
	m := exitedStatus.FindStringSubmatch(status)
	if m == nil {
		return -1
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return code
}

// StartContainer käynnistää containerin
func (c *Client) StartContainer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.cli.ContainerStart(ctx, id, container.StartOptions{})
}

// StopContainer pysäyttää containerin
func (c *Client) StopContainer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+stopGrace*time.Second)
	defer cancel()
	grace := stopGrace
	return c.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &grace})
}

// RestartContainer uudelleenkäynnistää containerin
func (c *Client) RestartContainer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+stopGrace*time.Second)
	defer cancel()
	grace := stopGrace
	return c.cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &grace})
}
