package model

import "time"

// Container is one engine container as listed, running or not.
type Container struct {
	ID      string
	Name    string
	Image   string
	Status  string
	State   string
	Created time.Time
	Ports   []Port

	// ExitCode is the last exit status of an exited container, -1 otherwise.
	ExitCode int

	DisplayStatus string
}

// Running reports whether the engine considers the container running.
func (c Container) Running() bool {
	return c.State == "running"
}

// Failed reports whether the container has exited with a non-zero status.
func (c Container) Failed() bool {
	return c.State == "exited" && c.ExitCode > 0
}

// Port is a published container port.
type Port struct {
	Private int
	Public  int
	Type    string
}
