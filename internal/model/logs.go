// internal/model/logs.go
package model

import "time"

// LogEntry represents a single log line from a container
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Stream    string // "stdout" or "stderr"
}

// Lines returns the raw messages of entries in order.
func Lines(entries []LogEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Message)
	}
	return lines
}
