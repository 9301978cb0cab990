// Package diagnose classifies captured process output into host-networking
// failure diagnoses with ranked remediation suggestions.
package diagnose

import (
	"regexp"
	"strings"

	"github.com/rusenback/erpmon/internal/model"
)

// PortRange is the inclusive band of ports reported as affected.
type PortRange struct {
	Min int
	Max int
}

// DefaultPortRange covers the non-privileged ports the ERP containers publish.
var DefaultPortRange = PortRange{Min: 1024, Max: 65535}

// Contains reports whether p lies inside the band.
func (r PortRange) Contains(p int) bool {
	return p >= r.Min && p <= r.Max
}

var (
	errorCodePattern = regexp.MustCompile(`(?i)\b0x[0-9a-f]{8}\b`)
	// A level tag may follow the timestamp the logger puts first.
	levelTagPattern = regexp.MustCompile(`(?i)^\s*(?:\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?\s+)?` +
		`\[(error|err|warn|warning|info|debug|trace|fatal|critical)\]\s*`)
)

// Classifier matches output against the ordered rule table. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	ports PortRange
	rules []rule
}

// NewClassifier returns a classifier reporting ports inside r.
func NewClassifier(r PortRange) *Classifier {
	return &Classifier{ports: r, rules: defaultRules}
}

// Classify returns the diagnosis for the first matching rule, or nil when
// nothing in lines looks like a known network failure.
func (c *Classifier) Classify(lines []string) *model.ErrorDiagnosis {
	if len(lines) == 0 {
		return nil
	}
	text := strings.Join(lines, "\n")

	for _, r := range c.rules {
		start, end, ok := r.match(text)
		if !ok {
			continue
		}
		region := coveringLines(text, start, end)
		return &model.ErrorDiagnosis{
			Type:          r.typ,
			Severity:      r.severity,
			ErrorCode:     extractErrorCode(region),
			AffectedPorts: c.extractPorts(text),
			Message:       extractMessage(region),
			Suggestions:   suggestionsFor(r.typ),
		}
	}
	return nil
}

// Classify uses a classifier with DefaultPortRange.
func Classify(lines []string) *model.ErrorDiagnosis {
	return defaultClassifier.Classify(lines)
}

var defaultClassifier = NewClassifier(DefaultPortRange)

// coveringLines expands [start,end) to whole lines.
func coveringLines(text string, start, end int) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		lineEnd = end + i
	}
	return text[lineStart:lineEnd]
}

func extractErrorCode(region string) string {
	return strings.ToLower(errorCodePattern.FindString(region))
}

func extractMessage(region string) string {
	parts := strings.Split(region, "\n")
	msgs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(levelTagPattern.ReplaceAllString(p, ""))
		if p != "" {
			msgs = append(msgs, p)
		}
	}
	return strings.Join(msgs, " ")
}
