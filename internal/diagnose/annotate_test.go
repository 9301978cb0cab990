package diagnose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rusenback/erpmon/internal/model"
)

func spanText(line string, spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = line[s.Start:s.End]
	}
	return out
}

func TestAnnotateLevelTag(t *testing.T) {
	c := NewClassifier(DefaultPortRange)

	line := "2024-05-01 12:00:00 [WARN] port 8080 busy"
	a := c.Annotate(line)
	assert.Equal(t, LevelWarn, a.Level)
	assert.Empty(t, a.Type)
	assert.Equal(t, []string{"8080"}, spanText(line, a.Spans))
	assert.Equal(t, SpanPort, a.Spans[0].Kind)

	assert.Equal(t, LevelError, c.Annotate("[fatal] giving up").Level)
	assert.Equal(t, LevelDebug, c.Annotate("[trace] tick").Level)
}

func TestAnnotateRuleSetsLevelAndType(t *testing.T) {
	c := NewClassifier(DefaultPortRange)

	line := "The port already exists (0x803b0013) - port 8080 is in use"
	a := c.Annotate(line)
	assert.Equal(t, model.PortConflict, a.Type)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.Equal(t, LevelError, a.Level)
	assert.Equal(t, []string{"0x803b0013", "8080"}, spanText(line, a.Spans))
	assert.Equal(t, []SpanKind{SpanErrorCode, SpanPort}, []SpanKind{a.Spans[0].Kind, a.Spans[1].Kind})
}

func TestAnnotatePlainLine(t *testing.T) {
	c := NewClassifier(DefaultPortRange)

	a := c.Annotate("listening on 0.0.0.0:80 since 12:00:00")
	assert.Equal(t, LevelNone, a.Level)
	assert.Empty(t, a.Type)
	assert.Empty(t, a.Spans)
}

func TestAnnotateUsesPortBand(t *testing.T) {
	c := NewClassifier(PortRange{Min: 7000, Max: 7999})

	line := "ports 7049, 8080 and 7045"
	a := c.Annotate(line)
	assert.Equal(t, []string{"7049", "7045"}, spanText(line, a.Spans))
	assert.True(t, strings.HasPrefix(line[a.Spans[1].Start:], "7045"))
}

func TestDropOverlaps(t *testing.T) {
	got := dropOverlaps([]Span{{Start: 5, End: 9}, {Start: 0, End: 6}, {Start: 10, End: 12}})
	assert.Equal(t, []Span{{Start: 0, End: 6}, {Start: 10, End: 12}}, got)
}
