package diagnose

import (
	"slices"
	"strings"

	"github.com/rusenback/erpmon/internal/model"
)

// Level is the log level a line declares or implies.
type Level string

const (
	LevelNone  Level = ""
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// SpanKind tells what a highlighted span contains.
type SpanKind int

const (
	SpanPort SpanKind = iota
	SpanErrorCode
)

// Span is a byte range [Start,End) of an annotated line.
type Span struct {
	Start, End int
	Kind       SpanKind
}

// Annotation describes a single output line for display. Type is empty
// when no rule matches the line on its own.
type Annotation struct {
	Level    Level
	Type     model.DiagnosisType
	Severity model.Severity
	// Spans are ordered by Start and do not overlap.
	Spans []Span
}

// Annotate classifies one line the way Classify would and marks the
// in-band ports and error codes in it. A line without a level tag takes
// its level from the severity of the rule it matches.
func (c *Classifier) Annotate(line string) Annotation {
	var a Annotation

	if m := levelTagPattern.FindStringSubmatch(line); m != nil {
		a.Level = levelOf(m[1])
	}
	for _, r := range c.rules {
		if _, _, ok := r.match(line); ok {
			a.Type, a.Severity = r.typ, r.severity
			break
		}
	}
	if a.Level == LevelNone && a.Type != "" {
		a.Level = levelForSeverity(a.Severity)
	}

	for _, t := range portTokens(line) {
		if c.ports.Contains(t.port) {
			a.Spans = append(a.Spans, Span{Start: t.pos, End: t.end, Kind: SpanPort})
		}
	}
	for _, loc := range errorCodePattern.FindAllStringIndex(line, -1) {
		a.Spans = append(a.Spans, Span{Start: loc[0], End: loc[1], Kind: SpanErrorCode})
	}
	a.Spans = dropOverlaps(a.Spans)
	return a
}

func levelOf(tag string) Level {
	switch strings.ToLower(tag) {
	case "error", "err", "fatal", "critical":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "info":
		return LevelInfo
	default:
		return LevelDebug
	}
}

func levelForSeverity(s model.Severity) Level {
	switch s {
	case model.SeverityCritical:
		return LevelError
	case model.SeverityWarning:
		return LevelWarn
	default:
		return LevelInfo
	}
}

// dropOverlaps sorts spans and keeps the earliest of any overlapping pair.
func dropOverlaps(spans []Span) []Span {
	slices.SortStableFunc(spans, func(a, b Span) int { return a.Start - b.Start })
	out := spans[:0]
	for _, s := range spans {
		if len(out) > 0 && s.Start < out[len(out)-1].End {
			continue
		}
		out = append(out, s)
	}
	return out
}
