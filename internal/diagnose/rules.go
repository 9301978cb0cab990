package diagnose

import (
	"regexp"
	"strings"

	"github.com/rusenback/erpmon/internal/model"
)

// matcher reports the byte span of the first match in text.
type matcher func(text string) (start, end int, ok bool)

type rule struct {
	typ      model.DiagnosisType
	severity model.Severity
	match    matcher
}

// defaultRules is evaluated top to bottom and the first match wins, so the
// most specific failures come first.
var defaultRules = []rule{
	{
		typ:      model.PortConflict,
		severity: model.SeverityCritical,
		match:    regexpMatcher(`(?i)port\s+already\s+exists(?:\s*\(\s*0x[0-9a-f]{8}\s*\))?`),
	},
	{
		typ:      model.EndpointCreationFailure,
		severity: model.SeverityCritical,
		match:    regexpMatcher(`(?i)failed\s+to\s+create\s+(?:the\s+)?(?:network\s+)?endpoint`),
	},
	{
		typ:      model.NATMappingConflict,
		severity: model.SeverityCritical,
		match:    regexpMatcher(`(?i)nat\s+static\s+mapping\s+(?:already\s+exists|exists)`),
	},
	{
		typ:      model.ServiceFailure,
		severity: model.SeverityCritical,
		match: regexpMatcher(`(?i)(?:(?:hns|(?:host\s+)?network(?:ing)?\s+service)\s+(?:service\s+)?(?:is\s+)?not\s+running` +
			`|cannot\s+connect\s+to\s+the\s+docker\s+daemon` +
			`|docker\s+daemon\s+is\s+not\s+running` +
			`|is\s+the\s+docker\s+daemon\s+running` +
			`|docker_engine:\s+the\s+system\s+cannot\s+find\s+the\s+file\s+specified)`),
	},
	{
		typ:      model.UnknownNetworkFailure,
		severity: model.SeverityWarning,
		match:    lineMatcher(failureWordPattern, networkWordPattern),
	},
}

var (
	failureWordPattern = regexp.MustCompile(`(?i)\b(?:error|errors|fail|failed|failure|cannot|unable|refused|timed?\s*out)\b`)
	networkWordPattern = regexp.MustCompile(`(?i)\b(?:network|networking|port|ports|endpoint|hns|nat|socket|connection|dns|vswitch|firewall)\b`)
)

func regexpMatcher(expr string) matcher {
	re := regexp.MustCompile(expr)
	return func(text string) (int, int, bool) {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	}
}

// lineMatcher matches the first single line on which every pattern occurs.
func lineMatcher(patterns ...*regexp.Regexp) matcher {
	return func(text string) (int, int, bool) {
		offset := 0
		for _, line := range strings.Split(text, "\n") {
			if matchesAll(line, patterns) {
				return offset, offset + len(line), true
			}
			offset += len(line) + 1
		}
		return 0, 0, false
	}
}

func matchesAll(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if !p.MatchString(line) {
			return false
		}
	}
	return true
}

// RuleOrder lists diagnosis types in evaluation priority.
func RuleOrder() []model.DiagnosisType {
	order := make([]model.DiagnosisType, 0, len(defaultRules))
	for _, r := range defaultRules {
		order = append(order, r.typ)
	}
	return order
}
