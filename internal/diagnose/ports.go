package diagnose

import (
	"regexp"
	"slices"
	"strconv"
)

// Numbers only count as ports when the text says so. Bare numbers in
// deployment output are mostly timestamps, pids and durations.
var (
	// "port 8080", "ports 7048, 7049 and 8080", "EXPOSE 8080"
	portListPattern = regexp.MustCompile(`(?i)\b(?:ports?|expose|listen(?:ing)?(?:\s+on)?)\b[\s:=#]*(\d{1,5}(?:\s*(?:,|\band\b|\bor\b)\s*\d{1,5})*)\b`)
	// "localhost:8080", "0.0.0.0:8080", "[::]:8080"; not "12:00:00"
	hostPortPattern = regexp.MustCompile(`(?:[A-Za-z\]]|\d\.\d{1,3}):(\d{1,5})\b`)
	// "8080/tcp"
	protoPortPattern = regexp.MustCompile(`(?i)\b(\d{1,5})/(?:tcp|udp)\b`)

	digitsPattern = regexp.MustCompile(`\d{1,5}`)
)

type portToken struct {
	pos, end int
	port     int
}

// portTokens returns every port mentioned in text in order of appearance.
func portTokens(text string) []portToken {
	var tokens []portToken
	add := func(pos int, s string) {
		if p, err := strconv.Atoi(s); err == nil {
			tokens = append(tokens, portToken{pos: pos, end: pos + len(s), port: p})
		}
	}

	for _, m := range portListPattern.FindAllStringSubmatchIndex(text, -1) {
		list := text[m[2]:m[3]]
		for _, d := range digitsPattern.FindAllStringIndex(list, -1) {
			add(m[2]+d[0], list[d[0]:d[1]])
		}
	}
	for _, re := range []*regexp.Regexp{hostPortPattern, protoPortPattern} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			add(m[2], text[m[2]:m[3]])
		}
	}

	slices.SortStableFunc(tokens, func(a, b portToken) int { return a.pos - b.pos })
	return tokens
}

// extractPorts returns the in-band ports of text, first-seen order, no
// duplicates.
func (c *Classifier) extractPorts(text string) []int {
	ports := make([]int, 0)
	seen := make(map[int]struct{})
	for _, t := range portTokens(text) {
		if !c.ports.Contains(t.port) {
			continue
		}
		if _, dup := seen[t.port]; dup {
			continue
		}
		seen[t.port] = struct{}{}
		ports = append(ports, t.port)
	}
	return ports
}
