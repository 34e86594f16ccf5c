// Package report extracts structured counts and findings from validation
// tool output. Parsing is pure and deterministic: the same input text
// always yields the same report. A counter whose pattern is absent from the
// output reads as zero - absence is not an error. Whether the tool itself
// ran successfully is the runner's concern, signalled through exit status,
// and is never inferred here.
package report

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/conveyor-ci/conveyor/domain"
)

// Kind selects the counter patterns used to parse a report.
type Kind string

const (
	// KindDRC parses design-rule check output ("Found N violations").
	KindDRC Kind = "drc"

	// KindUnconnected parses connectivity check output
	// ("Found N unconnected items").
	KindUnconnected Kind = "unconnected"

	// KindParity parses schematic parity check output
	// ("Found N schematic parity issues").
	KindParity Kind = "parity"
)

// Counter names extracted by the parsers.
const (
	CounterViolations  = "violations"
	CounterUnconnected = "unconnected"
	CounterParity      = "parity"
)

// counterPatterns maps each kind to the documented extraction pattern for
// its counter. The numeric group is the count.
var counterPatterns = map[Kind]struct {
	counter string
	pattern *regexp.Regexp
}{
	KindDRC: {
		counter: CounterViolations,
		pattern: regexp.MustCompile(`Found (\d+) violations?`),
	},
	KindUnconnected: {
		counter: CounterUnconnected,
		pattern: regexp.MustCompile(`Found (\d+) unconnected (?:items?|pads?)`),
	},
	KindParity: {
		counter: CounterParity,
		pattern: regexp.MustCompile(`Found (\d+) schematic parity issues?`),
	},
}

// findingPattern matches individual finding lines of the form
// "[severity]: description".
var findingPattern = regexp.MustCompile(`^\[(\w+)\]:?\s+(.+)$`)

// Parse extracts the report for the given kind from raw tool output.
// The kind's counter is read from its documented pattern, defaulting to
// zero when the pattern does not appear. Individual findings are collected
// from bracketed severity lines when present.
func Parse(raw string, kind Kind) (*domain.Report, error) {
	spec, ok := counterPatterns[kind]
	if !ok {
		return nil, WrapErrorf(ErrUnknownKind, "parse %q", string(kind))
	}

	rep := &domain.Report{
		Kind:     string(kind),
		Counters: map[string]int{spec.counter: 0},
	}

	if m := spec.pattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// pattern guarantees digits; overflow is the only way here
			return nil, WrapErrorf(ErrParse, "counter %q out of range", spec.counter)
		}
		rep.Counters[spec.counter] = n
	}

	rep.Findings = parseFindings(raw)
	return rep, nil
}

// parseFindings collects bracketed severity lines, attaching subsequent
// indented lines as the finding's items.
func parseFindings(raw string) []domain.Finding {
	var findings []domain.Finding
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if m := findingPattern.FindStringSubmatch(line); m != nil {
			findings = append(findings, domain.Finding{
				Severity:    strings.ToLower(m[1]),
				Description: strings.TrimSpace(m[2]),
			})
			continue
		}
		// indented continuation lines belong to the previous finding
		if len(findings) > 0 && strings.HasPrefix(line, "    ") && strings.TrimSpace(line) != "" {
			last := &findings[len(findings)-1]
			last.Items = append(last.Items, strings.TrimSpace(line))
		}
	}
	return findings
}
