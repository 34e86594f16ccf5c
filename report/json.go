package report

import (
	"encoding/json"

	"github.com/conveyor-ci/conveyor/domain"
)

// jsonReport is the wire shape of a structured tool report. Tools that can
// emit JSON are preferred over text pattern extraction. Unknown fields are
// ignored; real checkers carry plenty of metadata this parser has no use
// for.
type jsonReport struct {
	Violations  []jsonViolation `json:"violations"`
	Unconnected []jsonViolation `json:"unconnected_items"`
	Schematic   []jsonViolation `json:"schematic_parity"`
}

type jsonViolation struct {
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Items       []string `json:"items,omitempty"`
}

// ParseJSON extracts the report from a structured JSON document. Unlike
// the text path, malformed input is a parse failure, never silently
// defaulted: when JSON was requested, anything that does not decode is an
// ErrParse.
func ParseJSON(raw []byte, kind Kind) (*domain.Report, error) {
	if _, ok := counterPatterns[kind]; !ok {
		return nil, WrapErrorf(ErrUnknownKind, "parse json %q", string(kind))
	}

	var doc jsonReport
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, WrapErrorf(ErrParse, "invalid json report: %v", err)
	}

	rep := &domain.Report{
		Kind: string(kind),
		Counters: map[string]int{
			CounterViolations:  len(doc.Violations),
			CounterUnconnected: len(doc.Unconnected),
			CounterParity:      len(doc.Schematic),
		},
	}

	for _, group := range [][]jsonViolation{doc.Violations, doc.Unconnected, doc.Schematic} {
		for _, v := range group {
			rep.Findings = append(rep.Findings, domain.Finding{
				Severity:    v.Severity,
				Description: v.Description,
				Items:       v.Items,
			})
		}
	}
	return rep, nil
}
