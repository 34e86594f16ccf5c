package runner

import (
	"regexp"
	"strconv"

	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/errors"
)

// placeholderPattern matches {NAME} substitution slots in templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Z_]+)\}`)

// Declared substitution slot names.
const (
	SlotBranch   = "BRANCH"
	SlotShortSHA = "SHORT_SHA"
	SlotLongSHA  = "LONG_SHA"
	SlotIsCI     = "IS_CI"
)

// ExpandInvocation resolves every placeholder in the invocation's program,
// arguments, and declared outputs against the substitution set. A
// placeholder that names an unknown slot, or a slot whose value is empty,
// fails with an INVALID_CONFIGURATION error: templates must be fully
// covered, never partially expanded.
func ExpandInvocation(
	inv domain.ToolInvocation,
	subs domain.Substitutions,
) (domain.ToolInvocation, error) {
	values := map[string]string{
		SlotBranch:   subs.Branch,
		SlotShortSHA: subs.ShortSHA,
		SlotLongSHA:  subs.LongSHA,
		SlotIsCI:     strconv.FormatBool(subs.IsCI),
	}

	out := domain.ToolInvocation{Name: inv.Name}

	var err error
	if out.Program, err = expand(inv.Name, inv.Program, values); err != nil {
		return domain.ToolInvocation{}, err
	}
	out.Args = make([]string, len(inv.Args))
	for i, arg := range inv.Args {
		if out.Args[i], err = expand(inv.Name, arg, values); err != nil {
			return domain.ToolInvocation{}, err
		}
	}
	out.Outputs = make([]string, len(inv.Outputs))
	for i, p := range inv.Outputs {
		if out.Outputs[i], err = expand(inv.Name, p, values); err != nil {
			return domain.ToolInvocation{}, err
		}
	}
	return out, nil
}

// expand substitutes all placeholders in a single template string.
func expand(invName, tmpl string, values map[string]string) (string, error) {
	var expandErr error
	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		slot := placeholderPattern.FindStringSubmatch(match)[1]
		val, ok := values[slot]
		if !ok {
			expandErr = errors.Newf(errors.CodeInvalidConfig, "runner.ExpandInvocation",
				"invocation %q: unknown substitution slot {%s}", invName, slot)
			return match
		}
		if val == "" {
			expandErr = errors.Newf(errors.CodeInvalidConfig, "runner.ExpandInvocation",
				"invocation %q: no value for substitution slot {%s}", invName, slot)
			return match
		}
		return val
	})
	if expandErr != nil {
		return "", expandErr
	}
	return result, nil
}
