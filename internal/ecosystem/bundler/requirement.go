package bundler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/simplesurance/depupdater/internal/deps"
)

var (
	prereleaseRe       = regexp.MustCompile(`[a-zA-Z]`)
	prereleaseSegRe    = regexp.MustCompile(`\.([a-zA-Z])`)
	requirementPartRe  = regexp.MustCompile(`^\s*(~>|>=|<=|!=|=|>|<)?\s*([0-9][0-9A-Za-z.\-]*)\s*$`)
	requirementPartSep = ","
)

// parseVersion parses a RubyGems version. Rubygems separates prerelease
// segments with a dot ("1.0.0.beta1"), they are converted to the notation
// understood by go-version ("1.0.0-beta1").
func parseVersion(v string) (*version.Version, error) {
	loc := prereleaseSegRe.FindStringIndex(v)
	if loc != nil {
		v = v[:loc[0]] + "-" + v[loc[0]+1:]
	}

	return version.NewVersion(v)
}

func compareVersions(a, b string) (int, error) {
	va, err := parseVersion(a)
	if err != nil {
		return 0, err
	}

	vb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}

	return va.Compare(vb), nil
}

func isPrerelease(v string) bool {
	return prereleaseRe.MatchString(v)
}

type requirementPart struct {
	op      string
	version string
}

func (p *requirementPart) String() string {
	if p.op == "" {
		return p.version
	}

	return p.op + " " + p.version
}

func parseRequirement(req string) ([]*requirementPart, error) {
	var result []*requirementPart

	for _, s := range strings.Split(req, requirementPartSep) {
		if strings.TrimSpace(s) == "" {
			continue
		}

		m := requirementPartRe.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("invalid requirement: %q", req)
		}

		result = append(result, &requirementPart{op: m[1], version: m[2]})
	}

	return result, nil
}

func formatRequirement(parts []*requirementPart) string {
	strs := make([]string, 0, len(parts))
	for _, p := range parts {
		strs = append(strs, p.String())
	}

	return strings.Join(strs, ", ")
}

func satisfies(v, requirement string) (bool, error) {
	if strings.TrimSpace(requirement) == "" {
		return true, nil
	}

	parts, err := parseRequirement(requirement)
	if err != nil {
		return false, err
	}

	ver, err := parseVersion(v)
	if err != nil {
		return false, err
	}

	for _, p := range parts {
		ok, err := satisfiesPart(ver, p)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func satisfiesPart(v *version.Version, p *requirementPart) (bool, error) {
	op := p.op
	if op == "" {
		op = "="
	}

	pv, err := parseVersion(p.version)
	if err != nil {
		return false, err
	}

	cmp := v.Compare(pv)

	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case "~>":
		upper, err := parseVersion(joinSegments(pessimisticUpperBound(p.version)))
		if err != nil {
			return false, err
		}

		return cmp >= 0 && v.Core().LessThan(upper), nil
	default:
		return false, fmt.Errorf("unsupported requirement operator %q", op)
	}
}

// segments returns the numeric release segments of v.
func segments(v string) []int {
	var result []int

	for _, s := range strings.Split(v, ".") {
		n, err := strconv.Atoi(s)
		if err != nil {
			break
		}

		result = append(result, n)
	}

	return result
}

func joinSegments(segs []int) string {
	strs := make([]string, 0, len(segs))
	for _, s := range segs {
		strs = append(strs, strconv.Itoa(s))
	}

	return strings.Join(strs, ".")
}

// withPrecision returns the first n release segments of v, missing
// segments are filled with 0.
func withPrecision(v string, n int) []int {
	segs := segments(v)
	result := make([]int, n)
	copy(result, segs)

	return result
}

// nextBound returns the upper bound with the precision of bound that is
// greater than v, e.g. nextBound("6.1", "6.2.3") = "6.3".
func nextBound(bound, v string) string {
	n := len(segments(bound))
	if n == 0 {
		n = 1
	}

	segs := withPrecision(v, n)
	segs[n-1]++

	return joinSegments(segs)
}

// pessimisticUpperBound returns the exclusive upper bound of the requirement
// "~> v", e.g. "2.3" for "2.2.1" and "3" for "2.2".
func pessimisticUpperBound(v string) []int {
	segs := segments(v)
	if len(segs) == 0 {
		return []int{1}
	}

	if len(segs) > 1 {
		segs = segs[:len(segs)-1]
	}

	segs = append([]int(nil), segs...)
	segs[len(segs)-1]++

	return segs
}

// updateRequirement rewrites the parts of req that do not permit v.
func updateRequirement(req string, v string, strategy deps.RequirementsUpdateStrategy) (string, error) {
	parts, err := parseRequirement(req)
	if err != nil {
		return "", err
	}

	ver, err := parseVersion(v)
	if err != nil {
		return "", err
	}

	var result []*requirementPart

	for _, p := range parts {
		ok, err := satisfiesPart(ver, p)
		if err != nil {
			return "", err
		}

		if ok && strategy != deps.StrategyBumpVersions {
			result = append(result, p)
			continue
		}

		switch p.op {
		case "", "=":
			result = append(result, &requirementPart{op: p.op, version: v})

		case "~>":
			target := joinSegments(withPrecision(v, len(segments(p.version))))
			if strategy == deps.StrategyWidenRanges && !ok {
				result = append(result,
					&requirementPart{op: ">=", version: p.version},
					&requirementPart{op: "<", version: joinSegments(pessimisticUpperBound(target))},
				)
				continue
			}

			result = append(result, &requirementPart{op: "~>", version: target})

		case "<", "<=":
			if ok {
				result = append(result, p)
				continue
			}

			result = append(result, &requirementPart{op: "<", version: nextBound(p.version, v)})

		case ">", ">=":
			if !ok {
				return "", fmt.Errorf("%w: %q excludes %s", deps.ErrRequirementNotUpdatable, p, v)
			}

			result = append(result, &requirementPart{op: p.op, version: v})

		case "!=":
			if !ok {
				return "", fmt.Errorf("%w: %q excludes %s", deps.ErrRequirementNotUpdatable, p, v)
			}

			result = append(result, p)
		}
	}

	return formatRequirement(result), nil
}
