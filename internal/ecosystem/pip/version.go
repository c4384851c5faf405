package pip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/simplesurance/depupdater/internal/deps"
)

var specifierRe = regexp.MustCompile(`^(===|==|!=|~=|>=|<=|>|<)(.+)$`)

func compareVersions(a, b string) (int, error) {
	va, err := pep440.Parse(a)
	if err != nil {
		return 0, err
	}

	vb, err := pep440.Parse(b)
	if err != nil {
		return 0, err
	}

	return va.Compare(vb), nil
}

func isPrerelease(v string) bool {
	ver, err := pep440.Parse(v)
	if err != nil {
		return false
	}

	return ver.IsPreRelease()
}

func satisfies(v, specifiers string) (bool, error) {
	if strings.TrimSpace(specifiers) == "" {
		return true, nil
	}

	ver, err := pep440.Parse(v)
	if err != nil {
		return false, err
	}

	// prereleases are filtered by the update checker, the specifiers only
	// have to decide if the version is in range
	ss, err := pep440.NewSpecifiers(specifiers, pep440.WithPreRelease(true))
	if err != nil {
		return false, fmt.Errorf("invalid specifiers %q: %w", specifiers, err)
	}

	return ss.Check(ver), nil
}

type specifier struct {
	op      string
	version string
}

func (s *specifier) String() string {
	return s.op + s.version
}

func parseSpecifiers(in string) ([]*specifier, error) {
	var result []*specifier

	for _, s := range strings.Split(in, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		m := specifierRe.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("invalid specifier: %q", s)
		}

		result = append(result, &specifier{op: m[1], version: strings.TrimSpace(m[2])})
	}

	return result, nil
}

func formatSpecifierList(specs []*specifier) string {
	strs := make([]string, 0, len(specs))
	for _, s := range specs {
		strs = append(strs, s.String())
	}

	return strings.Join(strs, ",")
}

// releaseSegments returns the numeric release segments of v, the epoch and
// pre-, post- and dev-release parts are ignored.
func releaseSegments(v string) []int {
	if idx := strings.Index(v, "!"); idx != -1 {
		v = v[idx+1:]
	}

	var result []int

	for _, s := range strings.Split(v, ".") {
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}

		if end == 0 {
			break
		}

		n, _ := strconv.Atoi(s[:end])
		result = append(result, n)

		if end != len(s) {
			break
		}
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

func withPrecision(v string, n int) []int {
	result := make([]int, n)
	copy(result, releaseSegments(v))

	return result
}

// nextBound returns the upper bound with the precision of bound that is
// greater than v, e.g. nextBound("2.0", "2.3.1") = "2.4".
func nextBound(bound, v string) string {
	n := len(releaseSegments(bound))
	if n == 0 {
		n = 1
	}

	segs := withPrecision(v, n)
	segs[n-1]++

	return joinSegments(segs)
}

// updateSpecifiers rewrites the specifiers of in that exclude v.
func updateSpecifiers(in, v string, strategy deps.RequirementsUpdateStrategy) (string, error) {
	specs, err := parseSpecifiers(in)
	if err != nil {
		return "", err
	}

	var result []*specifier

	for _, s := range specs {
		ok, err := satisfies(v, s.String())
		if err != nil {
			return "", err
		}

		if ok && strategy != deps.StrategyBumpVersions {
			result = append(result, s)
			continue
		}

		switch s.op {
		case "==", "===":
			if strings.HasSuffix(s.version, ".*") {
				prefix := strings.TrimSuffix(s.version, ".*")
				result = append(result, &specifier{
					op:      s.op,
					version: joinSegments(withPrecision(v, len(releaseSegments(prefix)))) + ".*",
				})
				continue
			}

			result = append(result, &specifier{op: s.op, version: v})

		case "~=":
			n := len(releaseSegments(s.version))
			if n < 2 {
				n = 2
			}

			if strategy == deps.StrategyWidenRanges && !ok {
				result = append(result,
					&specifier{op: ">=", version: s.version},
					&specifier{op: "<", version: nextBound(joinSegments(make([]int, n-1)), v)},
				)
				continue
			}

			result = append(result, &specifier{op: "~=", version: joinSegments(withPrecision(v, n))})

		case "<", "<=":
			if ok {
				result = append(result, s)
				continue
			}

			result = append(result, &specifier{op: "<", version: nextBound(s.version, v)})

		case ">", ">=":
			if !ok {
				return "", fmt.Errorf("%w: %q excludes %s", deps.ErrRequirementNotUpdatable, s, v)
			}

			result = append(result, &specifier{op: s.op, version: v})

		case "!=":
			if !ok {
				return "", fmt.Errorf("%w: %q excludes %s", deps.ErrRequirementNotUpdatable, s, v)
			}

			result = append(result, s)
		}
	}

	return formatSpecifierList(result), nil
}
