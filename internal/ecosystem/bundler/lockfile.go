package bundler

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	lockSpecRe       = regexp.MustCompile(`^    ([^\s(]+) \(([^)]+)\)$`)
	lockNestedRe     = regexp.MustCompile(`^      ([^\s(]+)(?: \(([^)]+)\))?$`)
	lockDependencyRe = regexp.MustCompile(`^  ([^\s(!]+)(?: \(([^)]+)\))?(!)?$`)
)

type lockedRequirement struct {
	Name        string
	Requirement string
}

type lockedSpec struct {
	Name    string
	Version string
	// Source is the lockfile section of the spec: "GEM", "GIT" or "PATH"
	Source       string
	Dependencies []*lockedRequirement
}

type lockfile struct {
	Specs []*lockedSpec
	// Dependencies are the top-level requirements from the DEPENDENCIES
	// section.
	Dependencies map[string]string

	specs map[string]*lockedSpec
}

func (l *lockfile) Spec(name string) *lockedSpec {
	if l == nil {
		return nil
	}

	return l.specs[name]
}

// splitPlatform returns the version without the platform suffix of a
// platform specific gem, e.g. "1.15.4" for "1.15.4-x86_64-linux".
func splitPlatform(v string) string {
	if i := strings.IndexByte(v, '-'); i > 0 {
		return v[:i]
	}

	return v
}

func parseLockfile(content string) (*lockfile, error) {
	result := lockfile{
		Dependencies: map[string]string{},
		specs:        map[string]*lockedSpec{},
	}

	var section string
	var current *lockedSpec

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")

		if line == "" {
			current = nil
			continue
		}

		if !strings.HasPrefix(line, " ") {
			section = line
			current = nil
			continue
		}

		switch section {
		case "GEM", "GIT", "PATH":
			if m := lockSpecRe.FindStringSubmatch(line); m != nil {
				if existing := result.specs[m[1]]; existing != nil {
					current = existing
					continue
				}

				current = &lockedSpec{
					Name:    m[1],
					Version: splitPlatform(m[2]),
					Source:  section,
				}
				result.Specs = append(result.Specs, current)
				result.specs[current.Name] = current

				continue
			}

			if m := lockNestedRe.FindStringSubmatch(line); m != nil && current != nil {
				if !current.hasDependency(m[1]) {
					current.Dependencies = append(current.Dependencies, &lockedRequirement{Name: m[1], Requirement: m[2]})
				}
			}

		case "DEPENDENCIES":
			m := lockDependencyRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("unparseable line in DEPENDENCIES section of Gemfile.lock: %q", line)
			}

			result.Dependencies[m[1]] = m[2]
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading Gemfile.lock failed: %w", err)
	}

	return &result, nil
}

func (s *lockedSpec) hasDependency(name string) bool {
	for _, d := range s.Dependencies {
		if d.Name == name {
			return true
		}
	}

	return false
}

// lockfileUpdate describes the changes to apply to a Gemfile.lock for one gem.
type lockfileUpdate struct {
	Name            string
	PreviousVersion string
	Version         string
	// Requirement is the new top-level requirement, nil if unchanged.
	Requirement *string
	// Dependencies replace the nested requirements of the spec, nil if
	// unchanged.
	Dependencies []*lockedRequirement
}

// updateLockfile applies the updates to the lockfile content. Lines that are
// not affected are preserved as they are.
func updateLockfile(content string, updates []*lockfileUpdate) (string, error) {
	byName := make(map[string]*lockfileUpdate, len(updates))
	for _, u := range updates {
		byName[u.Name] = u
	}

	lines := strings.SplitAfter(content, "\n")
	out := make([]string, 0, len(lines))
	applied := map[string]bool{}

	var section string
	var skipNestedOf *lockfileUpdate

	for _, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]

		if body != "" && !strings.HasPrefix(body, " ") {
			section = body
		}

		if skipNestedOf != nil {
			if lockNestedRe.MatchString(body) {
				continue
			}

			skipNestedOf = nil
		}

		switch section {
		case "GEM", "GIT", "PATH":
			m := lockSpecRe.FindStringSubmatch(body)
			if m == nil {
				break
			}

			u := byName[m[1]]
			if u == nil || splitPlatform(m[2]) != u.PreviousVersion {
				break
			}

			newVersion := u.Version + strings.TrimPrefix(m[2], u.PreviousVersion)
			out = append(out, fmt.Sprintf("    %s (%s)%s", u.Name, newVersion, eol))
			applied[u.Name] = true

			if u.Dependencies != nil {
				for _, d := range u.Dependencies {
					out = append(out, formatNested(d)+"\n")
				}

				skipNestedOf = u
			}

			continue

		case "DEPENDENCIES":
			m := lockDependencyRe.FindStringSubmatch(body)
			if m == nil {
				break
			}

			u := byName[m[1]]
			if u == nil || u.Requirement == nil {
				break
			}

			if *u.Requirement == "" {
				out = append(out, fmt.Sprintf("  %s%s%s", u.Name, m[3], eol))
			} else {
				out = append(out, fmt.Sprintf("  %s (%s)%s%s", u.Name, *u.Requirement, m[3], eol))
			}

			continue
		}

		out = append(out, line)
	}

	for _, u := range updates {
		if !applied[u.Name] {
			return "", fmt.Errorf("gem %s (%s) not found in Gemfile.lock", u.Name, u.PreviousVersion)
		}
	}

	return strings.Join(out, ""), nil
}

func formatNested(d *lockedRequirement) string {
	if d.Requirement == "" || d.Requirement == ">= 0" {
		return "      " + d.Name
	}

	return fmt.Sprintf("      %s (%s)", d.Name, d.Requirement)
}

func sortRequirements(reqs []*lockedRequirement) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].Name < reqs[j].Name
	})
}
