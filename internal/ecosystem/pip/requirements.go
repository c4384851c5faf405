package pip

import (
	"regexp"
	"strings"
)

const requirementsFileName = "requirements.txt"

// requirementLineRe matches a requirement line without its comment.
// Groups: 1 name, 2 extras, 3 specifiers, 4 environment marker.
var requirementLineRe = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*([^;]*?)\s*(;.*)?$`)

var pinnedRe = regexp.MustCompile(`^===?\s*([^\s,*]+)$`)

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// requirementLine is a requirement declared in a requirements file.
type requirementLine struct {
	Name       string
	Extras     string
	Specifiers string
	Marker     string
	// LineNo is the 0 based index of the line in the file.
	LineNo int
}

// Pinned returns the version of an exact "==" specifier, an empty string if
// the requirement is not pinned.
func (r *requirementLine) Pinned() string {
	m := pinnedRe.FindStringSubmatch(r.Specifiers)
	if m == nil {
		return ""
	}

	return m[1]
}

// normalizeName returns the normalized form of a distribution name as
// defined by PEP 503.
func normalizeName(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}

func stripComment(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return ""
	}

	if idx := strings.Index(line, " #"); idx != -1 {
		return line[:idx]
	}

	if idx := strings.Index(line, "\t#"); idx != -1 {
		return line[:idx]
	}

	return line
}

// isRequirement returns false for lines that do not declare a registry
// requirement: options (-r, -e, --index-url, ...), URLs and local paths.
func isRequirement(line string) bool {
	l := strings.TrimSpace(line)

	switch {
	case l == "":
		return false
	case strings.HasPrefix(l, "-"):
		return false
	case strings.Contains(l, "://"), strings.Contains(l, " @ "):
		return false
	case strings.HasPrefix(l, "."), strings.HasPrefix(l, "/"):
		return false
	}

	return true
}

func parseRequirements(content string) []*requirementLine {
	var result []*requirementLine

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasSuffix(line, "\\") {
			line = strings.TrimSuffix(line, "\\")
		}

		line = stripComment(line)
		if !isRequirement(line) {
			continue
		}

		m := requirementLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		result = append(result, &requirementLine{
			Name:       m[1],
			Extras:     m[2],
			Specifiers: normalizeSpecifiers(m[3]),
			Marker:     strings.TrimSpace(m[4]),
			LineNo:     i,
		})
	}

	return result
}

// normalizeSpecifiers removes whitespace between specifier operators and
// versions, "== 1.0,  <2" becomes "==1.0, <2".
func normalizeSpecifiers(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.Join(strings.Fields(p), "")
		if p != "" {
			result = append(result, p)
		}
	}

	return strings.Join(result, ",")
}

// updateRequirementLine replaces the specifiers of the requirement for name
// in content. Extras, environment markers, comments and hash options on the
// line are preserved. The second return value is false if no requirement
// for name exists.
func updateRequirementLine(content, name, specifiers string) (string, bool) {
	lines := strings.Split(content, "\n")
	norm := normalizeName(name)
	var found bool

	for _, req := range parseRequirements(content) {
		if normalizeName(req.Name) != norm {
			continue
		}

		line := lines[req.LineNo]
		declEnd := len(line)

		for _, sep := range []string{" #", "\t#", ";", " --hash", " \\"} {
			if idx := strings.Index(line, sep); idx != -1 && idx < declEnd {
				declEnd = idx
			}
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		decl := indent + req.Name + req.Extras + formatSpecifiers(specifiers)

		declEnd = len(strings.TrimRight(line[:declEnd], " \t"))
		lines[req.LineNo] = decl + line[declEnd:]
		found = true
	}

	return strings.Join(lines, "\n"), found
}

func formatSpecifiers(s string) string {
	return strings.ReplaceAll(s, ", ", ",")
}
