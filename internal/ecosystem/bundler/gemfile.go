package bundler

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

var (
	gemLineRe      = regexp.MustCompile(`^(\s*gem\s*\(?\s*)(['"])([^'"]+)['"]((?:\s*,\s*['"][^'"]*['"])*)(.*)$`)
	gemReqStringRe = regexp.MustCompile(`['"]([^'"]*)['"]`)
	gemSourceRe    = regexp.MustCompile(`(?:^|[\s,(]):?(git|github|gist|bitbucket|path)\s*(?::|=>)`)
	gemGroupOptRe  = regexp.MustCompile(`(?:^|[\s,]):?groups?\s*(?::|=>)\s*(\[[^\]]*\]|:\w+|['"]\w+['"])`)
	blockStartRe   = regexp.MustCompile(`\bdo\s*(\|[^|]*\|)?\s*$`)
	groupBlockRe   = regexp.MustCompile(`^\s*group\s*\(?(.*?)\)?\s+do\s*$`)
	controlStartRe = regexp.MustCompile(`^\s*(if|unless|case|begin|while|until)\b`)
	blockEndRe     = regexp.MustCompile(`^\s*end\s*$`)
	symbolRe       = regexp.MustCompile(`:?['"]?(\w+)['"]?`)
)

type gemDeclaration struct {
	Name         string
	Requirements []string
	Groups       []string
	// Source is "git" or "path" for gems that are not fetched from a gem
	// server, otherwise empty.
	Source string
}

func (g *gemDeclaration) Requirement() string {
	return strings.Join(g.Requirements, ", ")
}

// parseGemfile returns the gem declarations of a Gemfile in order of
// appearance. Duplicate declarations (e.g. per platform) are merged.
func parseGemfile(content string) ([]*gemDeclaration, error) {
	var result []*gemDeclaration
	var groupStack [][]string

	seen := map[string]*gemDeclaration{}

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if blockEndRe.MatchString(line) {
			if len(groupStack) > 0 {
				groupStack = groupStack[:len(groupStack)-1]
			}
			continue
		}

		if m := groupBlockRe.FindStringSubmatch(line); m != nil {
			groupStack = append(groupStack, parseSymbols(m[1]))
			continue
		}

		if m := gemLineRe.FindStringSubmatch(stripComment(line)); m != nil {
			gem := gemDeclaration{
				Name: m[3],
			}

			for _, rm := range gemReqStringRe.FindAllStringSubmatch(m[4], -1) {
				gem.Requirements = append(gem.Requirements, strings.TrimSpace(rm[1]))
			}

			if sm := gemSourceRe.FindStringSubmatch(m[5]); sm != nil {
				switch sm[1] {
				case "path":
					gem.Source = "path"
				default:
					gem.Source = "git"
				}
			}

			for _, grp := range groupStack {
				gem.Groups = append(gem.Groups, grp...)
			}

			if gm := gemGroupOptRe.FindStringSubmatch(m[5]); gm != nil {
				gem.Groups = append(gem.Groups, parseSymbols(gm[1])...)
			}

			if existing, exists := seen[gem.Name]; exists {
				existing.Groups = append(existing.Groups, gem.Groups...)
				continue
			}

			seen[gem.Name] = &gem
			result = append(result, &gem)

			continue
		}

		if blockStartRe.MatchString(line) || controlStartRe.MatchString(line) {
			groupStack = append(groupStack, nil)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading Gemfile failed: %w", err)
	}

	return result, nil
}

func parseSymbols(s string) []string {
	var result []string

	for _, m := range symbolRe.FindAllStringSubmatch(s, -1) {
		result = append(result, m[1])
	}

	return result
}

func stripComment(line string) string {
	var quote rune

	for i, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return line[:i]
		}
	}

	return line
}

// updateGemfileRequirement replaces the version requirements of the gem
// declaration with name by requirements.
func updateGemfileRequirement(content, name string, requirements []string) (string, bool) {
	lines := strings.SplitAfter(content, "\n")
	changed := false

	for i, line := range lines {
		eol := ""
		body := line
		if strings.HasSuffix(body, "\n") {
			body = strings.TrimSuffix(body, "\n")
			eol = "\n"
		}

		m := gemLineRe.FindStringSubmatchIndex(body)
		if m == nil {
			continue
		}

		if body[m[6]:m[7]] != name {
			continue
		}

		quote := body[m[4]:m[5]]

		var sb strings.Builder
		sb.WriteString(body[:m[8]])
		for _, r := range requirements {
			sb.WriteString(", ")
			sb.WriteString(quote)
			sb.WriteString(r)
			sb.WriteString(quote)
		}
		sb.WriteString(body[m[9]:])
		sb.WriteString(eol)

		if sb.String() != line {
			lines[i] = sb.String()
			changed = true
		}
	}

	return strings.Join(lines, ""), changed
}
