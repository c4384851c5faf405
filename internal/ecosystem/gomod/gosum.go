package gomod

import (
	"fmt"
	"strings"

	"golang.org/x/mod/module"
)

const goModSuffix = "/go.mod"

// sumLine is an entry of a go.sum file, Version has the "/go.mod" suffix for
// hashes of go.mod files.
type sumLine struct {
	module.Version
	Hash string
}

func (l *sumLine) String() string {
	return l.Path + " " + l.Version.Version + " " + l.Hash
}

func parseSumLines(content string) ([]*sumLine, error) {
	var result []*sumLine

	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: malformed checksum entry: %q", i+1, line)
		}

		result = append(result, &sumLine{
			Version: module.Version{Path: fields[0], Version: fields[1]},
			Hash:    fields[2],
		})
	}

	return result, nil
}

// updateGoSum replaces the checksums of mod.Path at previousVersion with
// newLines. The result is sorted like the go command sorts go.sum files.
func updateGoSum(content, previousVersion string, mod module.Version, newLines []*sumLine) (string, error) {
	lines, err := parseSumLines(content)
	if err != nil {
		return "", err
	}

	result := make([]*sumLine, 0, len(lines)+len(newLines))

	for _, l := range lines {
		if l.Path == mod.Path {
			v := strings.TrimSuffix(l.Version.Version, goModSuffix)
			if v == previousVersion || v == mod.Version {
				continue
			}
		}

		result = append(result, l)
	}

	result = append(result, newLines...)

	versions := make([]module.Version, 0, len(result))
	byVersion := make(map[module.Version]*sumLine, len(result))

	for _, l := range result {
		if _, exists := byVersion[l.Version]; exists {
			continue
		}

		versions = append(versions, l.Version)
		byVersion[l.Version] = l
	}

	module.Sort(versions)

	var sb strings.Builder
	for _, v := range versions {
		sb.WriteString(byVersion[v].String())
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}
