package bundler

import (
	"errors"
	"strings"

	"github.com/simplesurance/depupdater/internal/deps"
)

const (
	gemfileName  = "Gemfile"
	lockfileName = "Gemfile.lock"
)

// project is the parsed representation of the Gemfile and Gemfile.lock.
type project struct {
	gems     []*gemDeclaration
	gemsMap  map[string]*gemDeclaration
	lockfile *lockfile
}

func loadProject(files deps.Files) (*project, error) {
	gf := files.Get(gemfileName)
	if gf == nil {
		return nil, errors.New("Gemfile is missing")
	}

	gems, err := parseGemfile(gf.Content)
	if err != nil {
		return nil, err
	}

	result := project{
		gems:    gems,
		gemsMap: make(map[string]*gemDeclaration, len(gems)),
	}

	for _, g := range gems {
		result.gemsMap[g.Name] = g
	}

	if lf := files.Get(lockfileName); lf != nil {
		result.lockfile, err = parseLockfile(lf.Content)
		if err != nil {
			return nil, err
		}
	}

	return &result, nil
}

func gemfileRequirement(gem *gemDeclaration, spec *lockedSpec) deps.Requirement {
	source := gem.Source
	if source == "" && spec != nil && spec.Source != "GEM" {
		source = strings.ToLower(spec.Source)
	}

	return deps.Requirement{
		File:        gemfileName,
		Requirement: gem.Requirement(),
		Groups:      gem.Groups,
		Source:      source,
	}
}

func splitRequirement(req string) []string {
	var result []string

	for _, s := range strings.Split(req, ",") {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}

	return result
}
