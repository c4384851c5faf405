package pip

import (
	"context"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
)

type parser struct {
	files deps.Files
}

func (p *parser) Parse(context.Context) ([]*deps.Dependency, error) {
	f := p.files.Get(requirementsFileName)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", requirementsFileName, deps.ErrFileNotFound)
	}

	seen := map[string]struct{}{}
	var result []*deps.Dependency

	for _, req := range parseRequirements(f.Content) {
		norm := normalizeName(req.Name)
		if _, exists := seen[norm]; exists {
			continue
		}
		seen[norm] = struct{}{}

		result = append(result, &deps.Dependency{
			Name:    req.Name,
			Version: req.Pinned(),
			Requirements: []deps.Requirement{{
				File:        requirementsFileName,
				Requirement: req.Specifiers,
			}},
			PackageManager: PackageManager,
			TopLevel:       true,
		})
	}

	return result, nil
}
