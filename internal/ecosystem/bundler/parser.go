package bundler

import (
	"context"

	"github.com/simplesurance/depupdater/internal/deps"
)

type parser struct {
	files deps.Files
}

// Parse returns the gems declared in the Gemfile followed by the
// transitive gems from Gemfile.lock.
func (p *parser) Parse(context.Context) ([]*deps.Dependency, error) {
	prj, err := loadProject(p.files)
	if err != nil {
		return nil, err
	}

	result := make([]*deps.Dependency, 0, len(prj.gems))

	for _, gem := range prj.gems {
		spec := prj.lockfile.Spec(gem.Name)

		d := deps.Dependency{
			Name:           gem.Name,
			Requirements:   []deps.Requirement{gemfileRequirement(gem, spec)},
			PackageManager: PackageManager,
			TopLevel:       true,
		}

		if spec != nil {
			d.Version = spec.Version
		}

		result = append(result, &d)
	}

	if prj.lockfile == nil {
		return result, nil
	}

	for _, spec := range prj.lockfile.Specs {
		if _, exists := prj.gemsMap[spec.Name]; exists {
			continue
		}

		result = append(result, &deps.Dependency{
			Name:           spec.Name,
			Version:        spec.Version,
			PackageManager: PackageManager,
		})
	}

	return result, nil
}
