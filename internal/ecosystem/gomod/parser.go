package gomod

import (
	"context"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
)

type parser struct {
	files deps.Files
}

// Parse returns the required modules of go.mod, indirect requirements are
// not top-level dependencies.
func (p *parser) Parse(context.Context) ([]*deps.Dependency, error) {
	f := p.files.Get(goModName)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", goModName, deps.ErrFileNotFound)
	}

	reqs, err := parseGoMod(f.Content)
	if err != nil {
		return nil, err
	}

	result := make([]*deps.Dependency, 0, len(reqs))

	for _, r := range reqs {
		req := deps.Requirement{File: goModName, Requirement: r.Version}
		if r.Replaced {
			req.Source = "replace"
		}

		result = append(result, &deps.Dependency{
			Name:           r.Path,
			Version:        r.Version,
			Requirements:   []deps.Requirement{req},
			PackageManager: PackageManager,
			TopLevel:       !r.Indirect,
		})
	}

	return result, nil
}
