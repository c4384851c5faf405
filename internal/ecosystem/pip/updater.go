package pip

import (
	"context"
	"errors"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
)

type fileUpdater struct {
	updated []*deps.Dependency
	files   deps.Files
}

func (u *fileUpdater) UpdatedDependencyFiles(context.Context) (deps.Files, error) {
	f := u.files.Get(requirementsFileName)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", requirementsFileName, deps.ErrFileNotFound)
	}

	content := f.Content

	for _, d := range u.updated {
		if !d.RequirementsChanged() {
			continue
		}

		var found bool
		content, found = updateRequirementLine(content, d.Name, d.RequirementString())
		if !found {
			return nil, fmt.Errorf("requirement %s not found in %s", d.Name, f.Path())
		}
	}

	if content == f.Content {
		return nil, errors.New("updating dependency files resulted in no changes")
	}

	return deps.Files{{Name: f.Name, Directory: f.Directory, Content: content}}, nil
}
