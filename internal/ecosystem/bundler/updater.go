package bundler

import (
	"context"
	"errors"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
)

type fileUpdater struct {
	updated []*deps.Dependency
	files   deps.Files
	gems    *rubyGemsClient
}

func (u *fileUpdater) UpdatedDependencyFiles(ctx context.Context) (deps.Files, error) {
	var result deps.Files

	if gf := u.files.Get(gemfileName); gf != nil {
		content := gf.Content

		for _, d := range u.updated {
			if !d.RequirementsChanged() {
				continue
			}

			for _, req := range d.Requirements {
				if req.File != gemfileName {
					continue
				}

				var changed bool
				content, changed = updateGemfileRequirement(content, d.Name, splitRequirement(req.Requirement))
				if !changed {
					return nil, fmt.Errorf("declaration of gem %s not found in Gemfile", d.Name)
				}
			}
		}

		if content != gf.Content {
			result = append(result, &deps.DependencyFile{Name: gf.Name, Directory: gf.Directory, Content: content})
		}
	}

	if lf := u.files.Get(lockfileName); lf != nil {
		content, err := u.updateLockfile(ctx, lf.Content)
		if err != nil {
			return nil, err
		}

		if content != lf.Content {
			result = append(result, &deps.DependencyFile{Name: lf.Name, Directory: lf.Directory, Content: content})
		}
	}

	if len(result) == 0 {
		return nil, errors.New("updating dependency files resulted in no changes")
	}

	return result, nil
}

func (u *fileUpdater) updateLockfile(ctx context.Context, content string) (string, error) {
	updates := make([]*lockfileUpdate, 0, len(u.updated))

	for _, d := range u.updated {
		if d.PreviousVersion == "" || d.PreviousVersion == d.Version {
			continue
		}

		lu := lockfileUpdate{
			Name:            d.Name,
			PreviousVersion: d.PreviousVersion,
			Version:         d.Version,
		}

		if d.TopLevel && d.RequirementsChanged() {
			req := d.RequirementString()
			lu.Requirement = &req
		}

		runtimeDeps, err := u.gems.RuntimeDependencies(ctx, d.Name, d.Version)
		if err != nil {
			return "", err
		}

		lu.Dependencies = make([]*lockedRequirement, 0, len(runtimeDeps))
		for _, rd := range runtimeDeps {
			lu.Dependencies = append(lu.Dependencies, &lockedRequirement{Name: rd.Name, Requirement: rd.Requirements})
		}

		sortRequirements(lu.Dependencies)

		updates = append(updates, &lu)
	}

	if len(updates) == 0 {
		return content, nil
	}

	return updateLockfile(content, updates)
}
