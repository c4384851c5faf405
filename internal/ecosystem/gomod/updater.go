package gomod

import (
	"context"
	"errors"

	"golang.org/x/mod/module"

	"github.com/simplesurance/depupdater/internal/deps"
)

type fileUpdater struct {
	updated []*deps.Dependency
	files   deps.Files
	proxy   *proxyClient
}

func (u *fileUpdater) UpdatedDependencyFiles(ctx context.Context) (deps.Files, error) {
	var result deps.Files

	modFile := u.files.Get(goModName)
	if modFile == nil {
		return nil, errors.New("go.mod is missing")
	}

	versions := make(map[string]string, len(u.updated))
	for _, d := range u.updated {
		versions[d.Name] = d.Version
	}

	content, err := updateGoMod(modFile.Content, versions)
	if err != nil {
		return nil, err
	}

	if content != modFile.Content {
		result = append(result, &deps.DependencyFile{Name: modFile.Name, Directory: modFile.Directory, Content: content})
	}

	if sumFile := u.files.Get(goSumName); sumFile != nil {
		content := sumFile.Content

		for _, d := range u.updated {
			sums, err := u.proxy.Sums(ctx, d.Name, d.Version)
			if err != nil {
				return nil, err
			}

			content, err = updateGoSum(content, d.PreviousVersion, module.Version{Path: d.Name, Version: d.Version}, sums)
			if err != nil {
				return nil, err
			}
		}

		if content != sumFile.Content {
			result = append(result, &deps.DependencyFile{Name: sumFile.Name, Directory: sumFile.Directory, Content: content})
		}
	}

	if len(result) == 0 {
		return nil, errors.New("updating dependency files resulted in no changes")
	}

	return result, nil
}
