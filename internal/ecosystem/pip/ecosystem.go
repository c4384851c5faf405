// Package pip implements dependency updates for Python projects that declare
// their dependencies in a requirements.txt file.
package pip

import (
	"context"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/registry"
)

const PackageManager = "pip"

type Ecosystem struct {
	pypi *pyPIClient
}

// New returns the pip ecosystem, package metadata is retrieved from the PyPI
// JSON API at pypiURL. If pypiURL is empty pypi.org is used.
func New(clt *registry.Client, pypiURL string) *Ecosystem {
	return &Ecosystem{pypi: newPyPIClient(clt, pypiURL)}
}

func (*Ecosystem) PackageManager() string {
	return PackageManager
}

func (*Ecosystem) Language() string {
	return "python"
}

func (*Ecosystem) NewFileFetcher(src *deps.Source, reader deps.RepositoryReader) deps.FileFetcher {
	return deps.NewFileFetcher(src, reader, []string{requirementsFileName}, nil)
}

func (*Ecosystem) NewParser(files deps.Files) deps.Parser {
	return &parser{files: files}
}

func (e *Ecosystem) NewUpdateChecker(dep *deps.Dependency, _ deps.Files, opts *deps.CheckerOptions) deps.UpdateChecker {
	return deps.NewChecker(dep, &resolver{pypi: e.pypi}, opts)
}

func (*Ecosystem) NewFileUpdater(updated []*deps.Dependency, files deps.Files) deps.FileUpdater {
	return &fileUpdater{updated: updated, files: files}
}

func (e *Ecosystem) SourceURL(ctx context.Context, dep *deps.Dependency) (string, error) {
	return e.pypi.SourceURL(ctx, dep.Name)
}
