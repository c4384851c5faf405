// Package gomod implements dependency updates for Go modules.
//
// Only go.mod and go.sum are modified, the checksums of the updated modules
// are retrieved from the checksum database. Checksums of modules that
// become necessary because a new version has additional requirements are
// not added, the build of the merge request will report them.
package gomod

import (
	"context"
	"strings"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/registry"
)

const PackageManager = "go_modules"

type Ecosystem struct {
	proxy *proxyClient
}

// New returns the Go modules ecosystem. Empty URLs default to
// proxy.golang.org and sum.golang.org.
func New(clt *registry.Client, proxyURL, sumDBURL string) *Ecosystem {
	return &Ecosystem{proxy: newProxyClient(clt, proxyURL, sumDBURL)}
}

func (*Ecosystem) PackageManager() string {
	return PackageManager
}

func (*Ecosystem) Language() string {
	return "go"
}

func (*Ecosystem) NewFileFetcher(src *deps.Source, reader deps.RepositoryReader) deps.FileFetcher {
	return deps.NewFileFetcher(src, reader, []string{goModName}, []string{goSumName})
}

func (*Ecosystem) NewParser(files deps.Files) deps.Parser {
	return &parser{files: files}
}

func (e *Ecosystem) NewUpdateChecker(dep *deps.Dependency, _ deps.Files, opts *deps.CheckerOptions) deps.UpdateChecker {
	return deps.NewChecker(dep, &resolver{proxy: e.proxy}, opts)
}

func (e *Ecosystem) NewFileUpdater(updated []*deps.Dependency, files deps.Files) deps.FileUpdater {
	return &fileUpdater{updated: updated, files: files, proxy: e.proxy}
}

// SourceURL returns the repository URL of modules hosted on github.com or
// golang.org/x, for other modules the VCS origin reported by the module
// proxy.
func (e *Ecosystem) SourceURL(ctx context.Context, dep *deps.Dependency) (string, error) {
	if u := knownHostURL(dep.Name); u != "" {
		return u, nil
	}

	info, err := e.proxy.Info(ctx, dep.Name, dep.Version)
	if err != nil {
		return "", err
	}

	if info.Origin == nil {
		return "", nil
	}

	return strings.TrimSuffix(info.Origin.URL, ".git"), nil
}

func knownHostURL(path string) string {
	elems := strings.Split(path, "/")

	switch {
	case elems[0] == "github.com" && len(elems) >= 3:
		return "https://" + strings.Join(elems[:3], "/")
	case elems[0] == "golang.org" && len(elems) >= 3 && elems[1] == "x":
		return "https://github.com/golang/" + elems[2]
	}

	return ""
}
