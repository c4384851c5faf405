// Package bundler implements dependency updates for Ruby projects managed
// with Bundler (Gemfile and Gemfile.lock).
package bundler

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/registry"
)

const PackageManager = "bundler"

const loggerName = "bundler"

type Ecosystem struct {
	gems   *rubyGemsClient
	logger *zap.Logger
}

// New returns the bundler ecosystem. Gem metadata is retrieved from the
// RubyGems compatible API at rubyGemsURL, if it is empty rubygems.org is
// used.
func New(clt *registry.Client, rubyGemsURL string) *Ecosystem {
	return &Ecosystem{
		gems:   newRubyGemsClient(clt, rubyGemsURL),
		logger: zap.L().Named(loggerName),
	}
}

func (*Ecosystem) PackageManager() string {
	return PackageManager
}

func (*Ecosystem) Language() string {
	return "ruby"
}

func (*Ecosystem) NewFileFetcher(src *deps.Source, reader deps.RepositoryReader) deps.FileFetcher {
	return deps.NewFileFetcher(src, reader, []string{gemfileName}, []string{lockfileName})
}

func (*Ecosystem) NewParser(files deps.Files) deps.Parser {
	return &parser{files: files}
}

func (e *Ecosystem) NewUpdateChecker(dep *deps.Dependency, files deps.Files, opts *deps.CheckerOptions) deps.UpdateChecker {
	return deps.NewChecker(dep, &resolver{files: files, gems: e.gems, logger: e.logger}, opts)
}

func (e *Ecosystem) NewFileUpdater(updated []*deps.Dependency, files deps.Files) deps.FileUpdater {
	return &fileUpdater{updated: updated, files: files, gems: e.gems}
}

func (e *Ecosystem) SourceURL(ctx context.Context, dep *deps.Dependency) (string, error) {
	return e.gems.SourceURL(ctx, dep.Name)
}
