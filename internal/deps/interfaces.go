package deps

import (
	"context"
	"errors"
	"fmt"
)

// ErrFileNotFound is returned by a RepositoryReader when a file does not
// exist.
var ErrFileNotFound = errors.New("file not found")

// Source describes the repository location of the dependency files.
type Source struct {
	Provider    string
	Hostname    string
	APIEndpoint string
	// Repo is the path of the project, e.g. "group/project".
	Repo      string
	Directory string
	Branch    string
}

func (s *Source) String() string {
	return fmt.Sprintf("%s/%s (branch: %s, directory: %s)", s.Hostname, s.Repo, s.Branch, s.Directory)
}

// RepositoryReader provides read access to the files of a repository.
type RepositoryReader interface {
	// BranchHead returns the commit id the branch points to.
	BranchHead(ctx context.Context, branch string) (string, error)
	// ReadFile returns the content of the file at path in revision ref.
	// If the file does not exist ErrFileNotFound is returned.
	ReadFile(ctx context.Context, path, ref string) ([]byte, error)
}

// FileFetcher retrieves the dependency files of a project.
type FileFetcher interface {
	Files(ctx context.Context) (Files, error)
	// Commit returns the commit id the files were fetched from.
	Commit(ctx context.Context) (string, error)
}

// Parser extracts dependencies from dependency files.
type Parser interface {
	// Parse returns all dependencies in the order they appear in the
	// dependency files.
	Parse(ctx context.Context) ([]*Dependency, error)
}

// UpdateChecker evaluates if and how a dependency can be updated.
type UpdateChecker interface {
	UpToDate(ctx context.Context) (bool, error)
	// LatestVersion returns the newest version the dependency can be
	// updated to, an empty string if no version is known.
	LatestVersion(ctx context.Context) (string, error)
	// RequirementsUnlockedOrCanBe returns true if the requirements of the
	// dependency may be changed.
	RequirementsUnlockedOrCanBe() bool
	CanUpdate(ctx context.Context, strategy UnlockStrategy) (bool, error)
	// UpdatedDependencies returns the dependency updated to
	// LatestVersion() as first element followed by the dependencies that
	// had to be updated with it.
	UpdatedDependencies(ctx context.Context, strategy UnlockStrategy) ([]*Dependency, error)
}

// FileUpdater applies updated dependencies to dependency files.
type FileUpdater interface {
	// UpdatedDependencyFiles returns the files whose content changed.
	UpdatedDependencyFiles(ctx context.Context) (Files, error)
}

// CheckerOptions are the settings of an UpdateChecker.
type CheckerOptions struct {
	RequirementsUpdateStrategy RequirementsUpdateStrategy
	// IgnoredVersions are requirements in the syntax of the ecosystem,
	// versions matching any of them are never proposed.
	IgnoredVersions []string
}

// Ecosystem creates the dependency update components for one package
// manager.
type Ecosystem interface {
	PackageManager() string
	// Language is the programming language of the ecosystem, it is used as
	// merge request label.
	Language() string
	NewFileFetcher(src *Source, reader RepositoryReader) FileFetcher
	NewParser(files Files) Parser
	NewUpdateChecker(dep *Dependency, files Files, opts *CheckerOptions) UpdateChecker
	NewFileUpdater(updated []*Dependency, files Files) FileUpdater
	// SourceURL returns the URL of the source code repository of the
	// dependency, an empty string if it is unknown.
	SourceURL(ctx context.Context, dep *Dependency) (string, error)
}
