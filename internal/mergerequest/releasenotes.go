package mergerequest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/githubclt"
	"github.com/simplesurance/depupdater/internal/logfields"
)

const releaseNotesTimeout = time.Minute

// ReleaseNotes are the changes of a dependency update shown in the merge
// request description. Release and Comparison are nil when they are
// unknown.
type ReleaseNotes struct {
	SourceURL  string
	Release    *githubclt.Release
	Comparison *githubclt.Comparison
}

// SourceURLResolver returns the source code repository URL of a dependency.
// It is implemented by deps.Ecosystem.
type SourceURLResolver interface {
	SourceURL(ctx context.Context, dep *deps.Dependency) (string, error)
}

type GitHubClient interface {
	ReleaseNotes(ctx context.Context, repoURL, previousVersion, version string) (*githubclt.ReleaseNotes, error)
}

// Retryer runs GitHubClient methods repeatedly if they fail with a temporary
// error.
type Retryer interface {
	Run(context.Context, func(context.Context) error, []zap.Field) error
}

// GitHubReleaseNotes retrieves release notes of dependencies that are
// developed on github.com.
type GitHubReleaseNotes struct {
	resolver SourceURLResolver
	clt      GitHubClient
	retryer  Retryer
}

func NewGitHubReleaseNotes(resolver SourceURLResolver, clt GitHubClient, retryer Retryer) *GitHubReleaseNotes {
	return &GitHubReleaseNotes{
		resolver: resolver,
		clt:      clt,
		retryer:  retryer,
	}
}

// ReleaseNotes returns the release notes for dep.
// If the source repository of dep is unknown, nil is returned.
// If the source repository is not hosted on github.com, or it has no
// release notes for the version, only the SourceURL is set.
func (r *GitHubReleaseNotes) ReleaseNotes(ctx context.Context, dep *deps.Dependency) (*ReleaseNotes, error) {
	ctx, cancelFn := context.WithTimeout(ctx, releaseNotesTimeout)
	defer cancelFn()

	srcURL, err := r.resolver.SourceURL(ctx, dep)
	if err != nil {
		return nil, err
	}

	if srcURL == "" {
		return nil, nil
	}

	result := ReleaseNotes{SourceURL: srcURL}

	if dep.Version == "" {
		return &result, nil
	}

	if _, _, err := githubclt.ParseRepositoryURL(srcURL); err != nil {
		return &result, nil
	}

	var notes *githubclt.ReleaseNotes

	err = r.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		notes, err = r.clt.ReleaseNotes(ctx, srcURL, dep.PreviousVersion, dep.Version)
		return err
	}, []zap.Field{logfields.Dependency(dep.Name), logfields.URL(srcURL)})
	if err != nil {
		if errors.Is(err, githubclt.ErrNotFound) {
			return &result, nil
		}

		return &result, err
	}

	result.Release = notes.Release
	result.Comparison = notes.Comparison

	return &result, nil
}
