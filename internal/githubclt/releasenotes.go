package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/logfields"
)

// ErrNotGitHubRepository is returned when a repository URL does not point to
// a repository on github.com.
var ErrNotGitHubRepository = errors.New("not a github.com repository url")

// ReleaseNotes are the changes of a dependency between 2 versions.
// Release or Comparison is nil if they could not be found.
type ReleaseNotes struct {
	Release    *Release
	Comparison *Comparison
}

// ParseRepositoryURL returns the owner and repository name of a github.com
// repository URL, e.g. "https://github.com/rack/rack/tree/main".
func ParseRepositoryURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil {
		return "", "", err
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return "", "", fmt.Errorf("%s: %w", repoURL, ErrNotGitHubRepository)
	}

	elems := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(elems) < 2 || elems[0] == "" || elems[1] == "" {
		return "", "", fmt.Errorf("%s: %w", repoURL, ErrNotGitHubRepository)
	}

	return elems[0], strings.TrimSuffix(elems[1], ".git"), nil
}

// tagCandidates returns the tag names a version is commonly released as.
func tagCandidates(version string) []string {
	if strings.HasPrefix(version, "v") {
		return []string{version}
	}

	return []string{"v" + version, version}
}

// ReleaseNotes returns the GitHub release of version and the commits between
// previousVersion and version of the github.com repository repoURL.
// Tags are looked up as "v<version>" and "<version>".
// If neither a release nor the commits can be found, ErrNotFound is
// returned.
func (clt *Client) ReleaseNotes(ctx context.Context, repoURL, previousVersion, version string) (*ReleaseNotes, error) {
	owner, repo, err := ParseRepositoryURL(repoURL)
	if err != nil {
		return nil, err
	}

	logger := clt.logger.With(logfields.Repository(owner, repo))

	var result ReleaseNotes
	var tag string

	for _, candidate := range tagCandidates(version) {
		rel, err := clt.Release(ctx, owner, repo, candidate)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}

			return nil, fmt.Errorf("retrieving release %s failed: %w", candidate, err)
		}

		result.Release = rel
		tag = candidate
		break
	}

	if previousVersion != "" {
		cmp, err := clt.compareTags(ctx, owner, repo, previousVersion, version, tag)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		result.Comparison = cmp
	}

	if result.Release == nil && result.Comparison == nil {
		logger.Debug("no release notes found",
			logfields.Event("github_release_notes_not_found"),
			zap.String("version", version),
		)

		return nil, ErrNotFound
	}

	return &result, nil
}

// compareTags compares the tags of previousVersion and version. When
// knownTag is not empty it is used as tag of version and its prefix style is
// tried first for previousVersion.
func (clt *Client) compareTags(ctx context.Context, owner, repo, previousVersion, version, knownTag string) (*Comparison, error) {
	headCandidates := tagCandidates(version)
	if knownTag != "" {
		headCandidates = []string{knownTag}
	}

	for _, head := range headCandidates {
		base := previousVersion
		if strings.HasPrefix(head, "v") && !strings.HasPrefix(previousVersion, "v") {
			base = "v" + previousVersion
		}

		cmp, err := clt.CompareCommits(ctx, owner, repo, base, head)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}

			return nil, fmt.Errorf("comparing %s...%s failed: %w", base, head, err)
		}

		return cmp, nil
	}

	return nil, ErrNotFound
}
