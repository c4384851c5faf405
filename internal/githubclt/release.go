package githubclt

import (
	"context"

	"github.com/shurcooL/githubv4"
)

// Release is a GitHub release.
type Release struct {
	Name    string
	TagName string
	URL     string
	// Description is the release notes in markdown.
	Description string
}

// Release returns the release for the git tag tagName.
// If the repository has no release for the tag, ErrNotFound is returned.
func (clt *Client) Release(ctx context.Context, owner, repo, tagName string) (*Release, error) {
	var q struct {
		Repository struct {
			Release *struct {
				Name        string
				TagName     string
				URL         string `graphql:"url"`
				Description string
			} `graphql:"release(tagName: $tagName)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	vars := map[string]any{
		"owner":   githubv4.String(owner),
		"name":    githubv4.String(repo),
		"tagName": githubv4.String(tagName),
	}

	if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
		return nil, clt.wrapGraphQLRetryableErrors(err)
	}

	rel := q.Repository.Release
	if rel == nil {
		return nil, ErrNotFound
	}

	return &Release{
		Name:        rel.Name,
		TagName:     rel.TagName,
		URL:         rel.URL,
		Description: rel.Description,
	}, nil
}
