// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

// ErrNotFound is returned when a repository, tag or release does not exist.
var ErrNotFound = errors.New("not found")

// New returns a new github api client.
func New(oauthAPItoken string) *Client {
	httpClient := newHTTPClient(oauthAPItoken)
	return &Client{
		restClt:    github.NewClient(httpClient),
		graphQLClt: githubv4.NewClient(httpClient),
		logger:     zap.L().Named(loggerName),
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
// All methods return a updateerr.RetryableError when an operation can be retried.
// This can be e.g. the case when the API ratelimit is exceeded.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

// Commit is a commit in a comparison of two revisions.
type Commit struct {
	SHA     string
	Message string
	URL     string
}

// Comparison is the list of commits between two revisions.
type Comparison struct {
	Commits []*Commit
	URL     string
}

// CompareCommits returns the commits that are reachable from head but not
// from base. If one of the revisions does not exist, ErrNotFound is returned.
func (clt *Client) CompareCommits(ctx context.Context, owner, repo, base, head string) (*Comparison, error) {
	cmp, _, err := clt.restClt.Repositories.CompareCommits(ctx, owner, repo, base, head, &github.ListOptions{PerPage: 100})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			clt.logger.Debug("compare commits returned a not found response",
				logfields.Event("github_compare_commits_returned_not_found"),
				logfields.Repository(owner, repo),
				zap.String("github.base", base),
				zap.String("github.head", head),
			)

			return nil, ErrNotFound
		}

		return nil, clt.wrapRetryableErrors(err)
	}

	result := Comparison{
		URL:     cmp.GetHTMLURL(),
		Commits: make([]*Commit, 0, len(cmp.Commits)),
	}

	for _, c := range cmp.Commits {
		result.Commits = append(result.Commits, &Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			URL:     c.GetHTMLURL(),
		})
	}

	return &result, nil
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return updateerr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.AbuseRateLimitError:
		after := time.Time{}
		if v.RetryAfter != nil {
			after = time.Now().Add(*v.RetryAfter)
		}

		return updateerr.NewRetryableError(err, after)

	case *github.ErrorResponse:
		if v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return updateerr.NewRetryableAnytimeError(err)
		}
	}

	return err
}

var graphQlHTTPStatusErrRe = regexp.MustCompile(`^non-200 OK status code: ([0-9]+) .*`)

func (clt *Client) wrapGraphQLRetryableErrors(err error) error {
	matches := graphQlHTTPStatusErrRe.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return err
	}

	errcode, atoiErr := strconv.Atoi(matches[1])
	if atoiErr != nil {
		clt.logger.Info(
			"parsing http code from error string failed",
			zap.Error(atoiErr),
			zap.String("error_string", err.Error()),
			zap.String("http_errcode", matches[1]),
		)
		return err
	}

	if errcode >= 500 && errcode < 600 {
		return updateerr.NewRetryableAnytimeError(err)
	}

	return err
}
