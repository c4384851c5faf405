// Package gitlabclt provides a GitLab API client for a single project.
package gitlabclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/retry"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "gitlab_client"

const perPage = 100

const (
	headerRateLimitReset = "RateLimit-Reset"
	headerRetryAfter     = "Retry-After"
)

// Client is a GitLab API client for the operations on one project.
// Operations that fail with a retryable error (rate limit exceeded, server
// errors, network errors) are retried via the retry.Retryer.
type Client struct {
	clt     *gitlab.Client
	project string
	retryer *retry.Retryer
	logger  *zap.Logger
}

// New returns a client for the project with the path project (e.g.
// "group/project") of the GitLab instance with the API URL apiURL.
func New(apiURL, token, project string, retryer *retry.Retryer) (*Client, error) {
	clt, err := gitlab.NewClient(
		token,
		gitlab.WithBaseURL(apiURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: DefaultHTTPClientTimeout}),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client failed: %w", err)
	}

	return &Client{
		clt:     clt,
		project: project,
		retryer: retryer,
		logger:  zap.L().Named(loggerName).With(logfields.Project(project)),
	}, nil
}

// Project returns the path of the project.
func (clt *Client) Project() string {
	return clt.project
}

func (clt *Client) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	return clt.retryer.Run(ctx, func(ctx context.Context) error {
		return clt.wrapRetryableErrors(ctx, fn(ctx))
	}, []zap.Field{logfields.Project(clt.project), zap.String("gitlab.operation", operation)})
}

// DefaultBranch returns the name of the default branch of the project.
func (clt *Client) DefaultBranch(ctx context.Context) (string, error) {
	var result string

	err := clt.do(ctx, "get_project", func(ctx context.Context) error {
		p, _, err := clt.clt.Projects.GetProject(clt.project, nil, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		result = p.DefaultBranch
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("retrieving project %s failed: %w", clt.project, err)
	}

	return result, nil
}

// BranchHead returns the id of the commit the branch points to.
func (clt *Client) BranchHead(ctx context.Context, branch string) (string, error) {
	var result string

	err := clt.do(ctx, "get_branch", func(ctx context.Context) error {
		b, _, err := clt.clt.Branches.GetBranch(clt.project, branch, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		if b.Commit == nil {
			return errors.New("gitlab returned a branch without commit")
		}

		result = b.Commit.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("retrieving branch %s failed: %w", branch, err)
	}

	return result, nil
}

// ReadFile returns the content of the file at path in revision ref.
// If the file does not exist, deps.ErrFileNotFound is returned.
func (clt *Client) ReadFile(ctx context.Context, path, ref string) ([]byte, error) {
	var result []byte

	err := clt.do(ctx, "get_raw_file", func(ctx context.Context) error {
		var err error
		result, _, err = clt.clt.RepositoryFiles.GetRawFile(
			clt.project,
			path,
			&gitlab.GetRawFileOptions{Ref: ptr(ref)},
			gitlab.WithContext(ctx),
		)
		return err
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s@%s: %w", path, ref, deps.ErrFileNotFound)
		}

		return nil, fmt.Errorf("reading file %s@%s failed: %w", path, ref, err)
	}

	return result, nil
}

// ListOpenMergeRequests returns the open merge requests matching the GitLab
// search term search.
func (clt *Client) ListOpenMergeRequests(ctx context.Context, search string) ([]*MergeRequest, error) {
	var result []*MergeRequest

	opts := gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: perPage},
		State:       ptr("opened"),
		Search:      ptr(search),
	}

	for {
		var mrs []*gitlab.MergeRequest
		var resp *gitlab.Response

		err := clt.do(ctx, "list_merge_requests", func(ctx context.Context) error {
			var err error
			mrs, resp, err = clt.clt.MergeRequests.ListProjectMergeRequests(clt.project, &opts, gitlab.WithContext(ctx))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing merge requests failed: %w", err)
		}

		for _, mr := range mrs {
			result = append(result, newMergeRequest(mr))
		}

		if resp == nil || resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// GetMergeRequest returns the merge request with the given iid.
func (clt *Client) GetMergeRequest(ctx context.Context, iid int) (*MergeRequest, error) {
	var result *MergeRequest

	err := clt.do(ctx, "get_merge_request", func(ctx context.Context) error {
		mr, _, err := clt.clt.MergeRequests.GetMergeRequest(clt.project, iid, nil, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		result = newMergeRequest(mr)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving merge request !%d failed: %w", iid, err)
	}

	return result, nil
}

// MergeRequestCommitCount returns the number of commits of a merge request.
func (clt *Client) MergeRequestCommitCount(ctx context.Context, iid int) (int, error) {
	var cnt int

	opts := gitlab.GetMergeRequestCommitsOptions{Page: 1, PerPage: perPage}

	for {
		var commits []*gitlab.Commit
		var resp *gitlab.Response

		err := clt.do(ctx, "get_merge_request_commits", func(ctx context.Context) error {
			var err error
			commits, resp, err = clt.clt.MergeRequests.GetMergeRequestCommits(clt.project, iid, &opts, gitlab.WithContext(ctx))
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("retrieving commits of merge request !%d failed: %w", iid, err)
		}

		cnt += len(commits)

		if resp == nil || resp.NextPage == 0 {
			return cnt, nil
		}

		opts.Page = resp.NextPage
	}
}

// CommitFiles creates a commit on c.Branch that updates c.Files.
// If c.StartSHA or c.StartBranch is set, the commit is based on that commit
// or the head of that branch and c.Branch is created, or overwritten when
// c.Force is true.
// The id of the created commit is returned.
func (clt *Client) CommitFiles(ctx context.Context, c *Commit) (string, error) {
	opts := gitlab.CreateCommitOptions{
		Branch:        ptr(c.Branch),
		CommitMessage: ptr(c.Message),
		Actions:       make([]*gitlab.CommitActionOptions, 0, len(c.Files)),
	}

	switch {
	case c.StartSHA != "":
		opts.StartSHA = ptr(c.StartSHA)
	case c.StartBranch != "":
		opts.StartBranch = ptr(c.StartBranch)
	}

	if c.Force {
		opts.Force = ptr(true)
	}

	for _, f := range c.Files {
		opts.Actions = append(opts.Actions, &gitlab.CommitActionOptions{
			Action:   gitlab.FileAction(gitlab.FileUpdate),
			FilePath: ptr(f.Path()),
			Content:  ptr(f.Content),
		})
	}

	var result string

	err := clt.do(ctx, "create_commit", func(ctx context.Context) error {
		commit, _, err := clt.clt.Commits.CreateCommit(clt.project, &opts, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		result = commit.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating commit on branch %s failed: %w", c.Branch, err)
	}

	return result, nil
}

// CreateMergeRequest creates a merge request.
func (clt *Client) CreateMergeRequest(ctx context.Context, mr *NewMergeRequest) (*MergeRequest, error) {
	opts := gitlab.CreateMergeRequestOptions{
		Title:        ptr(mr.Title),
		Description:  ptr(mr.Description),
		SourceBranch: ptr(mr.SourceBranch),
		TargetBranch: ptr(mr.TargetBranch),
	}

	if len(mr.Labels) > 0 {
		labels := gitlab.LabelOptions(mr.Labels)
		opts.Labels = &labels
	}

	if len(mr.AssigneeIDs) > 0 {
		opts.AssigneeIDs = ptr(mr.AssigneeIDs)
	}

	if mr.RemoveSourceBranch {
		opts.RemoveSourceBranch = ptr(true)
	}

	var result *MergeRequest

	err := clt.do(ctx, "create_merge_request", func(ctx context.Context) error {
		created, _, err := clt.clt.MergeRequests.CreateMergeRequest(clt.project, &opts, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		result = newMergeRequest(created)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating merge request for branch %s failed: %w", mr.SourceBranch, err)
	}

	return result, nil
}

// CloseMergeRequest closes a merge request.
func (clt *Client) CloseMergeRequest(ctx context.Context, iid int) error {
	err := clt.do(ctx, "close_merge_request", func(ctx context.Context) error {
		_, _, err := clt.clt.MergeRequests.UpdateMergeRequest(
			clt.project,
			iid,
			&gitlab.UpdateMergeRequestOptions{StateEvent: ptr("close")},
			gitlab.WithContext(ctx),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("closing merge request !%d failed: %w", iid, err)
	}

	return nil
}

// DeleteBranch deletes a branch. Deleting a branch that does not exist
// succeeds.
func (clt *Client) DeleteBranch(ctx context.Context, branch string) error {
	err := clt.do(ctx, "delete_branch", func(ctx context.Context) error {
		_, err := clt.clt.Branches.DeleteBranch(clt.project, branch, gitlab.WithContext(ctx))
		return err
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			clt.logger.Debug(
				"branch to delete does not exist",
				logfields.Event("gitlab_delete_branch_returned_not_found"),
				logfields.Branch(branch),
			)

			return nil
		}

		return fmt.Errorf("deleting branch %s failed: %w", branch, err)
	}

	return nil
}

// ApproveMergeRequest approves a merge request with the user of the API
// token.
func (clt *Client) ApproveMergeRequest(ctx context.Context, iid int) error {
	err := clt.do(ctx, "approve_merge_request", func(ctx context.Context) error {
		_, _, err := clt.clt.MergeRequestApprovals.ApproveMergeRequest(clt.project, iid, nil, gitlab.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("approving merge request !%d failed: %w", iid, err)
	}

	return nil
}

// MergeWhenPipelineSucceeds enables merging the merge request when its
// pipeline succeeds, the source branch is removed after the merge.
func (clt *Client) MergeWhenPipelineSucceeds(ctx context.Context, iid int) error {
	err := clt.do(ctx, "accept_merge_request", func(ctx context.Context) error {
		_, _, err := clt.clt.MergeRequests.AcceptMergeRequest(
			clt.project,
			iid,
			&gitlab.AcceptMergeRequestOptions{
				MergeWhenPipelineSucceeds: ptr(true),
				ShouldRemoveSourceBranch:  ptr(true),
			},
			gitlab.WithContext(ctx),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("enabling merge when pipeline succeeds for merge request !%d failed: %w", iid, err)
	}

	return nil
}

// ListOpenIssues returns the open issues with all of the given labels whose
// title matches the search term.
func (clt *Client) ListOpenIssues(ctx context.Context, search string, labels []string) ([]*Issue, error) {
	var result []*Issue

	opts := gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: perPage},
		State:       ptr("opened"),
		Search:      ptr(search),
		In:          ptr("title"),
	}

	if len(labels) > 0 {
		l := gitlab.LabelOptions(labels)
		opts.Labels = &l
	}

	for {
		var issues []*gitlab.Issue
		var resp *gitlab.Response

		err := clt.do(ctx, "list_issues", func(ctx context.Context) error {
			var err error
			issues, resp, err = clt.clt.Issues.ListProjectIssues(clt.project, &opts, gitlab.WithContext(ctx))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("listing issues failed: %w", err)
		}

		for _, is := range issues {
			result = append(result, newIssue(is))
		}

		if resp == nil || resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateIssue creates an issue.
func (clt *Client) CreateIssue(ctx context.Context, title, description string, labels []string) (*Issue, error) {
	l := gitlab.LabelOptions(labels)
	opts := gitlab.CreateIssueOptions{
		Title:       ptr(title),
		Description: ptr(description),
		Labels:      &l,
	}

	var result *Issue

	err := clt.do(ctx, "create_issue", func(ctx context.Context) error {
		is, _, err := clt.clt.Issues.CreateIssue(clt.project, &opts, gitlab.WithContext(ctx))
		if err != nil {
			return err
		}

		result = newIssue(is)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating issue %q failed: %w", title, err)
	}

	return result, nil
}

// UpdateIssueDescription replaces the description of an issue.
func (clt *Client) UpdateIssueDescription(ctx context.Context, iid int, description string) error {
	err := clt.do(ctx, "update_issue", func(ctx context.Context) error {
		_, _, err := clt.clt.Issues.UpdateIssue(
			clt.project,
			iid,
			&gitlab.UpdateIssueOptions{Description: ptr(description)},
			gitlab.WithContext(ctx),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating issue #%d failed: %w", iid, err)
	}

	return nil
}

func (clt *Client) wrapRetryableErrors(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response == nil {
			return err
		}

		code := respErr.Response.StatusCode

		if code == http.StatusTooManyRequests {
			after := rateLimitReset(respErr.Response.Header)

			clt.logger.Info(
				"rate limit exceeded",
				logfields.Event("gitlab_api_rate_limit_exceeded"),
				zap.Time("gitlab_api_rate_limit_reset_time", after),
			)

			return updateerr.NewRetryableError(err, after)
		}

		if code >= 500 && code < 600 {
			return updateerr.NewRetryableAnytimeError(err)
		}

		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && ctx.Err() == nil {
		return updateerr.NewRetryableAnytimeError(err)
	}

	return err
}

// rateLimitReset returns the time when the rate limit is reset, the zero
// time if the response headers do not contain it.
func rateLimitReset(h http.Header) time.Time {
	if v := h.Get(headerRateLimitReset); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(ts, 0)
		}
	}

	if v := h.Get(headerRetryAfter); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}

	return time.Time{}
}

func isStatus(err error, code int) bool {
	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode == code
	}

	return false
}

func ptr[T any](v T) *T {
	return &v
}
