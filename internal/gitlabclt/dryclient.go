package gitlabclt

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/logfields"
)

const dryRunCommitID = "0000000000000000000000000000000000000000"

// DryClient is a GitLab client that does not do any changes on GitLab.
// All operations that could cause a change are simulated and always succeed.
// All other operations are forwarded to the wrapped Client.
type DryClient struct {
	*Client
	logger *zap.Logger
}

func NewDryClient(clt *Client) *DryClient {
	return &DryClient{
		Client: clt,
		logger: clt.logger.Named("dry_gitlab_client"),
	}
}

func (c *DryClient) CommitFiles(_ context.Context, commit *Commit) (string, error) {
	c.logger.Info(
		"simulated creating commit, no commit created on gitlab",
		logfields.Event("dry_run_commit_simulated"),
		logfields.Branch(commit.Branch),
		zap.Int("file_count", len(commit.Files)),
	)

	return dryRunCommitID, nil
}

func (c *DryClient) CreateMergeRequest(_ context.Context, mr *NewMergeRequest) (*MergeRequest, error) {
	c.logger.Info(
		"simulated creating merge request, no merge request created on gitlab",
		logfields.Event("dry_run_merge_request_creation_simulated"),
		logfields.Branch(mr.SourceBranch),
		zap.String("title", mr.Title),
	)

	return &MergeRequest{
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		SHA:          dryRunCommitID,
	}, nil
}

func (c *DryClient) CloseMergeRequest(_ context.Context, iid int) error {
	c.logger.Info("simulated closing merge request",
		logfields.Event("dry_run_merge_request_close_simulated"),
		logfields.MergeRequest(iid),
	)
	return nil
}

func (c *DryClient) DeleteBranch(_ context.Context, branch string) error {
	c.logger.Info("simulated deleting branch",
		logfields.Event("dry_run_branch_deletion_simulated"),
		logfields.Branch(branch),
	)
	return nil
}

func (c *DryClient) ApproveMergeRequest(_ context.Context, iid int) error {
	c.logger.Info("simulated approving merge request",
		logfields.Event("dry_run_merge_request_approval_simulated"),
		logfields.MergeRequest(iid),
	)
	return nil
}

func (c *DryClient) MergeWhenPipelineSucceeds(_ context.Context, iid int) error {
	c.logger.Info("simulated enabling merge when pipeline succeeds",
		logfields.Event("dry_run_merge_request_accept_simulated"),
		logfields.MergeRequest(iid),
	)
	return nil
}

func (c *DryClient) CreateIssue(_ context.Context, title, description string, labels []string) (*Issue, error) {
	c.logger.Info("simulated creating issue, no issue created on gitlab",
		logfields.Event("dry_run_issue_creation_simulated"),
		zap.String("title", title),
	)

	return &Issue{Title: title, Description: description, Labels: labels}, nil
}

func (c *DryClient) UpdateIssueDescription(_ context.Context, iid int, _ string) error {
	c.logger.Info("simulated updating issue description",
		logfields.Event("dry_run_issue_update_simulated"),
		logfields.Issue(iid),
	)
	return nil
}
