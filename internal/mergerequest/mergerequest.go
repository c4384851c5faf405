// Package mergerequest reconciles the GitLab merge requests of dependency
// updates.
//
// For an update, the open merge requests of the dependency are searched.
// Merge requests proposing an other version are closed and their branches
// deleted. A merge request for the same version that can not be merged and
// was not modified manually is updated in place with the new files.
// Otherwise a new merge request is created, unless one for the version
// already exists.
package mergerequest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/gitlabclt"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/retry"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go . GitLabClient,ReleaseNotesSource

const loggerName = "merge_request_reconciler"

const (
	DefaultMergeStatusPollAttempts = 20
	DefaultMergeStatusPollInterval = 500 * time.Millisecond
)

// DependenciesLabel is added to all created merge requests.
const DependenciesLabel = "dependencies"

// ErrBranchChanged is returned when the branch of a merge request that is
// updated in place was changed since it was inspected.
var ErrBranchChanged = errors.New("merge request branch changed concurrently")

type GitLabClient interface {
	ListOpenMergeRequests(ctx context.Context, search string) ([]*gitlabclt.MergeRequest, error)
	GetMergeRequest(ctx context.Context, iid int) (*gitlabclt.MergeRequest, error)
	MergeRequestCommitCount(ctx context.Context, iid int) (int, error)
	BranchHead(ctx context.Context, branch string) (string, error)
	CommitFiles(ctx context.Context, c *gitlabclt.Commit) (string, error)
	CreateMergeRequest(ctx context.Context, mr *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error)
	CloseMergeRequest(ctx context.Context, iid int) error
	DeleteBranch(ctx context.Context, branch string) error
	ApproveMergeRequest(ctx context.Context, iid int) error
	MergeWhenPipelineSucceeds(ctx context.Context, iid int) error
}

type ReleaseNotesSource interface {
	ReleaseNotes(ctx context.Context, dep *deps.Dependency) (*ReleaseNotes, error)
}

type Config struct {
	PackageManager string
	// Language is added as label to created merge requests.
	Language     string
	Directory    string
	TargetBranch string
	// Labels are added to created merge requests in addition to
	// DependenciesLabel and Language.
	Labels      []string
	AssigneeIDs []int
	// Approve enables approving merge requests after they were created or
	// updated.
	Approve bool
	// AutoMerge enables merge when pipeline succeeds for merge requests
	// after they were created or updated.
	AutoMerge bool
}

// Action is the change a reconciliation did.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	// ActionUnchanged means that a merge request for the update exists
	// and was left untouched.
	ActionUnchanged Action = "unchanged"
)

// Outcome is the result of a reconciliation.
type Outcome struct {
	Action       Action
	MergeRequest *gitlabclt.MergeRequest
	// Closed contains the stale merge requests that were closed.
	Closed []*gitlabclt.MergeRequest
}

// Reconciler creates, updates and closes merge requests of dependency
// updates.
type Reconciler struct {
	clt          GitLabClient
	releaseNotes ReleaseNotesSource
	cfg          Config

	pollAttempts uint64
	pollInterval time.Duration

	logger *zap.Logger
}

type Option func(*Reconciler)

// WithMergeStatusPolling configures how often and in which interval the merge
// status of a merge request is retrieved while GitLab is computing it.
func WithMergeStatusPolling(attempts uint64, interval time.Duration) Option {
	return func(r *Reconciler) {
		r.pollAttempts = attempts
		r.pollInterval = interval
	}
}

// WithReleaseNotes includes release notes from src in merge request
// descriptions.
func WithReleaseNotes(src ReleaseNotesSource) Option {
	return func(r *Reconciler) {
		r.releaseNotes = src
	}
}

func New(clt GitLabClient, cfg *Config, opts ...Option) *Reconciler {
	r := Reconciler{
		clt:          clt,
		cfg:          *cfg,
		pollAttempts: DefaultMergeStatusPollAttempts,
		pollInterval: DefaultMergeStatusPollInterval,
		logger: zap.L().Named(loggerName).With(
			logfields.PackageManager(cfg.PackageManager),
			logfields.Directory(cfg.Directory),
		),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// existingMergeRequests is the classification of the open merge requests of
// a dependency.
type existingMergeRequests struct {
	stale []*gitlabclt.MergeRequest
	// updateCandidate is a merge request for the same version that
	// has conflicts and only contains the commit created by the
	// Reconciler.
	updateCandidate *gitlabclt.MergeRequest
	untouched       *gitlabclt.MergeRequest
}

// Reconcile ensures that a merge request proposing the updated dependencies
// with the content of files exists.
// updated[0] is the dependency the update was computed for, the following
// elements are the dependencies that had to be updated with it.
// baseCommit is the commit the dependency files were fetched from, commits
// of merge requests are based on it. If it is empty, they are based on the
// head of the target branch.
func (r *Reconciler) Reconcile(ctx context.Context, baseCommit string, updated []*deps.Dependency, files deps.Files) (*Outcome, error) {
	if len(updated) == 0 {
		return nil, errors.New("list of updated dependencies is empty")
	}

	dep := updated[0]
	version := targetVersion(dep)

	logger := r.logger.With(
		logfields.Dependency(dep.Name),
		logfields.DependencyVersion(dep.PreviousVersion),
		logfields.DependencyTargetVersion(version),
	)

	existing, err := r.classifyExisting(ctx, logger, dep.Name, version)
	if err != nil {
		return nil, err
	}

	outcome := Outcome{Closed: make([]*gitlabclt.MergeRequest, 0, len(existing.stale))}

	for _, mr := range existing.stale {
		if err := r.closeStale(ctx, logger, mr); err != nil {
			return nil, err
		}

		outcome.Closed = append(outcome.Closed, mr)
	}

	switch {
	case existing.updateCandidate != nil:
		mr, err := r.updateInPlace(ctx, logger, existing.updateCandidate, baseCommit, updated, files)
		if err != nil {
			if errors.Is(err, ErrBranchChanged) {
				logger.Info(
					"branch of merge request was changed, leaving it untouched",
					logfields.Event("merge_request_update_skipped_branch_changed"),
					logfields.MergeRequest(existing.updateCandidate.IID),
				)

				outcome.Action = ActionUnchanged
				outcome.MergeRequest = existing.updateCandidate

				return &outcome, nil
			}

			return nil, err
		}

		outcome.Action = ActionUpdated
		outcome.MergeRequest = mr

	case existing.untouched != nil:
		logger.Info(
			"merge request for the update exists, leaving it untouched",
			logfields.Event("merge_request_exists"),
			logfields.MergeRequest(existing.untouched.IID),
			logfields.URL(existing.untouched.WebURL),
		)

		outcome.Action = ActionUnchanged
		outcome.MergeRequest = existing.untouched

		return &outcome, nil

	default:
		mr, err := r.create(ctx, logger, baseCommit, updated, files)
		if err != nil {
			return nil, err
		}

		outcome.Action = ActionCreated
		outcome.MergeRequest = mr
	}

	r.runPostActions(ctx, logger, outcome.MergeRequest)

	return &outcome, nil
}

// matchingMergeRequests returns the open merge requests that were created
// for updates of depName in the configured directory.
// Merge requests of other dependencies that also update depName are not
// returned.
func (r *Reconciler) matchingMergeRequests(ctx context.Context, depName string) ([]*gitlabclt.MergeRequest, error) {
	mrs, err := r.clt.ListOpenMergeRequests(ctx, depName)
	if err != nil {
		return nil, fmt.Errorf("searching merge requests for %s failed: %w", depName, err)
	}

	result := make([]*gitlabclt.MergeRequest, 0, len(mrs))

	for _, mr := range mrs {
		if !titleMentionsDependency(mr.Title, depName) {
			continue
		}

		if !isDependencyBranch(mr.SourceBranch, r.cfg.PackageManager, r.cfg.Directory, depName) {
			continue
		}

		result = append(result, mr)
	}

	return result, nil
}

func (r *Reconciler) classifyExisting(ctx context.Context, logger *zap.Logger, depName, version string) (*existingMergeRequests, error) {
	mrs, err := r.matchingMergeRequests(ctx, depName)
	if err != nil {
		return nil, err
	}

	var result existingMergeRequests

	for _, mr := range mrs {
		logger := logger.With(logfields.MergeRequest(mr.IID), logfields.Branch(mr.SourceBranch))

		if !proposesVersion(mr.Title, mr.SourceBranch, version) {
			logger.Debug("found stale merge request", logfields.Event("merge_request_stale"))
			result.stale = append(result.stale, mr)
			continue
		}

		if result.updateCandidate != nil || result.untouched != nil {
			logger.Warn(
				"found multiple merge requests for the same update, ignoring merge request",
				logfields.Event("merge_request_duplicate"),
			)
			continue
		}

		mr, err := r.waitForMergeStatus(ctx, logger, mr)
		if err != nil {
			return nil, err
		}

		if mr.MergeStatus == gitlabclt.MergeStatusCanBeMerged {
			result.untouched = mr
			continue
		}

		cnt, err := r.clt.MergeRequestCommitCount(ctx, mr.IID)
		if err != nil {
			return nil, err
		}

		if cnt != 1 {
			logger.Debug(
				"merge request was modified, it will not be updated",
				logfields.Event("merge_request_modified"),
				zap.Int("commit_count", cnt),
			)

			result.untouched = mr
			continue
		}

		result.updateCandidate = mr
	}

	return &result, nil
}

// waitForMergeStatus retrieves the merge request until GitLab finished
// computing its merge status or the poll attempts are exhausted.
func (r *Reconciler) waitForMergeStatus(ctx context.Context, logger *zap.Logger, mr *gitlabclt.MergeRequest) (*gitlabclt.MergeRequest, error) {
	if !mr.MergeStatusPending() {
		return mr, nil
	}

	result, stillPending, err := retry.Poll(ctx, r.pollAttempts, r.pollInterval,
		func(ctx context.Context) (*gitlabclt.MergeRequest, bool, error) {
			current, err := r.clt.GetMergeRequest(ctx, mr.IID)
			if err != nil {
				return nil, false, err
			}

			return current, !current.MergeStatusPending(), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("retrieving merge status of merge request !%d failed: %w", mr.IID, err)
	}

	if stillPending {
		logger.Warn(
			"merge status is still being computed, proceeding with the last known status",
			logfields.Event("merge_request_merge_status_still_pending"),
			logfields.MergeStatus(result.MergeStatus),
			zap.Uint64("poll_attempts", r.pollAttempts),
		)
	}

	return result, nil
}

func (r *Reconciler) closeStale(ctx context.Context, logger *zap.Logger, mr *gitlabclt.MergeRequest) error {
	if err := r.clt.CloseMergeRequest(ctx, mr.IID); err != nil {
		return err
	}

	if err := r.clt.DeleteBranch(ctx, mr.SourceBranch); err != nil {
		return err
	}

	logger.Info(
		"closed stale merge request",
		logfields.Event("merge_request_closed"),
		logfields.MergeRequest(mr.IID),
		logfields.Branch(mr.SourceBranch),
		zap.String("title", mr.Title),
	)

	return nil
}

func (r *Reconciler) updateInPlace(
	ctx context.Context,
	logger *zap.Logger,
	mr *gitlabclt.MergeRequest,
	baseCommit string,
	updated []*deps.Dependency,
	files deps.Files,
) (*gitlabclt.MergeRequest, error) {
	head, err := r.clt.BranchHead(ctx, mr.SourceBranch)
	if err != nil {
		return nil, err
	}

	if head != mr.SHA {
		return nil, fmt.Errorf("branch %s points to %s, expected %s: %w", mr.SourceBranch, head, mr.SHA, ErrBranchChanged)
	}

	sha, err := r.clt.CommitFiles(ctx, &gitlabclt.Commit{
		Branch:      mr.SourceBranch,
		StartBranch: mr.TargetBranch,
		StartSHA:    baseCommit,
		Message:     CommitMessage(updated, r.cfg.Directory),
		Files:       files,
		Force:       true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(
		"updated merge request",
		logfields.Event("merge_request_updated"),
		logfields.MergeRequest(mr.IID),
		logfields.BaseBranch(mr.TargetBranch),
		logfields.Commit(sha),
		logfields.URL(mr.WebURL),
	)

	result := *mr
	result.SHA = sha

	return &result, nil
}

func (r *Reconciler) create(ctx context.Context, logger *zap.Logger, baseCommit string, updated []*deps.Dependency, files deps.Files) (*gitlabclt.MergeRequest, error) {
	branch := BranchName(r.cfg.PackageManager, r.cfg.Directory, updated[0])

	description, err := Description(updated, r.fetchReleaseNotes(ctx, logger, updated[0]))
	if err != nil {
		return nil, err
	}

	sha, err := r.clt.CommitFiles(ctx, &gitlabclt.Commit{
		Branch:      branch,
		StartBranch: r.cfg.TargetBranch,
		StartSHA:    baseCommit,
		Message:     CommitMessage(updated, r.cfg.Directory),
		Files:       files,
		Force:       true,
	})
	if err != nil {
		return nil, err
	}

	mr, err := r.clt.CreateMergeRequest(ctx, &gitlabclt.NewMergeRequest{
		Title:              Title(updated, r.cfg.Directory),
		Description:        description,
		SourceBranch:       branch,
		TargetBranch:       r.cfg.TargetBranch,
		Labels:             r.labels(),
		AssigneeIDs:        r.cfg.AssigneeIDs,
		RemoveSourceBranch: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(
		"created merge request",
		logfields.Event("merge_request_created"),
		logfields.MergeRequest(mr.IID),
		logfields.Branch(branch),
		logfields.BaseBranch(r.cfg.TargetBranch),
		logfields.Commit(sha),
		logfields.URL(mr.WebURL),
	)

	return mr, nil
}

func (r *Reconciler) labels() []string {
	result := make([]string, 0, 2+len(r.cfg.Labels))
	seen := make(map[string]struct{}, cap(result))

	for _, l := range append([]string{DependenciesLabel, r.cfg.Language}, r.cfg.Labels...) {
		if l == "" {
			continue
		}

		if _, exists := seen[l]; exists {
			continue
		}

		seen[l] = struct{}{}
		result = append(result, l)
	}

	return result
}

func (r *Reconciler) fetchReleaseNotes(ctx context.Context, logger *zap.Logger, dep *deps.Dependency) *ReleaseNotes {
	if r.releaseNotes == nil {
		return nil
	}

	notes, err := r.releaseNotes.ReleaseNotes(ctx, dep)
	if err != nil {
		logger.Info(
			"retrieving release notes failed, description will not contain them",
			logfields.Event("release_notes_retrieval_failed"),
			zap.Error(err),
		)
	}

	return notes
}

// runPostActions approves and enables merge when pipeline succeeds for
// the merge request if it is configured. Failures are logged.
func (r *Reconciler) runPostActions(ctx context.Context, logger *zap.Logger, mr *gitlabclt.MergeRequest) {
	logger = logger.With(logfields.MergeRequest(mr.IID))

	if r.cfg.Approve {
		if err := r.clt.ApproveMergeRequest(ctx, mr.IID); err != nil {
			logger.Warn(
				"approving merge request failed",
				logfields.Event("merge_request_approval_failed"),
				zap.Error(err),
			)
		} else {
			logger.Info("approved merge request", logfields.Event("merge_request_approved"))
		}
	}

	if r.cfg.AutoMerge {
		if err := r.clt.MergeWhenPipelineSucceeds(ctx, mr.IID); err != nil {
			logger.Warn(
				"enabling merge when pipeline succeeds failed",
				logfields.Event("merge_request_auto_merge_failed"),
				zap.Error(err),
			)
		} else {
			logger.Info(
				"enabled merge when pipeline succeeds",
				logfields.Event("merge_request_auto_merge_enabled"),
			)
		}
	}
}
