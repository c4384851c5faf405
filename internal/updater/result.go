package updater

import (
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/gitlabclt"
)

// Status is the result of processing a dependency.
type Status string

const (
	StatusUpToDate Status = "up_to_date"
	// StatusFiltered is the status of dependencies that did not match
	// the dependency filter.
	StatusFiltered Status = "filtered"
	// StatusSkipped is the status of dependencies that are outdated but
	// can not be updated with any of the permitted unlock strategies.
	StatusSkipped Status = "skipped"
	// StatusCapReached is the status of outdated dependencies for that no
	// merge request was reconciled because the maximum number of merge
	// requests was reached.
	StatusCapReached            Status = "cap_reached"
	StatusMergeRequestCreated   Status = "merge_request_created"
	StatusMergeRequestUpdated   Status = "merge_request_updated"
	StatusMergeRequestUnchanged Status = "merge_request_unchanged"
	StatusFailed                Status = "failed"
)

// Result describes how a dependency was processed.
type Result struct {
	Dependency *deps.Dependency
	Status     Status
	// Reason explains Status, it is set for StatusSkipped.
	Reason string
	// Err is set when Status is StatusFailed.
	Err error
	// LatestVersion is the version the dependency can be updated to, it
	// is empty when the dependency is up to date or failed before it was
	// determined.
	LatestVersion       string
	UnlockStrategy      deps.UnlockStrategy
	UpdatedDependencies []*deps.Dependency
	MergeRequest        *gitlabclt.MergeRequest
	// ClosedMergeRequests are the stale merge requests that were closed.
	ClosedMergeRequests []*gitlabclt.MergeRequest
}

// Summary contains the results of a run.
type Summary struct {
	StartTime time.Time
	EndTime   time.Time
	Results   []*Result
	// Stopped is true when the loop was stopped before all dependencies
	// were processed because the maximum number of merge requests was
	// reached.
	Stopped bool
}

// Count returns the number of results with the given status.
func (s *Summary) Count(status Status) int {
	var cnt int

	for _, r := range s.Results {
		if r.Status == status {
			cnt++
		}
	}

	return cnt
}

// MergeRequestsChanged returns the number of merge requests that were created
// or updated.
func (s *Summary) MergeRequestsChanged() int {
	return s.Count(StatusMergeRequestCreated) + s.Count(StatusMergeRequestUpdated)
}

func (s *Summary) LogFields() []zap.Field {
	return []zap.Field{
		zap.Duration("run_duration", s.EndTime.Sub(s.StartTime)),
		zap.Int("run.processed", len(s.Results)),
		zap.Int("run.up_to_date", s.Count(StatusUpToDate)),
		zap.Int("run.filtered", s.Count(StatusFiltered)),
		zap.Int("run.skipped", s.Count(StatusSkipped)),
		zap.Int("run.cap_reached", s.Count(StatusCapReached)),
		zap.Int("run.merge_requests_created", s.Count(StatusMergeRequestCreated)),
		zap.Int("run.merge_requests_updated", s.Count(StatusMergeRequestUpdated)),
		zap.Int("run.merge_requests_unchanged", s.Count(StatusMergeRequestUnchanged)),
		zap.Int("run.failures", s.Count(StatusFailed)),
		zap.Bool("run.stopped", s.Stopped),
	}
}
