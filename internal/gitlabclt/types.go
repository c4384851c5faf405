package gitlabclt

import (
	"github.com/xanzy/go-gitlab"

	"github.com/simplesurance/depupdater/internal/deps"
)

// Merge statuses of a merge request as reported in the merge_status field.
const (
	MergeStatusCanBeMerged = "can_be_merged"
	MergeStatusChecking    = "checking"
	MergeStatusUnchecked   = "unchecked"
)

type MergeRequest struct {
	IID          int
	Title        string
	SourceBranch string
	TargetBranch string
	// SHA is the id of the head commit of the source branch.
	SHA         string
	MergeStatus string
	WebURL      string
}

func newMergeRequest(mr *gitlab.MergeRequest) *MergeRequest {
	return &MergeRequest{
		IID:          mr.IID,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		SHA:          mr.SHA,
		MergeStatus:  mr.MergeStatus,
		WebURL:       mr.WebURL,
	}
}

// MergeStatusPending returns true if GitLab has not finished computing if
// the merge request can be merged.
func (mr *MergeRequest) MergeStatusPending() bool {
	return mr.MergeStatus == MergeStatusChecking || mr.MergeStatus == MergeStatusUnchecked
}

type NewMergeRequest struct {
	Title              string
	Description        string
	SourceBranch       string
	TargetBranch       string
	Labels             []string
	AssigneeIDs        []int
	RemoveSourceBranch bool
}

type Issue struct {
	IID         int
	Title       string
	Description string
	WebURL      string
	Labels      []string
}

func newIssue(is *gitlab.Issue) *Issue {
	return &Issue{
		IID:         is.IID,
		Title:       is.Title,
		Description: is.Description,
		WebURL:      is.WebURL,
		Labels:      is.Labels,
	}
}

// Commit describes a commit that updates dependency files.
type Commit struct {
	Branch      string
	StartBranch string
	// StartSHA is the commit the new commit is based on, it takes
	// precedence over StartBranch.
	StartSHA string
	Message  string
	Files    deps.Files
	// Force overwrites Branch with the new commit when StartBranch or
	// StartSHA is set.
	Force bool
}
