package mergerequest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/githubclt"
	"github.com/simplesurance/depupdater/internal/gitlabclt"
	"github.com/simplesurance/depupdater/internal/mergerequest"
	"github.com/simplesurance/depupdater/internal/mergerequest/mocks"
)

const (
	pollAttempts = 3
	branch       = "dependabot/bundler/rack-3.0.8"
	title        = "Bump rack from 2.2.8 to 3.0.8"
	baseCommit   = "fetchedsha"
)

func updatedDeps() []*deps.Dependency {
	return []*deps.Dependency{
		{Name: "rack", Version: "3.0.8", PreviousVersion: "2.2.8", PackageManager: "bundler", TopLevel: true},
	}
}

func updatedFiles() deps.Files {
	return deps.Files{
		{Name: "Gemfile.lock", Directory: "/", Content: "GEM\n  specs:\n    rack (3.0.8)\n"},
	}
}

func newReconciler(clt mergerequest.GitLabClient, mod func(*mergerequest.Config), opts ...mergerequest.Option) *mergerequest.Reconciler {
	cfg := mergerequest.Config{
		PackageManager: "bundler",
		Language:       "ruby",
		Directory:      "/",
		TargetBranch:   "main",
		Labels:         []string{"bot", "dependencies"},
		AssigneeIDs:    []int{3},
	}

	if mod != nil {
		mod(&cfg)
	}

	return mergerequest.New(
		clt,
		&cfg,
		append([]mergerequest.Option{mergerequest.WithMergeStatusPolling(pollAttempts, time.Millisecond)}, opts...)...,
	)
}

func expectCreate(t *testing.T, clt *mocks.MockGitLabClient) (commit, create *gomock.Call) {
	commit = clt.EXPECT().
		CommitFiles(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *gitlabclt.Commit) (string, error) {
			assert.Equal(t, branch, c.Branch)
			assert.Equal(t, "main", c.StartBranch)
			assert.Equal(t, baseCommit, c.StartSHA)
			assert.True(t, c.Force)
			assert.Equal(t, title+"\n", c.Message)
			assert.Equal(t, updatedFiles(), c.Files)
			return "newsha", nil
		})

	create = clt.EXPECT().
		CreateMergeRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, mr *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error) {
			assert.Equal(t, title, mr.Title)
			assert.Equal(t, branch, mr.SourceBranch)
			assert.Equal(t, "main", mr.TargetBranch)
			assert.Equal(t, []string{"dependencies", "ruby", "bot"}, mr.Labels)
			assert.Equal(t, []int{3}, mr.AssigneeIDs)
			assert.True(t, mr.RemoveSourceBranch)

			return &gitlabclt.MergeRequest{
				IID:          42,
				Title:        mr.Title,
				SourceBranch: mr.SourceBranch,
				TargetBranch: mr.TargetBranch,
				SHA:          "newsha",
			}, nil
		}).
		After(commit)

	return commit, create
}

func TestCreatesMergeRequestWhenNoneExists(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().
		ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).
		Return([]*gitlabclt.MergeRequest{
			{IID: 1, Title: "Bump rack-test from 1.1.0 to 2.1.0", SourceBranch: "dependabot/bundler/rack-test-2.1.0"},
			{IID: 2, Title: "Bump rack from 2.2.8 to 3.0.0", SourceBranch: "feature/rack"},
			{IID: 3, Title: "Bump rack from 2.2.8 to 3.0.0", SourceBranch: "dependabot/pip/rack-3.0.0"},
		}, nil)

	expectCreate(t, clt)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
	assert.Equal(t, 42, outcome.MergeRequest.IID)
	assert.Empty(t, outcome.Closed)
}

func TestStaleMergeRequestIsClosedBeforeCreatingNew(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	stale := gitlabclt.MergeRequest{
		IID:          7,
		Title:        "Bump rack from 2.2.8 to 3.0.7",
		SourceBranch: "dependabot/bundler/rack-3.0.7",
		MergeStatus:  gitlabclt.MergeStatusCanBeMerged,
	}

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{&stale}, nil)

	closeCall := clt.EXPECT().CloseMergeRequest(gomock.Any(), gomock.Eq(7)).Return(nil)
	deleteCall := clt.EXPECT().DeleteBranch(gomock.Any(), gomock.Eq("dependabot/bundler/rack-3.0.7")).Return(nil).After(closeCall)
	commitCall, _ := expectCreate(t, clt)
	commitCall.After(deleteCall)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
	require.Len(t, outcome.Closed, 1)
	assert.Equal(t, 7, outcome.Closed[0].IID)
}

func TestMergeRequestOfOtherDependencyUpdatingItIsNotClosed(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{
			IID:          7,
			Title:        "Bump rails and rack",
			SourceBranch: "dependabot/bundler/rails-7.1.0",
			MergeStatus:  gitlabclt.MergeStatusCanBeMerged,
		},
	}, nil)
	clt.EXPECT().CloseMergeRequest(gomock.Any(), gomock.Any()).Times(0)
	clt.EXPECT().DeleteBranch(gomock.Any(), gomock.Any()).Times(0)
	expectCreate(t, clt)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
	assert.Empty(t, outcome.Closed)
}

func TestMergeRequestsOfOtherDirectoriesAreIgnored(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	const dirBranch = "dependabot/bundler/services/b/rack-3.0.8"
	const dirTitle = "Bump rack from 2.2.8 to 3.0.8 in /services/b"

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{
			IID:          5,
			Title:        "Bump rack from 2.2.8 to 3.0.8 in /services/a",
			SourceBranch: "dependabot/bundler/services/a/rack-3.0.8",
			SHA:          "oldsha",
			MergeStatus:  "cannot_be_merged",
		},
		{
			IID:          6,
			Title:        "Bump rack from 2.2.8 to 3.0.7 in /services/a",
			SourceBranch: "dependabot/bundler/services/a/rack-3.0.7",
			MergeStatus:  gitlabclt.MergeStatusCanBeMerged,
		},
		{
			IID:          8,
			Title:        "Bump rack from 2.2.8 to 3.0.7",
			SourceBranch: "dependabot/bundler/rack-3.0.7",
			MergeStatus:  gitlabclt.MergeStatusCanBeMerged,
		},
	}, nil)
	clt.EXPECT().MergeRequestCommitCount(gomock.Any(), gomock.Any()).Times(0)
	clt.EXPECT().CloseMergeRequest(gomock.Any(), gomock.Any()).Times(0)
	clt.EXPECT().DeleteBranch(gomock.Any(), gomock.Any()).Times(0)
	clt.EXPECT().
		CommitFiles(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *gitlabclt.Commit) (string, error) {
			assert.Equal(t, dirBranch, c.Branch)
			return "newsha", nil
		})
	clt.EXPECT().
		CreateMergeRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, mr *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error) {
			assert.Equal(t, dirTitle, mr.Title)
			assert.Equal(t, dirBranch, mr.SourceBranch)
			return &gitlabclt.MergeRequest{IID: 9, Title: mr.Title, SourceBranch: mr.SourceBranch}, nil
		})

	rec := newReconciler(clt, func(cfg *mergerequest.Config) { cfg.Directory = "/services/b" })

	outcome, err := rec.Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
	assert.Equal(t, 9, outcome.MergeRequest.IID)
	assert.Empty(t, outcome.Closed)
}

func TestStaleMergeRequestOfSameDirectoryIsClosed(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{
			IID:          6,
			Title:        "Bump rack from 2.2.8 to 3.0.7 in /services/b",
			SourceBranch: "dependabot/bundler/services/b/rack-3.0.7",
			MergeStatus:  gitlabclt.MergeStatusCanBeMerged,
		},
	}, nil)
	clt.EXPECT().CloseMergeRequest(gomock.Any(), gomock.Eq(6)).Return(nil)
	clt.EXPECT().DeleteBranch(gomock.Any(), gomock.Eq("dependabot/bundler/services/b/rack-3.0.7")).Return(nil)
	clt.EXPECT().CommitFiles(gomock.Any(), gomock.Any()).Return("newsha", nil)
	clt.EXPECT().CreateMergeRequest(gomock.Any(), gomock.Any()).Return(&gitlabclt.MergeRequest{IID: 9}, nil)

	rec := newReconciler(clt, func(cfg *mergerequest.Config) { cfg.Directory = "/services/b" })

	outcome, err := rec.Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	require.Len(t, outcome.Closed, 1)
	assert.Equal(t, 6, outcome.Closed[0].IID)
}

func TestConflictingMergeRequestWithSingleCommitIsUpdatedInPlace(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	existing := gitlabclt.MergeRequest{
		IID:          9,
		Title:        title,
		SourceBranch: branch,
		TargetBranch: "main",
		SHA:          "oldsha",
		MergeStatus:  "cannot_be_merged",
	}

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{&existing}, nil)
	clt.EXPECT().MergeRequestCommitCount(gomock.Any(), gomock.Eq(9)).Return(1, nil)
	clt.EXPECT().BranchHead(gomock.Any(), gomock.Eq(branch)).Return("oldsha", nil)
	clt.EXPECT().
		CommitFiles(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *gitlabclt.Commit) (string, error) {
			assert.Equal(t, branch, c.Branch)
			assert.Equal(t, "main", c.StartBranch)
			assert.Equal(t, baseCommit, c.StartSHA)
			assert.True(t, c.Force)
			return "newsha", nil
		})
	clt.EXPECT().CreateMergeRequest(gomock.Any(), gomock.Any()).Times(0)
	clt.EXPECT().ApproveMergeRequest(gomock.Any(), gomock.Eq(9)).Return(nil)
	clt.EXPECT().MergeWhenPipelineSucceeds(gomock.Any(), gomock.Eq(9)).Return(nil)

	rec := newReconciler(clt, func(cfg *mergerequest.Config) {
		cfg.Approve = true
		cfg.AutoMerge = true
	})

	outcome, err := rec.Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUpdated, outcome.Action)
	assert.Equal(t, 9, outcome.MergeRequest.IID)
	assert.Equal(t, "newsha", outcome.MergeRequest.SHA)
}

func TestMergeableMergeRequestIsLeftUntouched(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{IID: 9, Title: title, SourceBranch: branch, MergeStatus: gitlabclt.MergeStatusCanBeMerged},
	}, nil)

	rec := newReconciler(clt, func(cfg *mergerequest.Config) { cfg.Approve = true })

	outcome, err := rec.Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUnchanged, outcome.Action)
	assert.Equal(t, 9, outcome.MergeRequest.IID)
}

func TestManuallyModifiedMergeRequestIsLeftUntouched(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{IID: 9, Title: title, SourceBranch: branch, MergeStatus: "cannot_be_merged"},
	}, nil)
	clt.EXPECT().MergeRequestCommitCount(gomock.Any(), gomock.Eq(9)).Return(2, nil)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUnchanged, outcome.Action)
}

func TestMergeStatusIsPolledWhileChecking(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	checking := gitlabclt.MergeRequest{IID: 9, Title: title, SourceBranch: branch, MergeStatus: gitlabclt.MergeStatusChecking}
	mergeable := checking
	mergeable.MergeStatus = gitlabclt.MergeStatusCanBeMerged

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{&checking}, nil)
	gomock.InOrder(
		clt.EXPECT().GetMergeRequest(gomock.Any(), gomock.Eq(9)).Return(&checking, nil),
		clt.EXPECT().GetMergeRequest(gomock.Any(), gomock.Eq(9)).Return(&mergeable, nil),
	)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUnchanged, outcome.Action)
	assert.Equal(t, gitlabclt.MergeStatusCanBeMerged, outcome.MergeRequest.MergeStatus)
}

func TestMergeStatusPollingStopsAfterMaxAttempts(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	unchecked := gitlabclt.MergeRequest{
		IID:          9,
		Title:        title,
		SourceBranch: branch,
		TargetBranch: "main",
		SHA:          "oldsha",
		MergeStatus:  gitlabclt.MergeStatusUnchecked,
	}

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{&unchecked}, nil)
	clt.EXPECT().GetMergeRequest(gomock.Any(), gomock.Eq(9)).Return(&unchecked, nil).Times(pollAttempts)
	clt.EXPECT().MergeRequestCommitCount(gomock.Any(), gomock.Eq(9)).Return(1, nil)
	clt.EXPECT().BranchHead(gomock.Any(), gomock.Eq(branch)).Return("oldsha", nil)
	clt.EXPECT().CommitFiles(gomock.Any(), gomock.Any()).Return("newsha", nil)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUpdated, outcome.Action)
}

func TestChangedBranchIsNotOverwritten(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return([]*gitlabclt.MergeRequest{
		{IID: 9, Title: title, SourceBranch: branch, SHA: "oldsha", MergeStatus: "cannot_be_merged"},
	}, nil)
	clt.EXPECT().MergeRequestCommitCount(gomock.Any(), gomock.Eq(9)).Return(1, nil)
	clt.EXPECT().BranchHead(gomock.Any(), gomock.Eq(branch)).Return("pushedsha", nil)

	outcome, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUnchanged, outcome.Action)
	assert.Equal(t, 9, outcome.MergeRequest.IID)
}

func TestPostActionFailuresAreNotReturned(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("rack")).Return(nil, nil)
	expectCreate(t, clt)
	clt.EXPECT().ApproveMergeRequest(gomock.Any(), gomock.Eq(42)).Return(errors.New("403 Forbidden"))
	clt.EXPECT().MergeWhenPipelineSucceeds(gomock.Any(), gomock.Eq(42)).Return(errors.New("405 Method Not Allowed"))

	rec := newReconciler(clt, func(cfg *mergerequest.Config) {
		cfg.Approve = true
		cfg.AutoMerge = true
	})

	outcome, err := rec.Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)
	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
}

// TestVersionMatchingIsSubstringBased documents that an open merge request
// proposing 1.0.1 is taken as the merge request for an update to 1.0,
// because the title contains "1.0".
func TestVersionMatchingIsSubstringBased(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Eq("x")).Return([]*gitlabclt.MergeRequest{
		{IID: 5, Title: "Bump x from 0.9 to 1.0.1", SourceBranch: "dependabot/bundler/x-1.0.1", MergeStatus: gitlabclt.MergeStatusCanBeMerged},
	}, nil)

	outcome, err := newReconciler(clt, nil).Reconcile(
		context.Background(),
		baseCommit,
		[]*deps.Dependency{{Name: "x", Version: "1.0", PreviousVersion: "0.9"}},
		updatedFiles(),
	)
	require.NoError(t, err)

	assert.Equal(t, mergerequest.ActionUnchanged, outcome.Action)
	assert.Empty(t, outcome.Closed)
}

func TestDescriptionContainsReleaseNotes(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)
	notesSrc := mocks.NewMockReleaseNotesSource(mockctrl)

	notesSrc.EXPECT().ReleaseNotes(gomock.Any(), gomock.Any()).Return(&mergerequest.ReleaseNotes{
		SourceURL: "https://github.com/rack/rack",
		Release:   &githubclt.Release{Name: "3.0.8", URL: "https://github.com/rack/rack/releases/tag/v3.0.8", Description: "Fixes"},
	}, nil)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Any()).Return(nil, nil)
	clt.EXPECT().CommitFiles(gomock.Any(), gomock.Any()).Return("newsha", nil)
	clt.EXPECT().
		CreateMergeRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, mr *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error) {
			assert.Contains(t, mr.Description, "Bumps [rack](https://github.com/rack/rack) from 2.2.8 to 3.0.8.")
			assert.Contains(t, mr.Description, "> Fixes")
			return &gitlabclt.MergeRequest{IID: 1}, nil
		})

	_, err := newReconciler(clt, nil, mergerequest.WithReleaseNotes(notesSrc)).
		Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)
}

func TestReleaseNotesFailureDoesNotPreventCreation(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)
	notesSrc := mocks.NewMockReleaseNotesSource(mockctrl)

	notesSrc.EXPECT().ReleaseNotes(gomock.Any(), gomock.Any()).Return(nil, errors.New("rate limited"))
	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Any()).Return(nil, nil)
	expectCreate(t, clt)

	outcome, err := newReconciler(clt, nil, mergerequest.WithReleaseNotes(notesSrc)).
		Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.NoError(t, err)
	assert.Equal(t, mergerequest.ActionCreated, outcome.Action)
}

func TestCommitFailureIsReturned(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitLabClient(mockctrl)

	clt.EXPECT().ListOpenMergeRequests(gomock.Any(), gomock.Any()).Return(nil, nil)
	clt.EXPECT().CommitFiles(gomock.Any(), gomock.Any()).Return("", errors.New("400 Bad Request"))

	_, err := newReconciler(clt, nil).Reconcile(context.Background(), baseCommit, updatedDeps(), updatedFiles())
	require.Error(t, err)
}
