package gitlabclt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/retry"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

const testProject = "1234"

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	retryer := retry.NewRetryer()
	t.Cleanup(retryer.Stop)

	clt, err := New(srv.URL, "secret", testProject, retryer)
	require.NoError(t, err)

	return clt
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestReadFileReturnsErrFileNotFound(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/repository/files/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"404 File Not Found"}`)
	})

	clt := newTestClient(t, mux)

	_, err := clt.ReadFile(context.Background(), "Gemfile.lock", "main")
	require.ErrorIs(t, err, deps.ErrFileNotFound)
}

func TestReadFileSendsRefAndToken(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/repository/files/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))
		assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
		_, _ = io.WriteString(w, "source 'https://rubygems.org'\n")
	})

	clt := newTestClient(t, mux)

	content, err := clt.ReadFile(context.Background(), "Gemfile", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "source 'https://rubygems.org'\n", string(content))
}

func TestListOpenMergeRequestsFollowsPagination(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "opened", r.URL.Query().Get("state"))
		assert.Equal(t, "rack", r.URL.Query().Get("search"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 1 {
			w.Header().Set("X-Next-Page", "2")
		}

		writeJSON(t, w, []map[string]any{
			{
				"iid":           page,
				"title":         fmt.Sprintf("Bump rack from 2.%d to 3.0", page),
				"source_branch": fmt.Sprintf("dependabot/bundler/rack-%d", page),
				"target_branch": "main",
				"sha":           "sha" + strconv.Itoa(page),
				"merge_status":  "can_be_merged",
			},
		})
	})

	clt := newTestClient(t, mux)

	mrs, err := clt.ListOpenMergeRequests(context.Background(), "rack")
	require.NoError(t, err)
	require.Len(t, mrs, 2)

	assert.Equal(t, 1, mrs[0].IID)
	assert.Equal(t, "Bump rack from 2.1 to 3.0", mrs[0].Title)
	assert.Equal(t, "dependabot/bundler/rack-1", mrs[0].SourceBranch)
	assert.Equal(t, "sha1", mrs[0].SHA)
	assert.Equal(t, MergeStatusCanBeMerged, mrs[0].MergeStatus)
	assert.Equal(t, 2, mrs[1].IID)
}

func TestMergeRequestCommitCount(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/merge_requests/7/commits", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []map[string]any{{"id": "a"}, {"id": "b"}})
	})

	clt := newTestClient(t, mux)

	cnt, err := clt.MergeRequestCommitCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
}

func TestCommitFilesSendsUpdateActions(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/repository/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Branch        string `json:"branch"`
			CommitMessage string `json:"commit_message"`
			StartBranch   string `json:"start_branch"`
			Force         bool   `json:"force"`
			Actions       []struct {
				Action   string `json:"action"`
				FilePath string `json:"file_path"`
				Content  string `json:"content"`
			} `json:"actions"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "dependabot/bundler/rack-3.0.8", body.Branch)
		assert.Equal(t, "Bump rack from 2.2.8 to 3.0.8", body.CommitMessage)
		assert.Equal(t, "main", body.StartBranch)
		assert.True(t, body.Force)
		if assert.Len(t, body.Actions, 2) {
			assert.Equal(t, "update", body.Actions[0].Action)
			assert.Equal(t, "backend/Gemfile", body.Actions[0].FilePath)
			assert.Equal(t, "gem 'rack'", body.Actions[0].Content)
			assert.Equal(t, "backend/Gemfile.lock", body.Actions[1].FilePath)
		}

		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]any{"id": "c0ffee"})
	})

	clt := newTestClient(t, mux)

	sha, err := clt.CommitFiles(context.Background(), &Commit{
		Branch:      "dependabot/bundler/rack-3.0.8",
		StartBranch: "main",
		Message:     "Bump rack from 2.2.8 to 3.0.8",
		Force:       true,
		Files: deps.Files{
			{Name: "Gemfile", Directory: "/backend", Content: "gem 'rack'"},
			{Name: "Gemfile.lock", Directory: "/backend", Content: "GEM"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", sha)
}

func TestCommitFilesPrefersStartSHA(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/repository/commits", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "fetchedsha", body["start_sha"])
		assert.NotContains(t, body, "start_branch")

		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]any{"id": "c0ffee"})
	})

	clt := newTestClient(t, mux)

	_, err := clt.CommitFiles(context.Background(), &Commit{
		Branch:      "dependabot/bundler/rack-3.0.8",
		StartBranch: "main",
		StartSHA:    "fetchedsha",
		Message:     "Bump rack from 2.2.8 to 3.0.8",
		Force:       true,
		Files:       deps.Files{{Name: "Gemfile.lock", Directory: "/", Content: "GEM"}},
	})
	require.NoError(t, err)
}

func TestCreateMergeRequestSendsLabelsAndAssignees(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/merge_requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "Bump rack from 2.2.8 to 3.0.8", body["title"])
		assert.Equal(t, "dependencies,ruby", body["labels"])
		assert.Equal(t, []any{float64(3), float64(5)}, body["assignee_ids"])
		assert.Equal(t, true, body["remove_source_branch"])

		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]any{
			"iid":     11,
			"title":   body["title"],
			"web_url": "https://gitlab.example.com/grp/prj/-/merge_requests/11",
		})
	})

	clt := newTestClient(t, mux)

	mr, err := clt.CreateMergeRequest(context.Background(), &NewMergeRequest{
		Title:              "Bump rack from 2.2.8 to 3.0.8",
		Description:        "Bumps rack",
		SourceBranch:       "dependabot/bundler/rack-3.0.8",
		TargetBranch:       "main",
		Labels:             []string{"dependencies", "ruby"},
		AssigneeIDs:        []int{3, 5},
		RemoveSourceBranch: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, mr.IID)
	assert.Equal(t, "https://gitlab.example.com/grp/prj/-/merge_requests/11", mr.WebURL)
}

func TestDeleteNonExistingBranchSucceeds(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/repository/branches/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"404 Branch Not Found"}`)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.DeleteBranch(context.Background(), "dependabot/bundler/rack-3.0.8"))
}

func TestCloseMergeRequestSendsStateEvent(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var called bool

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/merge_requests/4", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPut, r.Method)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "close", body["state_event"])

		writeJSON(t, w, map[string]any{"iid": 4, "state": "closed"})
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.CloseMergeRequest(context.Background(), 4))
	assert.True(t, called)
}

func TestListOpenIssuesRestrictsSearchToTitle(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/projects/"+testProject+"/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "title", r.URL.Query().Get("in"))
		assert.Equal(t, "dependencies,dashboard", r.URL.Query().Get("labels"))

		writeJSON(t, w, []map[string]any{
			{
				"iid":         2,
				"title":       "Dependencies Dashboard (bundler)",
				"description": "old",
				"labels":      []string{"dependencies", "dashboard", "bundler"},
			},
		})
	})

	clt := newTestClient(t, mux)

	issues, err := clt.ListOpenIssues(context.Background(), "Dependencies Dashboard", []string{"dependencies", "dashboard"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].IID)
	assert.Equal(t, "old", issues[0].Description)
	assert.Equal(t, []string{"dependencies", "dashboard", "bundler"}, issues[0].Labels)
}

func TestWrapRetryableErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	resetTime := time.Now().Add(time.Hour).Truncate(time.Second)

	tcs := []struct {
		name          string
		statusCode    int
		header        map[string]string
		retryable     bool
		expectedAfter time.Time
	}{
		{
			name:          "rate limit exceeded",
			statusCode:    http.StatusTooManyRequests,
			header:        map[string]string{headerRateLimitReset: strconv.FormatInt(resetTime.Unix(), 10)},
			retryable:     true,
			expectedAfter: resetTime,
		},
		{
			name:       "internal server error",
			statusCode: http.StatusInternalServerError,
			retryable:  true,
		},
		{
			name:       "bad gateway",
			statusCode: http.StatusBadGateway,
			retryable:  true,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v4/projects/"+testProject, func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.statusCode)
				_, _ = io.WriteString(w, `{"message":"failed"}`)
			})

			clt := newTestClient(t, mux)

			_, _, err := clt.clt.Projects.GetProject(testProject, nil, gitlab.WithContext(context.Background()))
			require.Error(t, err)

			err = clt.wrapRetryableErrors(context.Background(), err)

			if !tc.retryable {
				var retryErr *updateerr.RetryableError
				require.False(t, errors.As(err, &retryErr), "error should not be retryable: %s", err)
				return
			}

			var retryErr *updateerr.RetryableError
			require.ErrorAs(t, err, &retryErr)
			assert.True(t, tc.expectedAfter.Equal(retryErr.After), "expected After %s, got %s", tc.expectedAfter, retryErr.After)
		})
	}
}

func TestWrapRetryableErrorsNetworkError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.NotFoundHandler())
	srvURL := srv.URL
	srv.Close()

	retryer := retry.NewRetryer()
	t.Cleanup(retryer.Stop)

	clt, err := New(srvURL, "secret", testProject, retryer)
	require.NoError(t, err)

	_, _, err = clt.clt.Projects.GetProject(testProject, nil)
	require.Error(t, err)

	var retryErr *updateerr.RetryableError
	require.ErrorAs(t, clt.wrapRetryableErrors(context.Background(), err), &retryErr)
	assert.True(t, retryErr.After.IsZero())
}

func TestRateLimitResetFallsBackToRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set(headerRetryAfter, "30")

	ts := rateLimitReset(h)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), ts, 5*time.Second)

	assert.True(t, rateLimitReset(http.Header{}).IsZero())
}

func TestDryClientDoesNotSendWriteRequests(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		w.WriteHeader(http.StatusInternalServerError)
	})

	clt := NewDryClient(newTestClient(t, mux))
	ctx := context.Background()

	sha, err := clt.CommitFiles(ctx, &Commit{Branch: "dependabot/pip/requests-2.31.0"})
	require.NoError(t, err)
	assert.NotEmpty(t, sha)

	mr, err := clt.CreateMergeRequest(ctx, &NewMergeRequest{Title: "Bump requests", SourceBranch: "b", TargetBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, "Bump requests", mr.Title)

	require.NoError(t, clt.CloseMergeRequest(ctx, 1))
	require.NoError(t, clt.DeleteBranch(ctx, "b"))
	require.NoError(t, clt.ApproveMergeRequest(ctx, 1))
	require.NoError(t, clt.MergeWhenPipelineSucceeds(ctx, 1))

	is, err := clt.CreateIssue(ctx, "Dependencies Dashboard (pip)", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, "body", is.Description)
	require.NoError(t, clt.UpdateIssueDescription(ctx, 1, "body"))
}
