package bundler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/registry"
	"github.com/simplesurance/depupdater/internal/retry"
)

const e2eGemfile = `source "https://rubygems.org"

gem "actionpack", "~> 7.0"
gem "rack", "~> 2.2"
`

const e2eLockfile = `GEM
  remote: https://rubygems.org/
  specs:
    actionpack (7.0.4)
      rack (~> 2.0, >= 2.2.0)
    rack (2.2.8)

PLATFORMS
  ruby

DEPENDENCIES
  actionpack (~> 7.0)
  rack (~> 2.2)

BUNDLED WITH
   2.4.19
`

var rubyGemsResponses = map[string]string{
	"/api/v1/versions/rack.json": `[
		{"number": "3.1.0.beta1", "platform": "ruby", "prerelease": true},
		{"number": "3.0.8", "platform": "ruby"},
		{"number": "3.0.8", "platform": "java"},
		{"number": "2.2.8", "platform": "ruby"}
	]`,
	"/api/v1/versions/actionpack.json":             `[{"number": "7.1.2"}, {"number": "7.0.4"}]`,
	"/api/v2/rubygems/actionpack/versions/7.1.2.json": `{"dependencies": {"runtime": [
		{"name": "rack-test", "requirements": ">= 0.6.3"},
		{"name": "rack", "requirements": ">= 2.2.4"}
	]}}`,
	"/api/v2/rubygems/rack/versions/3.0.8.json": `{"dependencies": {"runtime": []}}`,
	"/api/v1/gems/rack.json":                    `{"source_code_uri": "https://github.com/rack/rack/tree/v3.0.8", "homepage_uri": "https://github.com/rack/rack"}`,
}

func newTestEcosystem(t *testing.T) *Ecosystem {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, ok := rubyGemsResponses[r.URL.Path]
		if !ok {
			t.Logf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)

	retryer := retry.NewRetryer()
	t.Cleanup(retryer.Stop)

	return New(registry.New(nil, retryer), srv.URL)
}

func testFiles() deps.Files {
	return deps.Files{
		{Name: gemfileName, Directory: "/", Content: e2eGemfile},
		{Name: lockfileName, Directory: "/", Content: e2eLockfile},
	}
}

func findDependency(t *testing.T, all []*deps.Dependency, name string) *deps.Dependency {
	t.Helper()

	for _, d := range all {
		if d.Name == name {
			return d
		}
	}

	t.Fatalf("dependency %s not found", name)
	return nil
}

func TestParserReturnsTopLevelDependenciesWithLockedVersions(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	eco := newTestEcosystem(t)

	all, err := eco.NewParser(testFiles()).Parse(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "actionpack", all[0].Name)
	assert.Equal(t, "7.0.4", all[0].Version)
	assert.True(t, all[0].TopLevel)
	assert.Equal(t, "rack", all[1].Name)
	assert.Equal(t, "~> 2.2", all[1].Requirements[0].Requirement)
}

func TestUpdateBlockedGemRequiresUnlockingAll(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	ctx := context.Background()
	eco := newTestEcosystem(t)
	files := testFiles()

	all, err := eco.NewParser(files).Parse(ctx)
	require.NoError(t, err)

	checker := eco.NewUpdateChecker(findDependency(t, all, "rack"), files, nil)

	latest, err := checker.LatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.0.8", latest)

	assert.True(t, checker.RequirementsUnlockedOrCanBe())

	for _, st := range []deps.UnlockStrategy{deps.UnlockNone, deps.UnlockOwn} {
		ok, err := checker.CanUpdate(ctx, st)
		require.NoError(t, err)
		assert.Falsef(t, ok, "strategy %s", st)
	}

	ok, err := checker.CanUpdate(ctx, deps.UnlockAll)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := checker.UpdatedDependencies(ctx, deps.UnlockAll)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "~> 3.0", updated[0].Requirements[0].Requirement)
	assert.Equal(t, "actionpack", updated[1].Name)
	assert.Equal(t, "7.1.2", updated[1].Version)

	changed, err := eco.NewFileUpdater(updated, files).UpdatedDependencyFiles(ctx)
	require.NoError(t, err)
	require.Len(t, changed, 2)

	gemfile := changed.Get(gemfileName)
	require.NotNil(t, gemfile)
	assert.Contains(t, gemfile.Content, `gem "rack", "~> 3.0"`)
	assert.Contains(t, gemfile.Content, `gem "actionpack", "~> 7.0"`)

	lockfile := changed.Get(lockfileName)
	require.NotNil(t, lockfile)
	assert.Contains(t, lockfile.Content, "    actionpack (7.1.2)\n      rack (>= 2.2.4)\n      rack-test (>= 0.6.3)\n    rack (3.0.8)\n\n")
	assert.Contains(t, lockfile.Content, "  rack (~> 3.0)\n")
	assert.Contains(t, lockfile.Content, "  actionpack (~> 7.0)\n")
}

func TestSourceURL(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	u, err := newTestEcosystem(t).SourceURL(context.Background(), &deps.Dependency{Name: "rack"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/rack/rack/tree/v3.0.8", u)
}
