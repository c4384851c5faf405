// Package updater runs the dependency update loop of a project.
//
// The dependency files are fetched and parsed once. Every top-level
// dependency is then checked for updates, the unlock strategy is chosen,
// the updated dependency files are computed and the merge request of the
// update is reconciled. Dependencies are processed sequentially, each one in
// its own error boundary.
package updater

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/dashboard"
	"github.com/simplesurance/depupdater/internal/depfilter"
	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/mergerequest"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go . Reconciler

const loggerName = "updater"

const reasonUpdateNotPossible = string(deps.UpdateNotPossible)

type Reconciler interface {
	Reconcile(ctx context.Context, baseCommit string, updated []*deps.Dependency, files deps.Files) (*mergerequest.Outcome, error)
}

type Config struct {
	Source                     deps.Source
	RequirementsUpdateStrategy deps.RequirementsUpdateStrategy
	ExcludedUnlockStrategies   map[deps.UnlockStrategy]struct{}
	IgnoredVersions            map[string][]string
	// DependencyFilter is a jq expression, dependencies for that it does
	// not evaluate to true are not updated.
	DependencyFilter string
	// MaxMergeRequests is the maximum number of merge requests that are
	// created or updated in a run, 0 is unlimited.
	MaxMergeRequests int
	// FailOnError aborts the run on the first dependency that can not be
	// processed.
	FailOnError bool
}

// Updater updates the dependencies of one package manager in one
// directory of a project.
type Updater struct {
	eco        deps.Ecosystem
	reader     deps.RepositoryReader
	reconciler Reconciler
	filter     *depfilter.Filter
	cfg        Config

	issueClt dashboard.IssueClient

	logger *zap.Logger
}

type Option func(*Updater)

// WithDashboard enables maintaining the dashboard issue of the package
// manager.
func WithDashboard(clt dashboard.IssueClient) Option {
	return func(u *Updater) {
		u.issueClt = clt
	}
}

func New(eco deps.Ecosystem, reader deps.RepositoryReader, reconciler Reconciler, cfg *Config, opts ...Option) (*Updater, error) {
	filter, err := depfilter.Parse(cfg.DependencyFilter)
	if err != nil {
		return nil, err
	}

	u := Updater{
		eco:        eco,
		reader:     reader,
		reconciler: reconciler,
		filter:     filter,
		cfg:        *cfg,
		logger: zap.L().Named(loggerName).With(
			logfields.PackageManager(eco.PackageManager()),
			logfields.Project(cfg.Source.Repo),
			logfields.Directory(cfg.Source.Directory),
		),
	}

	for _, opt := range opts {
		opt(&u)
	}

	return &u, nil
}

// runState is the state that is shared between the processing of the
// dependencies of a run.
type runState struct {
	files deps.Files
	// commit is the commit the dependency files were fetched from.
	commit    string
	dashboard *dashboard.Dashboard
	// mergeRequests is the number of created or updated merge requests.
	mergeRequests int
}

func (u *Updater) capReached(state *runState) bool {
	return u.cfg.MaxMergeRequests > 0 && state.mergeRequests >= u.cfg.MaxMergeRequests
}

// Run processes all top-level dependencies.
//
// An error is returned when the dependency files can not be retrieved or
// parsed, the dashboard can not be published, or when FailOnError is
// enabled and a dependency could not be processed. The returned Summary is
// non-nil when the dependency files were parsed successfully.
func (u *Updater) Run(ctx context.Context) (*Summary, error) {
	summary := Summary{StartTime: time.Now()}

	commit, files, dependencies, err := u.fetchDependencies(ctx)
	if err != nil {
		return nil, err
	}

	state := runState{commit: commit, files: files}
	if u.issueClt != nil {
		state.dashboard = dashboard.New(u.eco.PackageManager())
	}

	var runErr error

	for _, dep := range dependencies {
		if u.capReached(&state) && state.dashboard == nil {
			u.logger.Info(
				"maximum number of merge requests reached, stopping",
				logfields.Event("merge_request_limit_reached"),
				zap.Int("max_merge_requests", u.cfg.MaxMergeRequests),
			)

			summary.Stopped = true
			break
		}

		result := u.processDependency(ctx, dep, &state)
		summary.Results = append(summary.Results, result)
		metrics.DependencyProcessed(u.eco.PackageManager(), result.Status)

		if result.Status == StatusFailed {
			u.logFailure(result)

			if u.cfg.FailOnError {
				runErr = fmt.Errorf("processing dependency %s failed: %w", dep.Name, result.Err)
				break
			}
		}

		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
	}

	if runErr == nil && state.dashboard != nil {
		if _, err := state.dashboard.Publish(ctx, u.issueClt); err != nil {
			runErr = fmt.Errorf("publishing dashboard failed: %w", err)
		}
	}

	summary.EndTime = time.Now()

	u.logger.Info(
		"run finished",
		append([]zap.Field{logfields.Event("run_finished")}, summary.LogFields()...)...,
	)

	return &summary, runErr
}

func (u *Updater) fetchDependencies(ctx context.Context) (string, deps.Files, []*deps.Dependency, error) {
	src := u.cfg.Source

	u.logger.Info(
		"fetching dependency files",
		logfields.Event("dependency_files_fetching"),
		logfields.Branch(src.Branch),
	)

	fetcher := u.eco.NewFileFetcher(&src, u.reader)

	files, err := fetcher.Files(ctx)
	if err != nil {
		return "", nil, nil, fmt.Errorf("fetching dependency files of %s failed: %w", &src, err)
	}

	commit, err := fetcher.Commit(ctx)
	if err != nil {
		return "", nil, nil, fmt.Errorf("retrieving commit of dependency files failed: %w", err)
	}

	all, err := u.eco.NewParser(files).Parse(ctx)
	if err != nil {
		return "", nil, nil, fmt.Errorf("parsing dependency files failed: %w", err)
	}

	topLevel := deps.TopLevel(all)

	u.logger.Info(
		"parsed dependency files",
		logfields.Event("dependency_files_parsed"),
		logfields.Commit(commit),
		zap.Int("dependencies", len(all)),
		zap.Int("top_level_dependencies", len(topLevel)),
	)

	return commit, files, topLevel, nil
}

func (u *Updater) logFailure(result *Result) {
	logger := u.logger.With(logfields.Dependency(result.Dependency.Name))

	var panicErr *updateerr.PanicError
	if errors.As(result.Err, &panicErr) {
		logger.Error(
			"processing dependency panicked",
			logfields.Event("dependency_processing_panicked"),
			zap.Error(result.Err),
			zap.ByteString("stacktrace", panicErr.Stack),
		)
		return
	}

	logger.Error(
		"processing dependency failed",
		logfields.Event("dependency_processing_failed"),
		zap.Error(result.Err),
	)
}

// processDependency runs the update of dep. Errors and panics are returned
// as result with StatusFailed.
func (u *Updater) processDependency(ctx context.Context, dep *deps.Dependency, state *runState) (result *Result) {
	result = &Result{Dependency: dep}

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Err = &updateerr.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if err := u.updateDependency(ctx, dep, state, result); err != nil {
		result.Status = StatusFailed
		result.Err = err
	}

	return result
}

func (u *Updater) updateDependency(ctx context.Context, dep *deps.Dependency, state *runState, result *Result) error {
	logger := u.logger.With(
		logfields.Dependency(dep.Name),
		logfields.DependencyVersion(currentVersion(dep)),
	)

	match, err := u.filter.Match(ctx, dep)
	if err != nil {
		return fmt.Errorf("evaluating dependency filter failed: %w", err)
	}

	if !match {
		logger.Debug("dependency does not match filter, skipping", logfields.Event("dependency_filtered"))
		result.Status = StatusFiltered
		return nil
	}

	logger.Info("checking for updates", logfields.Event("dependency_checking"))

	checker := u.eco.NewUpdateChecker(dep, state.files, &deps.CheckerOptions{
		RequirementsUpdateStrategy: u.cfg.RequirementsUpdateStrategy,
		IgnoredVersions:            u.cfg.IgnoredVersions[dep.Name],
	})

	upToDate, err := checker.UpToDate(ctx)
	if err != nil {
		return fmt.Errorf("checking if dependency is up to date failed: %w", err)
	}

	if upToDate {
		logger.Info("dependency is up to date", logfields.Event("dependency_up_to_date"))
		result.Status = StatusUpToDate
		return nil
	}

	result.LatestVersion, err = checker.LatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving latest version failed: %w", err)
	}

	logger = logger.With(logfields.DependencyTargetVersion(result.LatestVersion))

	result.UnlockStrategy, err = u.unlockStrategy(ctx, checker)
	if err != nil {
		return fmt.Errorf("evaluating unlock strategy failed: %w", err)
	}

	if result.UnlockStrategy == deps.UpdateNotPossible {
		logger.Info(
			"dependency is outdated but can not be updated with the permitted unlock strategies",
			logfields.Event("dependency_update_not_possible"),
		)

		result.Status = StatusSkipped
		result.Reason = reasonUpdateNotPossible
		u.addToDashboard(state, dep, result.LatestVersion, nil)

		return nil
	}

	logger = logger.With(logfields.UnlockStrategy(string(result.UnlockStrategy)))

	if u.capReached(state) {
		logger.Info(
			"maximum number of merge requests reached, recording update only on dashboard",
			logfields.Event("dependency_update_deferred_merge_request_limit"),
			zap.Int("max_merge_requests", u.cfg.MaxMergeRequests),
		)

		result.Status = StatusCapReached
		u.addToDashboard(state, dep, result.LatestVersion, nil)

		return nil
	}

	result.UpdatedDependencies, err = checker.UpdatedDependencies(ctx, result.UnlockStrategy)
	if err != nil {
		return fmt.Errorf("computing updated dependencies failed: %w", err)
	}

	if len(result.UpdatedDependencies) == 0 {
		return errors.New("update checker returned no updated dependencies")
	}

	updatedFiles, err := u.eco.NewFileUpdater(result.UpdatedDependencies, state.files).UpdatedDependencyFiles(ctx)
	if err != nil {
		return fmt.Errorf("updating dependency files failed: %w", err)
	}

	if len(updatedFiles) == 0 {
		return errors.New("file updater did not change any dependency file")
	}

	outcome, err := u.reconciler.Reconcile(ctx, state.commit, result.UpdatedDependencies, updatedFiles)
	if err != nil {
		return fmt.Errorf("reconciling merge request failed: %w", err)
	}

	metrics.MergeRequestReconciled(u.eco.PackageManager(), outcome)

	result.MergeRequest = outcome.MergeRequest
	result.ClosedMergeRequests = outcome.Closed

	switch outcome.Action {
	case mergerequest.ActionCreated:
		result.Status = StatusMergeRequestCreated
		state.mergeRequests++
	case mergerequest.ActionUpdated:
		result.Status = StatusMergeRequestUpdated
		state.mergeRequests++
	default:
		result.Status = StatusMergeRequestUnchanged
	}

	var link *dashboard.MergeRequestLink
	if outcome.MergeRequest != nil {
		link = &dashboard.MergeRequestLink{IID: outcome.MergeRequest.IID, URL: outcome.MergeRequest.WebURL}
	}

	u.addToDashboard(state, dep, nextVersion(result.UpdatedDependencies[0], result.LatestVersion), link)

	return nil
}

// unlockStrategy returns the first unlock strategy that is not excluded and
// permits an update of the dependency. If none does, deps.UpdateNotPossible
// is returned.
func (u *Updater) unlockStrategy(ctx context.Context, checker deps.UpdateChecker) (deps.UnlockStrategy, error) {
	candidates := deps.UnlockStrategies
	if !checker.RequirementsUnlockedOrCanBe() {
		candidates = []deps.UnlockStrategy{deps.UnlockNone}
	}

	for _, strategy := range candidates {
		if _, excluded := u.cfg.ExcludedUnlockStrategies[strategy]; excluded {
			continue
		}

		ok, err := checker.CanUpdate(ctx, strategy)
		if err != nil {
			return "", fmt.Errorf("checking if update with unlock strategy %s is possible failed: %w", strategy, err)
		}

		if ok {
			return strategy, nil
		}
	}

	return deps.UpdateNotPossible, nil
}

func (u *Updater) addToDashboard(state *runState, dep *deps.Dependency, next string, mr *dashboard.MergeRequestLink) {
	if state.dashboard == nil {
		return
	}

	if mr == nil {
		state.dashboard.Add(dep.Name, currentVersion(dep), next)
		return
	}

	state.dashboard.Add(dep.Name, currentVersion(dep), next, *mr)
}

func currentVersion(dep *deps.Dependency) string {
	if dep.Version != "" {
		return dep.Version
	}

	return dep.RequirementString()
}

func nextVersion(updated *deps.Dependency, latest string) string {
	if updated.Version != "" {
		return updated.Version
	}

	if req := updated.RequirementString(); req != "" {
		return req
	}

	return latest
}
