package deps

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/logfields"
)

const loggerName = "update_checker"

var errCannotUpdate = errors.New("dependency can not be updated with the unlock strategy")

// Checker is an UpdateChecker for ecosystems that provide a Resolver.
//
// A Checker evaluates a single dependency, results are cached and the
// Checker must not be used concurrently.
type Checker struct {
	dep      *Dependency
	resolver Resolver
	opts     *CheckerOptions
	logger   *zap.Logger

	latest    string
	latestSet bool
	updated   map[UnlockStrategy][]*Dependency
}

func NewChecker(dep *Dependency, resolver Resolver, opts *CheckerOptions) *Checker {
	if opts == nil {
		opts = &CheckerOptions{RequirementsUpdateStrategy: StrategyAuto}
	}

	return &Checker{
		dep:      dep,
		resolver: resolver,
		opts:     opts,
		logger:   zap.L().Named(loggerName).With(logfields.Dependency(dep.Name)),
		updated:  map[UnlockStrategy][]*Dependency{},
	}
}

// LatestVersion returns the highest published version that is not ignored.
// Prereleases are only considered when the current version is a prerelease.
func (c *Checker) LatestVersion(ctx context.Context) (string, error) {
	if c.latestSet {
		return c.latest, nil
	}

	versions, err := c.resolver.Versions(ctx, c.dep)
	if err != nil {
		return "", fmt.Errorf("retrieving versions of %s failed: %w", c.dep.Name, err)
	}

	allowPrerelease := c.dep.Version != "" && c.resolver.IsPrerelease(c.dep.Version)

	var latest string
	for _, v := range versions {
		if !allowPrerelease && c.resolver.IsPrerelease(v) {
			continue
		}

		cmp, err := c.compareToLatest(v, latest)
		if err != nil {
			c.logger.Debug(
				"skipping unparseable version",
				logfields.Event("version_unparseable"),
				logfields.DependencyVersion(v),
				zap.Error(err),
			)

			continue
		}

		if cmp <= 0 {
			continue
		}

		ignored, err := c.isIgnored(v)
		if err != nil {
			return "", err
		}

		if ignored {
			continue
		}

		latest = v
	}

	c.latest = latest
	c.latestSet = true

	return latest, nil
}

// compareToLatest compares v to latest. When latest is empty, v is only
// validated and 1 is returned.
func (c *Checker) compareToLatest(v, latest string) (int, error) {
	if latest == "" {
		if _, err := c.resolver.Compare(v, v); err != nil {
			return 0, err
		}

		return 1, nil
	}

	return c.resolver.Compare(v, latest)
}

func (c *Checker) isIgnored(version string) (bool, error) {
	for _, constraint := range c.opts.IgnoredVersions {
		matches, err := c.resolver.Satisfies(version, constraint)
		if err != nil {
			return false, fmt.Errorf("evaluating ignore condition %q of %s failed: %w", constraint, c.dep.Name, err)
		}

		if matches {
			return true, nil
		}
	}

	return false, nil
}

func (c *Checker) UpToDate(ctx context.Context) (bool, error) {
	latest, err := c.LatestVersion(ctx)
	if err != nil {
		return false, err
	}

	if latest == "" {
		return true, nil
	}

	if c.dep.Version != "" {
		cmp, err := c.resolver.Compare(c.dep.Version, latest)
		if err != nil {
			return false, err
		}

		return cmp >= 0, nil
	}

	return c.requirementsSatisfied(latest)
}

func (c *Checker) requirementsSatisfied(version string) (bool, error) {
	for _, req := range c.dep.Requirements {
		ok, err := c.resolver.Satisfies(version, req.Requirement)
		if err != nil {
			return false, fmt.Errorf("evaluating requirement %q of %s failed: %w", req.Requirement, c.dep.Name, err)
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func (c *Checker) RequirementsUnlockedOrCanBe() bool {
	if c.opts.RequirementsUpdateStrategy == StrategyLockfileOnly {
		return false
	}

	for _, req := range c.dep.Requirements {
		if req.Source != "" {
			return false
		}
	}

	return true
}

func (c *Checker) CanUpdate(ctx context.Context, strategy UnlockStrategy) (bool, error) {
	updated, err := c.UpdatedDependencies(ctx, strategy)
	if err != nil {
		if errors.Is(err, errCannotUpdate) {
			return false, nil
		}

		return false, err
	}

	return len(updated) > 0, nil
}

func (c *Checker) UpdatedDependencies(ctx context.Context, strategy UnlockStrategy) ([]*Dependency, error) {
	if updated, exists := c.updated[strategy]; exists {
		if updated == nil {
			return nil, errCannotUpdate
		}

		return updated, nil
	}

	updated, err := c.updatedDependencies(ctx, strategy)
	if err != nil {
		if errors.Is(err, errCannotUpdate) {
			c.updated[strategy] = nil
		}

		return nil, err
	}

	c.updated[strategy] = updated

	return updated, nil
}

func (c *Checker) updatedDependencies(ctx context.Context, strategy UnlockStrategy) ([]*Dependency, error) {
	upToDate, err := c.UpToDate(ctx)
	if err != nil {
		return nil, err
	}

	if upToDate {
		return nil, fmt.Errorf("%w: dependency is up to date", errCannotUpdate)
	}

	latest, err := c.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case UnlockNone:
		return c.updateLockedVersion(ctx, latest)

	case UnlockOwn, UnlockAll:
		return c.updateWithRequirements(ctx, latest, strategy == UnlockAll)

	default:
		return nil, fmt.Errorf("%w: unsupported unlock strategy %q", errCannotUpdate, strategy)
	}
}

func (c *Checker) updateLockedVersion(ctx context.Context, version string) ([]*Dependency, error) {
	if c.dep.Version == "" {
		return nil, fmt.Errorf("%w: dependency has no locked version", errCannotUpdate)
	}

	satisfied, err := c.requirementsSatisfied(version)
	if err != nil {
		return nil, err
	}

	if !satisfied {
		return nil, fmt.Errorf("%w: requirements do not permit %s", errCannotUpdate, version)
	}

	blockers, err := c.resolver.Blockers(ctx, c.dep, version)
	if err != nil {
		return nil, err
	}

	if len(blockers) > 0 {
		return nil, fmt.Errorf("%w: %s is blocked by %d dependencies", errCannotUpdate, version, len(blockers))
	}

	return []*Dependency{c.newDependencyVersion(version, c.dep.Requirements)}, nil
}

func (c *Checker) updateWithRequirements(ctx context.Context, version string, unlockPeers bool) ([]*Dependency, error) {
	if !c.RequirementsUnlockedOrCanBe() {
		return nil, fmt.Errorf("%w: requirements are locked", errCannotUpdate)
	}

	reqs := make([]Requirement, 0, len(c.dep.Requirements))
	for _, req := range c.dep.Requirements {
		newReq, err := c.updateRequirement(req, version)
		if err != nil {
			return nil, err
		}

		reqs = append(reqs, newReq)
	}

	blockers, err := c.resolver.Blockers(ctx, c.dep, version)
	if err != nil {
		return nil, err
	}

	if len(blockers) > 0 && !unlockPeers {
		return nil, fmt.Errorf("%w: %s is blocked by %d dependencies", errCannotUpdate, version, len(blockers))
	}

	result := []*Dependency{c.newDependencyVersion(version, reqs)}

	for _, blocker := range blockers {
		unblocked, err := c.resolver.Unblock(ctx, blocker, c.dep, version)
		if err != nil {
			if errors.Is(err, ErrCannotUnblock) {
				return nil, fmt.Errorf("%w: %w", errCannotUpdate, err)
			}

			return nil, err
		}

		result = append(result, unblocked)
	}

	return result, nil
}

func (c *Checker) updateRequirement(req Requirement, version string) (Requirement, error) {
	if c.opts.RequirementsUpdateStrategy != StrategyBumpVersions {
		ok, err := c.resolver.Satisfies(version, req.Requirement)
		if err != nil {
			return req, fmt.Errorf("evaluating requirement %q of %s failed: %w", req.Requirement, c.dep.Name, err)
		}

		if ok {
			return req, nil
		}
	}

	newReq, err := c.resolver.UpdateRequirement(req, version, c.opts.RequirementsUpdateStrategy)
	if err != nil {
		if errors.Is(err, ErrRequirementNotUpdatable) {
			return req, fmt.Errorf("%w: %w", errCannotUpdate, err)
		}

		return req, err
	}

	return newReq, nil
}

func (c *Checker) newDependencyVersion(version string, reqs []Requirement) *Dependency {
	result := c.dep.Clone()
	result.PreviousVersion = c.dep.Version
	result.Version = version
	result.PreviousRequirements = cloneRequirements(c.dep.Requirements)
	result.Requirements = cloneRequirements(reqs)

	return result
}
