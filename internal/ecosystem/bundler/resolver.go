package bundler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/registry"
)

// maxUnblockCandidates is the number of newest versions of a blocking gem
// that are evaluated by Unblock.
const maxUnblockCandidates = 10

type resolver struct {
	gems   *rubyGemsClient
	files  deps.Files
	logger *zap.Logger

	prj *project
}

func (r *resolver) project() (*project, error) {
	if r.prj != nil {
		return r.prj, nil
	}

	prj, err := loadProject(r.files)
	if err != nil {
		return nil, err
	}

	r.prj = prj

	return prj, nil
}

func (r *resolver) Versions(ctx context.Context, dep *deps.Dependency) ([]string, error) {
	return r.gems.Versions(ctx, dep.Name)
}

func (*resolver) Compare(a, b string) (int, error) {
	return compareVersions(a, b)
}

func (*resolver) IsPrerelease(v string) bool {
	return isPrerelease(v)
}

func (*resolver) Satisfies(v, requirement string) (bool, error) {
	return satisfies(v, requirement)
}

func (*resolver) UpdateRequirement(req deps.Requirement, v string, strategy deps.RequirementsUpdateStrategy) (deps.Requirement, error) {
	newReq, err := updateRequirement(req.Requirement, v, strategy)
	if err != nil {
		return req, err
	}

	req.Requirement = newReq

	return req, nil
}

// Blockers returns the locked gems that depend on dep with a requirement
// that excludes version.
func (r *resolver) Blockers(_ context.Context, dep *deps.Dependency, version string) ([]*deps.Dependency, error) {
	prj, err := r.project()
	if err != nil {
		return nil, err
	}

	if prj.lockfile == nil {
		return nil, nil
	}

	var result []*deps.Dependency

	for _, spec := range prj.lockfile.Specs {
		for _, req := range spec.Dependencies {
			if req.Name != dep.Name {
				continue
			}

			ok, err := satisfies(version, req.Requirement)
			if err != nil {
				return nil, fmt.Errorf("evaluating requirement %q of %s on %s failed: %w", req.Requirement, spec.Name, dep.Name, err)
			}

			if !ok {
				result = append(result, lockedDependency(prj, spec))
			}
		}
	}

	return result, nil
}

func lockedDependency(prj *project, spec *lockedSpec) *deps.Dependency {
	d := deps.Dependency{
		Name:           spec.Name,
		Version:        spec.Version,
		PackageManager: PackageManager,
	}

	if gem := prj.gemsMap[spec.Name]; gem != nil {
		d.TopLevel = true
		d.Requirements = []deps.Requirement{gemfileRequirement(gem, spec)}
	}

	return &d
}

// Unblock searches the newest versions of blocker for one whose requirement
// on dep permits version.
func (r *resolver) Unblock(ctx context.Context, blocker, dep *deps.Dependency, version string) (*deps.Dependency, error) {
	versions, err := r.gems.Versions(ctx, blocker.Name)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(versions))
	for _, v := range versions {
		if isPrerelease(v) {
			continue
		}

		cmp, err := compareVersions(v, blocker.Version)
		if err != nil || cmp <= 0 {
			continue
		}

		candidates = append(candidates, v)
	}

	sort.Slice(candidates, func(i, j int) bool {
		cmp, _ := compareVersions(candidates[i], candidates[j])
		return cmp > 0
	})

	if len(candidates) > maxUnblockCandidates {
		candidates = candidates[:maxUnblockCandidates]
	}

	for _, candidate := range candidates {
		ok, err := r.permits(ctx, blocker, candidate, dep.Name, version)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				continue
			}

			return nil, err
		}

		if !ok {
			continue
		}

		r.logger.Debug(
			"found version of blocking gem permitting update",
			logfields.Event("blocking_gem_unlocked"),
			logfields.Dependency(dep.Name),
			zap.String("blocker", blocker.Name),
			zap.String("blocker_version", candidate),
		)

		result := blocker.Clone()
		result.PreviousVersion = blocker.Version
		result.Version = candidate
		result.PreviousRequirements = blocker.Requirements

		return result, nil
	}

	return nil, fmt.Errorf("%w: no version of %s permits %s %s", deps.ErrCannotUnblock, blocker.Name, dep.Name, version)
}

func (r *resolver) permits(ctx context.Context, blocker *deps.Dependency, blockerVersion, name, version string) (bool, error) {
	for _, req := range blocker.Requirements {
		ok, err := satisfies(blockerVersion, req.Requirement)
		if err != nil || !ok {
			return false, err
		}
	}

	runtimeDeps, err := r.gems.RuntimeDependencies(ctx, blocker.Name, blockerVersion)
	if err != nil {
		return false, err
	}

	for _, d := range runtimeDeps {
		if d.Name != name {
			continue
		}

		return satisfies(version, d.Requirements)
	}

	return true, nil
}
