package gomod

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/mod/module"
	gosemver "golang.org/x/mod/semver"

	"github.com/simplesurance/depupdater/internal/deps"
)

// resolver provides the version semantics of Go modules. Requirements in
// go.mod files are minimum versions selected by MVS, updates are therefore
// never blocked by other modules.
type resolver struct {
	proxy *proxyClient
}

// Versions returns the versions of the module that are compatible with its
// import path, e.g. only v2 versions for a module path ending in /v2.
func (r *resolver) Versions(ctx context.Context, dep *deps.Dependency) ([]string, error) {
	versions, err := r.proxy.Versions(ctx, dep.Name)
	if err != nil {
		return nil, err
	}

	_, pathMajor, ok := module.SplitPathVersion(dep.Name)
	if !ok {
		return nil, fmt.Errorf("invalid module path: %q", dep.Name)
	}

	allowIncompatible := gosemver.Build(dep.Version) == "+incompatible"

	result := make([]string, 0, len(versions))
	for _, v := range versions {
		if !module.MatchPathMajor(v, pathMajor) {
			continue
		}

		if !allowIncompatible && gosemver.Build(v) == "+incompatible" {
			continue
		}

		result = append(result, v)
	}

	return result, nil
}

func (*resolver) Compare(a, b string) (int, error) {
	if !gosemver.IsValid(a) {
		return 0, fmt.Errorf("invalid module version: %q", a)
	}

	if !gosemver.IsValid(b) {
		return 0, fmt.Errorf("invalid module version: %q", b)
	}

	return gosemver.Compare(a, b), nil
}

func (*resolver) IsPrerelease(v string) bool {
	return gosemver.Prerelease(v) != ""
}

// Satisfies returns true if version equals requirement. Requirements that
// are not a module version are evaluated as semantic version constraints
// (e.g. ">= 1.2, < 2"), this is the syntax of ignore conditions.
func (*resolver) Satisfies(version, requirement string) (bool, error) {
	if requirement == "" {
		return true, nil
	}

	if gosemver.IsValid(requirement) {
		return gosemver.Compare(version, requirement) == 0, nil
	}

	c, err := semver.NewConstraint(requirement)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", requirement, err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}

	return c.Check(v), nil
}

func (*resolver) UpdateRequirement(req deps.Requirement, version string, _ deps.RequirementsUpdateStrategy) (deps.Requirement, error) {
	req.Requirement = version
	return req, nil
}

func (*resolver) Blockers(context.Context, *deps.Dependency, string) ([]*deps.Dependency, error) {
	return nil, nil
}

func (*resolver) Unblock(_ context.Context, blocker, _ *deps.Dependency, _ string) (*deps.Dependency, error) {
	return nil, fmt.Errorf("%w: %s", deps.ErrCannotUnblock, blocker.Name)
}
