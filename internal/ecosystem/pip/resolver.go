package pip

import (
	"context"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
)

// resolver provides PEP 440 version semantics. requirements.txt files do
// not record the dependencies between packages, updates are therefore
// never blocked by other packages.
type resolver struct {
	pypi *pyPIClient
}

func (r *resolver) Versions(ctx context.Context, dep *deps.Dependency) ([]string, error) {
	return r.pypi.Versions(ctx, dep.Name)
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
	newReq, err := updateSpecifiers(req.Requirement, v, strategy)
	if err != nil {
		return req, err
	}

	req.Requirement = newReq

	return req, nil
}

func (*resolver) Blockers(context.Context, *deps.Dependency, string) ([]*deps.Dependency, error) {
	return nil, nil
}

func (*resolver) Unblock(_ context.Context, blocker, _ *deps.Dependency, _ string) (*deps.Dependency, error) {
	return nil, fmt.Errorf("%w: %s", deps.ErrCannotUnblock, blocker.Name)
}
