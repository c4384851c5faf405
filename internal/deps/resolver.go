package deps

import (
	"context"
	"errors"
)

var (
	// ErrRequirementNotUpdatable is returned by Resolver.UpdateRequirement
	// when a requirement can not be rewritten to permit a version.
	ErrRequirementNotUpdatable = errors.New("requirement can not be updated")
	// ErrCannotUnblock is returned by Resolver.Unblock when no version
	// of the blocking dependency permits the update.
	ErrCannotUnblock = errors.New("blocking dependency can not be updated")
)

// Resolver provides the version semantics of an ecosystem to the Checker.
type Resolver interface {
	// Versions returns the published versions of the dependency.
	Versions(ctx context.Context, dep *Dependency) ([]string, error)
	Compare(a, b string) (int, error)
	IsPrerelease(version string) bool
	// Satisfies returns true if version matches the requirement, an
	// empty requirement is matched by every version.
	Satisfies(version, requirement string) (bool, error)
	// UpdateRequirement returns req rewritten to permit version.
	UpdateRequirement(req Requirement, version string, strategy RequirementsUpdateStrategy) (Requirement, error)
	// Blockers returns the locked dependencies whose requirements
	// prevent dep from being updated to version.
	Blockers(ctx context.Context, dep *Dependency, version string) ([]*Dependency, error)
	// Unblock returns blocker updated to a version whose requirements
	// permit dep at version.
	Unblock(ctx context.Context, blocker, dep *Dependency, version string) (*Dependency, error)
}
