package deps

import (
	"fmt"
	"strings"
)

// UnlockStrategy defines how much of the existing requirements may be
// changed to update a dependency.
type UnlockStrategy string

const (
	// UnlockNone permits only lockfile changes within the existing
	// requirements.
	UnlockNone UnlockStrategy = "none"
	// UnlockOwn permits changing the requirements of the updated
	// dependency.
	UnlockOwn UnlockStrategy = "own"
	// UnlockAll permits changing the updated dependency and the locked
	// dependencies that constrain it.
	UnlockAll UnlockStrategy = "all"
	// UpdateNotPossible is the result when no permitted strategy allows
	// an update.
	UpdateNotPossible UnlockStrategy = "update_not_possible"
)

// UnlockStrategies is the order in which unlock strategies are tried.
var UnlockStrategies = []UnlockStrategy{UnlockNone, UnlockOwn, UnlockAll}

// ParseUnlockStrategy converts a string to an UnlockStrategy.
func ParseUnlockStrategy(s string) (UnlockStrategy, error) {
	for _, st := range UnlockStrategies {
		if string(st) == s {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported unlock strategy: %q", s)
}

// ParseUnlockStrategySet parses a whitespace separated list of unlock
// strategies.
func ParseUnlockStrategySet(s string) (map[UnlockStrategy]struct{}, error) {
	result := map[UnlockStrategy]struct{}{}

	for _, f := range strings.Fields(s) {
		st, err := ParseUnlockStrategy(f)
		if err != nil {
			return nil, err
		}

		result[st] = struct{}{}
	}

	return result, nil
}

// RequirementsUpdateStrategy defines how requirements are rewritten when a
// dependency is updated.
type RequirementsUpdateStrategy string

const (
	StrategyAuto                    RequirementsUpdateStrategy = "auto"
	StrategyLockfileOnly            RequirementsUpdateStrategy = "lockfile_only"
	StrategyWidenRanges             RequirementsUpdateStrategy = "widen_ranges"
	StrategyBumpVersions            RequirementsUpdateStrategy = "bump_versions"
	StrategyBumpVersionsIfNecessary RequirementsUpdateStrategy = "bump_versions_if_necessary"
)

// ParseRequirementsUpdateStrategy converts a string to a
// RequirementsUpdateStrategy, an empty string is StrategyAuto.
func ParseRequirementsUpdateStrategy(s string) (RequirementsUpdateStrategy, error) {
	switch st := RequirementsUpdateStrategy(s); st {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyLockfileOnly, StrategyWidenRanges, StrategyBumpVersions, StrategyBumpVersionsIfNecessary:
		return st, nil
	default:
		return "", fmt.Errorf("unsupported requirements update strategy: %q", s)
	}
}
