package mergerequest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simplesurance/depupdater/internal/deps"
)

const branchNamespace = "dependabot"

var branchInvalidCharsRe = regexp.MustCompile(`[^A-Za-z0-9._/-]+`)

var branchVersionRe = regexp.MustCompile(`^v?[0-9]`)

// targetVersion returns the version string a merge request for dep proposes.
// For dependencies without a resolved version the new requirement is used.
func targetVersion(dep *deps.Dependency) string {
	if dep.Version != "" {
		return dep.Version
	}

	return dep.RequirementString()
}

func previousRequirementString(dep *deps.Dependency) string {
	prev := deps.Dependency{Requirements: dep.PreviousRequirements}
	return prev.RequirementString()
}

// change describes the version change of dep, e.g. "from 1.0 to 2.0".
func change(dep *deps.Dependency) string {
	if dep.Version != "" && dep.PreviousVersion != "" {
		return fmt.Sprintf("from %s to %s", dep.PreviousVersion, dep.Version)
	}

	if dep.Version != "" {
		return "to " + dep.Version
	}

	return fmt.Sprintf("requirement from %s to %s", previousRequirementString(dep), dep.RequirementString())
}

func isRootDirectory(dir string) bool {
	return strings.Trim(dir, "/") == ""
}

// Title returns the title of the merge request for the updated dependencies.
// The first element of updated is the dependency the update was computed for.
func Title(updated []*deps.Dependency, directory string) string {
	var sb strings.Builder

	dep := updated[0]

	if len(updated) == 1 {
		if dep.Version == "" {
			sb.WriteString("Update ")
		} else {
			sb.WriteString("Bump ")
		}

		sb.WriteString(dep.Name)
		sb.WriteString(" ")
		sb.WriteString(change(dep))
	} else {
		sb.WriteString("Bump ")

		for i, d := range updated {
			switch {
			case i == 0:
			case i == len(updated)-1:
				sb.WriteString(" and ")
			default:
				sb.WriteString(", ")
			}

			sb.WriteString(d.Name)
		}
	}

	if !isRootDirectory(directory) {
		sb.WriteString(" in ")
		sb.WriteString(directory)
	}

	return sb.String()
}

// BranchPrefix returns the prefix of the names of all branches created for
// packageManager.
func BranchPrefix(packageManager string) string {
	return branchNamespace + "/" + packageManager + "/"
}

// dependencyBranchPrefix returns the prefix of the names of the branches
// created for updates of depName in directory.
func dependencyBranchPrefix(packageManager, directory, depName string) string {
	name := sanitizeBranchElem(depName) + "-"

	dir := strings.Trim(directory, "/")
	if dir == "" {
		return BranchPrefix(packageManager) + name
	}

	return BranchPrefix(packageManager) + sanitizeBranchElem(dir) + "/" + name
}

// BranchName returns the name of the source branch of the merge request for
// dep.
func BranchName(packageManager, directory string, dep *deps.Dependency) string {
	return dependencyBranchPrefix(packageManager, directory, dep.Name) + sanitizeBranchElem(targetVersion(dep))
}

// isDependencyBranch returns true if branch was created for an update of
// depName in directory.
// Branches of dependencies whose names start with depName followed by a
// dash, e.g. rack-test for rack, are not matched.
func isDependencyBranch(branch, packageManager, directory, depName string) bool {
	version, ok := strings.CutPrefix(branch, dependencyBranchPrefix(packageManager, directory, depName))
	if !ok {
		return false
	}

	return branchVersionRe.MatchString(version)
}

func sanitizeBranchElem(s string) string {
	s = branchInvalidCharsRe.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "..", ".")
	return strings.Trim(s, "-./")
}

// CommitMessage returns the commit message for the update.
func CommitMessage(updated []*deps.Dependency, directory string) string {
	var sb strings.Builder

	sb.WriteString(Title(updated, directory))

	if len(updated) > 1 {
		sb.WriteString("\n")

		for _, d := range updated {
			sb.WriteString("\n- ")
			sb.WriteString(d.Name)
			sb.WriteString(" ")
			sb.WriteString(change(d))
		}
	}

	sb.WriteString("\n")

	return sb.String()
}

// titleMentionsDependency returns true if the title contains name as a whole
// word. Words are separated by whitespace, a trailing comma is ignored.
func titleMentionsDependency(title, name string) bool {
	for _, word := range strings.Fields(title) {
		if strings.TrimSuffix(word, ",") == name {
			return true
		}
	}

	return false
}

// proposesVersion returns true if the merge request proposes version.
// The check is a substring match on the title, and on the source branch for
// titles that do not carry versions. A version that is a prefix of another
// version therefore also matches the longer one, e.g. "1.0" matches a merge
// request for "1.0.1".
func proposesVersion(title, sourceBranch, version string) bool {
	return strings.Contains(title, version) || strings.Contains(sourceBranch, sanitizeBranchElem(version))
}
