package deps

import (
	"fmt"
	"path"
	"strings"
)

// Requirement is a version constraint on a dependency declared in a
// dependency file.
type Requirement struct {
	// File is the name of the file declaring the requirement.
	File string `json:"file"`
	// Requirement is the constraint in the syntax of the ecosystem, it is
	// empty when the dependency is unconstrained.
	Requirement string `json:"requirement"`
	Groups      []string `json:"groups,omitempty"`
	// Source is empty for dependencies from the package registry,
	// otherwise it describes where the dependency is fetched from (e.g.
	// "git", "path").
	Source string `json:"source,omitempty"`
}

// Dependency is a package the project depends on.
type Dependency struct {
	Name string `json:"name"`
	// Version is the resolved version, it is empty when the version is
	// not pinned.
	Version              string        `json:"version,omitempty"`
	PreviousVersion      string        `json:"previous_version,omitempty"`
	Requirements         []Requirement `json:"requirements"`
	PreviousRequirements []Requirement `json:"previous_requirements,omitempty"`
	PackageManager       string        `json:"package_manager"`
	TopLevel             bool          `json:"top_level"`
}

func (d *Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}

	return fmt.Sprintf("%s (%s)", d.Name, d.Version)
}

// Clone returns a deep copy of d.
func (d *Dependency) Clone() *Dependency {
	c := *d
	c.Requirements = cloneRequirements(d.Requirements)
	c.PreviousRequirements = cloneRequirements(d.PreviousRequirements)

	return &c
}

func cloneRequirements(in []Requirement) []Requirement {
	if in == nil {
		return nil
	}

	result := make([]Requirement, len(in))
	for i, r := range in {
		result[i] = r
		result[i].Groups = append([]string(nil), r.Groups...)
	}

	return result
}

// RequirementsChanged returns true if the requirements differ from the
// previous requirements.
func (d *Dependency) RequirementsChanged() bool {
	if d.PreviousRequirements == nil {
		return false
	}

	if len(d.Requirements) != len(d.PreviousRequirements) {
		return true
	}

	for i := range d.Requirements {
		if d.Requirements[i].Requirement != d.PreviousRequirements[i].Requirement {
			return true
		}
	}

	return false
}

// RequirementString returns the requirements of the dependency joined by ", ".
func (d *Dependency) RequirementString() string {
	var sb strings.Builder

	for _, r := range d.Requirements {
		if r.Requirement == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(r.Requirement)
	}

	return sb.String()
}

// TopLevel returns the dependencies that are declared directly by the
// project, the order is preserved.
func TopLevel(deps []*Dependency) []*Dependency {
	result := make([]*Dependency, 0, len(deps))

	for _, d := range deps {
		if d.TopLevel {
			result = append(result, d)
		}
	}

	return result
}

// DependencyFile is a manifest or lockfile.
type DependencyFile struct {
	Name      string
	Directory string
	Content   string
}

// Path returns the path of the file relative to the repository root.
func (f *DependencyFile) Path() string {
	return strings.TrimPrefix(path.Join(f.Directory, f.Name), "/")
}

// Files is an ordered list of dependency files.
type Files []*DependencyFile

// Get returns the file with the given name or nil.
func (f Files) Get(name string) *DependencyFile {
	for _, file := range f {
		if file.Name == name {
			return file
		}
	}

	return nil
}

// Clone returns a copy of the file list with copied elements.
func (f Files) Clone() Files {
	result := make(Files, 0, len(f))

	for _, file := range f {
		c := *file
		result = append(result, &c)
	}

	return result
}
