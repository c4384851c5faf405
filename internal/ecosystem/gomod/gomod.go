package gomod

import (
	"fmt"

	"golang.org/x/mod/modfile"
)

const (
	goModName = "go.mod"
	goSumName = "go.sum"
)

type requirement struct {
	Path     string
	Version  string
	Indirect bool
	// Replaced is true when a replace directive applies to the module.
	Replaced bool
}

func parseGoMod(content string) ([]*requirement, error) {
	f, err := modfile.Parse(goModName, []byte(content), nil)
	if err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", goModName, err)
	}

	replaced := make(map[string]struct{}, len(f.Replace))
	for _, r := range f.Replace {
		replaced[r.Old.Path] = struct{}{}
	}

	result := make([]*requirement, 0, len(f.Require))

	for _, r := range f.Require {
		_, isReplaced := replaced[r.Mod.Path]

		result = append(result, &requirement{
			Path:     r.Mod.Path,
			Version:  r.Mod.Version,
			Indirect: r.Indirect,
			Replaced: isReplaced,
		})
	}

	return result, nil
}

// updateGoMod sets the required version of the modules in versions.
func updateGoMod(content string, versions map[string]string) (string, error) {
	f, err := modfile.Parse(goModName, []byte(content), nil)
	if err != nil {
		return "", fmt.Errorf("parsing %s failed: %w", goModName, err)
	}

	for path, version := range versions {
		if err := f.AddRequire(path, version); err != nil {
			return "", fmt.Errorf("updating requirement %s in %s failed: %w", path, goModName, err)
		}
	}

	f.Cleanup()

	result, err := f.Format()
	if err != nil {
		return "", fmt.Errorf("formatting %s failed: %w", goModName, err)
	}

	return string(result), nil
}
