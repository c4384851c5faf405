// Package ecosystem creates the deps.Ecosystem implementation for a package
// manager.
package ecosystem

import (
	"errors"
	"fmt"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/ecosystem/bundler"
	"github.com/simplesurance/depupdater/internal/ecosystem/gomod"
	"github.com/simplesurance/depupdater/internal/ecosystem/pip"
	"github.com/simplesurance/depupdater/internal/registry"
)

var ErrUnsupportedPackageManager = errors.New("unsupported package manager")

// Registries contains the base URLs of the package registries, empty
// values select the public registry of the ecosystem.
type Registries struct {
	RubyGemsURL string
	PyPIURL     string
	GoProxyURL  string
	GoSumDBURL  string
}

// PackageManagers returns the identifiers of the supported package managers.
func PackageManagers() []string {
	return []string{bundler.PackageManager, pip.PackageManager, gomod.PackageManager}
}

// IsSupported returns true if New can create an Ecosystem for packageManager.
func IsSupported(packageManager string) bool {
	for _, pm := range PackageManagers() {
		if pm == packageManager {
			return true
		}
	}

	return false
}

func New(packageManager string, registries *Registries, clt *registry.Client) (deps.Ecosystem, error) {
	if registries == nil {
		registries = &Registries{}
	}

	switch packageManager {
	case bundler.PackageManager:
		return bundler.New(clt, registries.RubyGemsURL), nil
	case pip.PackageManager:
		return pip.New(clt, registries.PyPIURL), nil
	case gomod.PackageManager:
		return gomod.New(clt, registries.GoProxyURL, registries.GoSumDBURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPackageManager, packageManager)
	}
}
