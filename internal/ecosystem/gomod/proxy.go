package gomod

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/simplesurance/depupdater/internal/registry"
)

const (
	DefaultProxyURL = "https://proxy.golang.org"
	DefaultSumDBURL = "https://sum.golang.org"
)

type moduleInfo struct {
	Version string `json:"Version"`
	Origin  *struct {
		VCS string `json:"VCS"`
		URL string `json:"URL"`
	} `json:"Origin"`
}

// proxyClient queries a Go module proxy and a checksum database.
type proxyClient struct {
	clt      *registry.Client
	proxyURL string
	sumDBURL string

	versions map[string][]string
}

func newProxyClient(clt *registry.Client, proxyURL, sumDBURL string) *proxyClient {
	if proxyURL == "" {
		proxyURL = DefaultProxyURL
	}

	if sumDBURL == "" {
		sumDBURL = DefaultSumDBURL
	}

	return &proxyClient{
		clt:      clt,
		proxyURL: strings.TrimSuffix(proxyURL, "/"),
		sumDBURL: strings.TrimSuffix(sumDBURL, "/"),
		versions: map[string][]string{},
	}
}

// Versions returns the tagged versions of the module that are valid
// semantic versions.
func (c *proxyClient) Versions(ctx context.Context, path string) ([]string, error) {
	if v, exists := c.versions[path]; exists {
		return v, nil
	}

	escPath, err := module.EscapePath(path)
	if err != nil {
		return nil, err
	}

	body, err := c.clt.Get(ctx, fmt.Sprintf("%s/%s/@v/list", c.proxyURL, escPath))
	if err != nil {
		return nil, fmt.Errorf("fetching versions of module %s failed: %w", path, err)
	}

	var result []string
	for _, line := range strings.Split(string(body), "\n") {
		v := strings.TrimSpace(line)
		if !semver.IsValid(v) {
			continue
		}

		result = append(result, v)
	}

	semver.Sort(result)
	c.versions[path] = result

	return result, nil
}

func (c *proxyClient) Info(ctx context.Context, path, version string) (*moduleInfo, error) {
	escPath, err := module.EscapePath(path)
	if err != nil {
		return nil, err
	}

	escVersion, err := module.EscapeVersion(version)
	if err != nil {
		return nil, err
	}

	var result moduleInfo

	err = c.clt.GetJSON(ctx, fmt.Sprintf("%s/%s/@v/%s.info", c.proxyURL, escPath, escVersion), &result)
	if err != nil {
		return nil, fmt.Errorf("fetching info of module %s@%s failed: %w", path, version, err)
	}

	return &result, nil
}

// Sums returns the go.sum lines of the module version from the checksum
// database.
func (c *proxyClient) Sums(ctx context.Context, path, version string) ([]*sumLine, error) {
	escPath, err := module.EscapePath(path)
	if err != nil {
		return nil, err
	}

	escVersion, err := module.EscapeVersion(version)
	if err != nil {
		return nil, err
	}

	body, err := c.clt.Get(ctx, fmt.Sprintf("%s/lookup/%s@%s", c.sumDBURL, escPath, escVersion))
	if err != nil {
		return nil, fmt.Errorf("looking up checksums of module %s@%s failed: %w", path, version, err)
	}

	return parseLookupResponse(string(body), path, version)
}

// parseLookupResponse extracts the checksum lines from the body of a
// checksum database lookup. The body consists of the record id, the
// go.sum lines, an empty line and the signed tree head.
func parseLookupResponse(body, path, version string) ([]*sumLine, error) {
	var result []*sumLine

	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != path {
			continue
		}

		if strings.TrimSuffix(fields[1], goModSuffix) != version {
			continue
		}

		result = append(result, &sumLine{
			Version: module.Version{Path: fields[0], Version: fields[1]},
			Hash:    fields[2],
		})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("checksum database response contains no checksums for %s@%s", path, version)
	}

	return result, nil
}
