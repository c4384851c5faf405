package bundler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/simplesurance/depupdater/internal/registry"
)

const DefaultRubyGemsURL = "https://rubygems.org"

type gemVersion struct {
	Number     string `json:"number"`
	Platform   string `json:"platform"`
	Prerelease bool   `json:"prerelease"`
}

type gemDependency struct {
	Name         string `json:"name"`
	Requirements string `json:"requirements"`
}

type gemVersionInfo struct {
	Dependencies struct {
		Runtime []*gemDependency `json:"runtime"`
	} `json:"dependencies"`
}

type gemInfo struct {
	SourceCodeURI string `json:"source_code_uri"`
	HomepageURI   string `json:"homepage_uri"`
}

// rubyGemsClient queries the RubyGems.org compatible API of a gem server.
type rubyGemsClient struct {
	clt     *registry.Client
	baseURL string

	versions map[string][]string
}

func newRubyGemsClient(clt *registry.Client, baseURL string) *rubyGemsClient {
	if baseURL == "" {
		baseURL = DefaultRubyGemsURL
	}

	return &rubyGemsClient{
		clt:      clt,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		versions: map[string][]string{},
	}
}

// Versions returns the versions of the gem for the ruby platform.
func (c *rubyGemsClient) Versions(ctx context.Context, name string) ([]string, error) {
	if v, exists := c.versions[name]; exists {
		return v, nil
	}

	var resp []*gemVersion

	err := c.clt.GetJSON(ctx, fmt.Sprintf("%s/api/v1/versions/%s.json", c.baseURL, url.PathEscape(name)), &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching versions of gem %s failed: %w", name, err)
	}

	result := make([]string, 0, len(resp))
	for _, v := range resp {
		if v.Platform != "" && v.Platform != "ruby" {
			continue
		}

		result = append(result, v.Number)
	}

	c.versions[name] = result

	return result, nil
}

// RuntimeDependencies returns the runtime dependencies of a gem version.
func (c *rubyGemsClient) RuntimeDependencies(ctx context.Context, name, version string) ([]*gemDependency, error) {
	var resp gemVersionInfo

	err := c.clt.GetJSON(
		ctx,
		fmt.Sprintf("%s/api/v2/rubygems/%s/versions/%s.json", c.baseURL, url.PathEscape(name), url.PathEscape(version)),
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching dependencies of gem %s %s failed: %w", name, version, err)
	}

	return resp.Dependencies.Runtime, nil
}

// SourceURL returns the source code or homepage URL of the gem.
func (c *rubyGemsClient) SourceURL(ctx context.Context, name string) (string, error) {
	var resp gemInfo

	err := c.clt.GetJSON(ctx, fmt.Sprintf("%s/api/v1/gems/%s.json", c.baseURL, url.PathEscape(name)), &resp)
	if err != nil {
		return "", fmt.Errorf("fetching metadata of gem %s failed: %w", name, err)
	}

	if resp.SourceCodeURI != "" {
		return resp.SourceCodeURI, nil
	}

	return resp.HomepageURI, nil
}
