package pip

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/simplesurance/depupdater/internal/registry"
)

const DefaultPyPIURL = "https://pypi.org"

type releaseFile struct {
	Yanked bool `json:"yanked"`
}

type projectInfo struct {
	Info struct {
		Version     string            `json:"version"`
		HomePage    string            `json:"home_page"`
		ProjectURLs map[string]string `json:"project_urls"`
	} `json:"info"`
	Releases map[string][]*releaseFile `json:"releases"`
}

// sourceURLKeys are the project_urls keys that are checked in order for a
// link to the source code repository.
var sourceURLKeys = []string{"Source", "Source Code", "source", "Repository", "Code", "GitHub", "Homepage"}

// pyPIClient queries the PyPI JSON API.
type pyPIClient struct {
	clt     *registry.Client
	baseURL string

	projects map[string]*projectInfo
}

func newPyPIClient(clt *registry.Client, baseURL string) *pyPIClient {
	if baseURL == "" {
		baseURL = DefaultPyPIURL
	}

	return &pyPIClient{
		clt:      clt,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		projects: map[string]*projectInfo{},
	}
}

func (c *pyPIClient) project(ctx context.Context, name string) (*projectInfo, error) {
	norm := normalizeName(name)
	if p, exists := c.projects[norm]; exists {
		return p, nil
	}

	var resp projectInfo

	err := c.clt.GetJSON(ctx, fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(norm)), &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata of python package %s failed: %w", name, err)
	}

	c.projects[norm] = &resp

	return &resp, nil
}

// Versions returns the released versions of the package that have at least
// one file that is not yanked.
func (c *pyPIClient) Versions(ctx context.Context, name string) ([]string, error) {
	p, err := c.project(ctx, name)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(p.Releases))

	for v, files := range p.Releases {
		if !hasAvailableFile(files) {
			continue
		}

		result = append(result, v)
	}

	sort.Strings(result)

	return result, nil
}

func hasAvailableFile(files []*releaseFile) bool {
	for _, f := range files {
		if !f.Yanked {
			return true
		}
	}

	return false
}

func (c *pyPIClient) SourceURL(ctx context.Context, name string) (string, error) {
	p, err := c.project(ctx, name)
	if err != nil {
		return "", err
	}

	for _, k := range sourceURLKeys {
		if u := p.Info.ProjectURLs[k]; u != "" {
			return u, nil
		}
	}

	return p.Info.HomePage, nil
}
