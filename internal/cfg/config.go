// Package cfg assembles the run configuration from environment variables
// and an optional TOML file.
package cfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/depupdater/internal/depfilter"
	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/ecosystem"
	"github.com/simplesurance/depupdater/internal/maputils"
)

const (
	EnvGitLabHostname           = "GITLAB_HOSTNAME"
	EnvGitHubToken              = "KIRA_GITHUB_PERSONAL_TOKEN"
	EnvGitLabToken              = "KIRA_GITLAB_PERSONAL_TOKEN"
	EnvExtraCredentials         = "DEPENDABOT_EXTRA_CREDENTIALS"
	EnvProjectPath              = "DEPENDABOT_PROJECT_PATH"
	EnvDirectory                = "DEPENDABOT_DIRECTORY"
	EnvSourceBranch             = "DEPENDABOT_SOURCE_BRANCH"
	EnvUpdateStrategy           = "DEPENDABOT_UPDATE_STRATEGY"
	EnvExcludeUnlockStrategies  = "DEPENDABOT_EXCLUDE_REQUIREMENTS_TO_UNLOCK"
	EnvIgnoredVersions          = "DEPENDABOT_IGNORED_VERSIONS"
	EnvAssignees                = "DEPENDABOT_ASSIGNEE_GITLAB_ID"
	EnvPackageManager           = "PACKAGE_MANAGER"
	EnvMaxMergeRequests         = "DEPENDABOT_MAX_MERGE_REQUESTS"
	EnvApproveMergeRequest      = "DEPENDABOT_GITLAB_APPROVE_MERGE"
	EnvAutoMerge                = "DEPENDABOT_GITLAB_AUTO_MERGE"
	EnvDashboard                = "KIRA_DEPENDENCIES_DASHBOARD"
	EnvFailOnError              = "KIRA_FAIL_ON_EXCEPTION"
	EnvDryRun                   = "DEPENDABOT_DRY_RUN"
	EnvDependencyFilter         = "DEPENDABOT_DEPENDENCY_FILTER"
	EnvMergeRequestLabels       = "DEPENDABOT_MERGE_REQUEST_LABELS"
	defaultGitLabHostname       = "gitlab.com"
	defaultDirectory            = "/"
	defaultPackageManager       = "bundler"
	defaultLogFormat            = "logfmt"
	defaultLogLevel             = "info"
	defaultLogTimeKey           = "time_iso8601"
	gitHubHostname              = "github.com"
	gitSourceCredentialType     = "git_source"
	gitSourceCredentialUsername = "x-access-token"
)

// ErrMissingProjectPath is returned when DEPENDABOT_PROJECT_PATH is unset.
var ErrMissingProjectPath = fmt.Errorf("%s environment variable must be set", EnvProjectPath)

// Config is the configuration of a run.
// It is created once by Load and not modified afterwards.
type Config struct {
	GitLabHostname string
	// APIEndpoint is the base URL of the GitLab REST API.
	APIEndpoint string
	GitHubToken string
	GitLabToken string
	Credentials deps.Credentials

	ProjectPath  string
	Directory    string
	SourceBranch string

	PackageManager             string
	RequirementsUpdateStrategy deps.RequirementsUpdateStrategy
	ExcludedUnlockStrategies   map[deps.UnlockStrategy]struct{}
	// IgnoredVersions maps dependency names to version requirements,
	// versions matching one of them are never proposed.
	IgnoredVersions  map[string][]string
	DependencyFilter string

	AssigneeIDs []int
	Labels      []string
	// MaxMergeRequests is the maximum number of merge requests that are
	// created or updated in a run, 0 is unlimited.
	MaxMergeRequests int

	ApproveMergeRequests bool
	AutoMerge            bool
	Dashboard            bool
	FailOnError          bool
	DryRun               bool

	LogFormat                string
	LogLevel                 string
	LogTimeKey               string
	PrometheusPushGatewayURL string
	Registries               ecosystem.Registries
}

type fileConfig struct {
	LogFormat                string         `toml:"log_format"`
	LogLevel                 string         `toml:"log_level"`
	LogTimeKey               string         `toml:"log_time_key"`
	PrometheusPushGatewayURL string         `toml:"prometheus_pushgateway_url"`
	Registries               registryConfig `toml:"registries"`
}

type registryConfig struct {
	RubyGemsURL string `toml:"rubygems_url"`
	PyPIURL     string `toml:"pypi_url"`
	GoProxyURL  string `toml:"goproxy_url"`
	GoSumDBURL  string `toml:"gosumdb_url"`
}

// LookupEnvFunc returns the value of an environment variable and if it is
// set. os.LookupEnv is the implementation used outside of tests.
type LookupEnvFunc func(key string) (string, bool)

// Load creates the Config from environment variables that are retrieved
// via lookupEnv and the TOML formatted file.
// file is optional and can be nil.
func Load(lookupEnv LookupEnvFunc, file io.Reader) (*Config, error) {
	fileCfg, err := loadFile(file)
	if err != nil {
		return nil, fmt.Errorf("parsing configuration file failed: %w", err)
	}

	result := Config{
		LogFormat:                withDefault(fileCfg.LogFormat, defaultLogFormat),
		LogLevel:                 withDefault(fileCfg.LogLevel, defaultLogLevel),
		LogTimeKey:               withDefault(fileCfg.LogTimeKey, defaultLogTimeKey),
		PrometheusPushGatewayURL: fileCfg.PrometheusPushGatewayURL,
		Registries: ecosystem.Registries{
			RubyGemsURL: fileCfg.Registries.RubyGemsURL,
			PyPIURL:     fileCfg.Registries.PyPIURL,
			GoProxyURL:  fileCfg.Registries.GoProxyURL,
			GoSumDBURL:  fileCfg.Registries.GoSumDBURL,
		},
	}

	if err := validateLogSettings(&result); err != nil {
		return nil, err
	}

	env := func(key string) string {
		val, _ := lookupEnv(key)
		return strings.TrimSpace(val)
	}

	result.ProjectPath = env(EnvProjectPath)
	if result.ProjectPath == "" {
		return nil, ErrMissingProjectPath
	}

	result.GitLabHostname = withDefault(env(EnvGitLabHostname), defaultGitLabHostname)
	result.APIEndpoint = fmt.Sprintf("https://%s/api/v4", result.GitLabHostname)
	result.GitHubToken = env(EnvGitHubToken)
	result.GitLabToken = env(EnvGitLabToken)
	result.Directory = withDefault(env(EnvDirectory), defaultDirectory)
	result.SourceBranch = env(EnvSourceBranch)
	result.DependencyFilter = env(EnvDependencyFilter)
	result.Labels = strings.Fields(env(EnvMergeRequestLabels))

	extraCreds, err := parseCredentials(env(EnvExtraCredentials))
	if err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", EnvExtraCredentials, err)
	}
	result.Credentials = assembleCredentials(result.GitLabHostname, result.GitHubToken, result.GitLabToken, extraCreds)

	result.PackageManager = withDefault(env(EnvPackageManager), defaultPackageManager)
	if !ecosystem.IsSupported(result.PackageManager) {
		return nil, fmt.Errorf("%s: %w: %q, supported: %s",
			EnvPackageManager, ecosystem.ErrUnsupportedPackageManager,
			result.PackageManager, strings.Join(ecosystem.PackageManagers(), ", "),
		)
	}

	result.RequirementsUpdateStrategy, err = deps.ParseRequirementsUpdateStrategy(env(EnvUpdateStrategy))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvUpdateStrategy, err)
	}

	result.ExcludedUnlockStrategies, err = deps.ParseUnlockStrategySet(env(EnvExcludeUnlockStrategies))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvExcludeUnlockStrategies, err)
	}

	result.IgnoredVersions, err = parseIgnoredVersions(env(EnvIgnoredVersions))
	if err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", EnvIgnoredVersions, err)
	}

	result.AssigneeIDs, err = parseIntList(env(EnvAssignees))
	if err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", EnvAssignees, err)
	}

	result.MaxMergeRequests, err = parseMaxMergeRequests(env(EnvMaxMergeRequests))
	if err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", EnvMaxMergeRequests, err)
	}

	result.ApproveMergeRequests = parseFlag(env(EnvApproveMergeRequest))
	result.AutoMerge = parseFlag(env(EnvAutoMerge))
	result.Dashboard = parseFlag(env(EnvDashboard))
	result.FailOnError = parseFlag(env(EnvFailOnError))
	result.DryRun = parseFlag(env(EnvDryRun))

	if _, err := depfilter.Parse(result.DependencyFilter); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvDependencyFilter, err)
	}

	return &result, nil
}

func loadFile(reader io.Reader) (*fileConfig, error) {
	var result fileConfig

	if reader == nil {
		return &result, nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func validateLogSettings(c *Config) error {
	var lvl zapcore.Level
	if err := lvl.Set(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	switch c.LogFormat {
	case "logfmt", "console", "json":
		return nil
	default:
		return fmt.Errorf("unsupported log_format: %q", c.LogFormat)
	}
}

func withDefault(val, def string) string {
	if val == "" {
		return def
	}

	return val
}

// parseFlag returns false for an empty string, the parsed value when val
// is a boolean and true for all other values.
func parseFlag(val string) bool {
	if val == "" {
		return false
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return true
	}

	return b
}

func assembleCredentials(gitlabHostname, githubToken, gitlabToken string, extra deps.Credentials) deps.Credentials {
	result := make(deps.Credentials, 0, 2+len(extra))

	result = append(result,
		&deps.Credential{
			Type:     gitSourceCredentialType,
			Host:     gitHubHostname,
			Username: gitSourceCredentialUsername,
			Password: githubToken,
		},
		&deps.Credential{
			Type:     gitSourceCredentialType,
			Host:     gitlabHostname,
			Username: gitSourceCredentialUsername,
			Password: gitlabToken,
		},
	)

	return append(result, extra...)
}

func parseCredentials(val string) (deps.Credentials, error) {
	if val == "" {
		return nil, nil
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, err
	}

	result := make(deps.Credentials, 0, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("element %d: is null, expected an object", i)
		}

		var cred deps.Credential
		var err error

		if cred.Type, err = maputils.StrVal(entry, "type"); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if cred.Host, err = maputils.StrVal(entry, "host"); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if cred.Username, err = maputils.StrVal(entry, "username"); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if cred.Password, err = maputils.FirstStrVal(entry, "password", "token"); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		result = append(result, &cred)
	}

	return result, nil
}

func parseIgnoredVersions(val string) (map[string][]string, error) {
	result := map[string][]string{}

	if val == "" {
		return result, nil
	}

	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}

	return result, nil
}

func parseIntList(val string) ([]int, error) {
	fields := strings.Fields(val)
	if len(fields) == 0 {
		return nil, nil
	}

	result := make([]int, 0, len(fields))
	for _, f := range fields {
		i, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}

		result = append(result, i)
	}

	return result, nil
}

func parseMaxMergeRequests(val string) (int, error) {
	if val == "" {
		return 0, nil
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}

	if i < 0 {
		return 0, errors.New("value must be >= 0")
	}

	return i, nil
}
