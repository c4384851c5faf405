package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/depupdater/internal/cfg"
	"github.com/simplesurance/depupdater/internal/dashboard"
	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/ecosystem"
	"github.com/simplesurance/depupdater/internal/githubclt"
	"github.com/simplesurance/depupdater/internal/gitlabclt"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/mergerequest"
	"github.com/simplesurance/depupdater/internal/registry"
	"github.com/simplesurance/depupdater/internal/retry"
	"github.com/simplesurance/depupdater/internal/updater"
)

const appName = "depupdater"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

const metricsPushTimeout = 30 * time.Second

// logSyncExitPriority ensures that the logger is flushed after all other
// exit handlers ran.
const logSyncExitPriority = 100

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

type gitlabClient interface {
	mergerequest.GitLabClient
	dashboard.IssueClient
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	ShowVersion *bool
}

var args arguments

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			"",
			"path to an optional configuration file for logging, metrics and package registries",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nCreate and update merge requests for outdated dependencies of a GitLab project.\n", appName)
		fmt.Fprintf(os.Stderr, "\nThe project and the update settings are configured via environment variables.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	var file io.Reader

	if *args.ConfigFile != "" {
		f, err := os.Open(*args.ConfigFile)
		exitOnErr("could not open configuration file", err)
		defer f.Close()

		file = f
	}

	config, err := cfg.Load(os.LookupEnv, file)
	exitOnErr("could not load configuration", err)

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	}, logSyncExitPriority)
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func registerMetricsPush(config *cfg.Config) {
	if config.PrometheusPushGatewayURL == "" {
		return
	}

	goodbye.Register(func(context.Context, os.Signal) {
		ctx, cancelFn := context.WithTimeout(context.Background(), metricsPushTimeout)
		defer cancelFn()

		err := updater.PushMetrics(ctx, config.PrometheusPushGatewayURL, config.ProjectPath)
		if err != nil {
			logger.Warn(
				"pushing metrics failed",
				logfields.Event("metrics_push_failed"),
				zap.Error(err),
			)
			return
		}

		logger.Debug("pushed metrics", logfields.Event("metrics_pushed"))
	})
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	logger.Info(
		"loaded configuration",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("gitlab_api_endpoint", config.APIEndpoint),
		zap.String("gitlab_token", hide(config.GitLabToken)),
		zap.String("github_token", hide(config.GitHubToken)),
		logfields.Project(config.ProjectPath),
		logfields.Directory(config.Directory),
		logfields.PackageManager(config.PackageManager),
		zap.String("requirements_update_strategy", string(config.RequirementsUpdateStrategy)),
		zap.Int("max_merge_requests", config.MaxMergeRequests),
		zap.Int("credentials", len(config.Credentials)),
		zap.Bool("approve", config.ApproveMergeRequests),
		zap.Bool("auto_merge", config.AutoMerge),
		zap.Bool("dashboard", config.Dashboard),
		zap.Bool("fail_on_error", config.FailOnError),
		zap.Bool("dry_run", config.DryRun),
		zap.String("dependency_filter", config.DependencyFilter),
		zap.String("log_format", config.LogFormat),
		zap.String("log_level", config.LogLevel),
	)

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		if !goodbye.IsNormalExit(sig) {
			logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
		}

		cancelFn()
	})

	registerMetricsPush(config)

	retryer := retry.NewRetryer()
	goodbye.Register(func(context.Context, os.Signal) {
		retryer.Stop()
	})

	gitlabClt, err := gitlabclt.New(config.APIEndpoint, config.GitLabToken, config.ProjectPath, retryer)
	exitOnErr("could not create gitlab client", err)

	targetBranch := config.SourceBranch
	if targetBranch == "" {
		targetBranch, err = gitlabClt.DefaultBranch(ctx)
		exitOnErr("could not retrieve default branch of project", err)
	}

	registryClt := registry.New(
		config.Credentials,
		retryer,
		registry.WithUserAgent(fmt.Sprintf("%s/%s", appName, Version)),
	)

	eco, err := ecosystem.New(config.PackageManager, &config.Registries, registryClt)
	exitOnErr("could not initialize package manager", err)

	var platformClt gitlabClient = gitlabClt

	if config.DryRun {
		platformClt = gitlabclt.NewDryClient(gitlabClt)
		logger.Info("dry-run mode enabled, changes are simulated", logfields.Event("dry_run_enabled"))
	}

	var reconcilerOpts []mergerequest.Option
	if config.GitHubToken != "" {
		reconcilerOpts = append(reconcilerOpts, mergerequest.WithReleaseNotes(
			mergerequest.NewGitHubReleaseNotes(eco, githubclt.New(config.GitHubToken), retryer),
		))
	}

	reconciler := mergerequest.New(platformClt, &mergerequest.Config{
		PackageManager: config.PackageManager,
		Language:       eco.Language(),
		Directory:      config.Directory,
		TargetBranch:   targetBranch,
		Labels:         config.Labels,
		AssigneeIDs:    config.AssigneeIDs,
		Approve:        config.ApproveMergeRequests,
		AutoMerge:      config.AutoMerge,
	}, reconcilerOpts...)

	var updaterOpts []updater.Option
	if config.Dashboard {
		updaterOpts = append(updaterOpts, updater.WithDashboard(platformClt))
	}

	upd, err := updater.New(eco, gitlabClt, reconciler, &updater.Config{
		Source: deps.Source{
			Provider:    "gitlab",
			Hostname:    config.GitLabHostname,
			APIEndpoint: config.APIEndpoint,
			Repo:        config.ProjectPath,
			Directory:   config.Directory,
			Branch:      targetBranch,
		},
		RequirementsUpdateStrategy: config.RequirementsUpdateStrategy,
		ExcludedUnlockStrategies:   config.ExcludedUnlockStrategies,
		IgnoredVersions:            config.IgnoredVersions,
		DependencyFilter:           config.DependencyFilter,
		MaxMergeRequests:           config.MaxMergeRequests,
		FailOnError:                config.FailOnError,
	}, updaterOpts...)
	exitOnErr("could not initialize updater", err)

	fmt.Printf("Fetching %s dependency files for %s\n", config.PackageManager, config.ProjectPath)

	_, err = upd.Run(ctx)
	if err != nil {
		logger.Error(
			"run failed",
			logfields.Event("run_failed"),
			zap.Error(err),
		)

		goodbye.Exit(context.Background(), 1)
	}

	fmt.Println("Done")

	goodbye.Exit(context.Background(), 0)
}
