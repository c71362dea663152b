package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/nikogura/resume-analyzer/pkg/analysis"
	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/dedup"
	"github.com/nikogura/resume-analyzer/pkg/llm"
	"github.com/nikogura/resume-analyzer/pkg/logging"
	"github.com/nikogura/resume-analyzer/pkg/notify"
	"github.com/nikogura/resume-analyzer/pkg/pipeline"
	"github.com/nikogura/resume-analyzer/pkg/server"
	"github.com/nikogura/resume-analyzer/pkg/storage"
	"github.com/pkg/errors"
)

// loadConfig loads the configuration and builds the process logger from it.
// --verbose forces debug level.
func loadConfig() (cfg config.Config, logger *slog.Logger, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, logger, err
	}

	level := cfg.Logging.Level
	if getVerbose() {
		level = "DEBUG"
	}

	logger, err = logging.Setup(os.Stderr, level, cfg.Logging.Format)
	if err != nil {
		return cfg, logger, err
	}

	return cfg, logger, err
}

// newCompleter returns the model client for the configured provider, or nil when no API
// key is set so that analysis starts at the rule-based tier.
func newCompleter(cfg config.Config, logger *slog.Logger) (completer llm.Completer) {
	key := cfg.APIKey()
	if key == "" {
		logger.Warn("no model API key configured, using rule-based analysis", "provider", cfg.Model.Provider)
		return completer
	}

	switch cfg.Model.Provider {
	case config.ProviderAnthropic:
		completer = llm.NewClient(key, cfg.Model.Name)
	default:
		completer = llm.NewOpenAIClient(key, cfg.Model.Name, cfg.Model.BaseURL)
	}
	return completer
}

func newAnalyzer(cfg config.Config, logger *slog.Logger) (chain *analysis.Chain) {
	chain = analysis.NewDefaultChain(cfg, newCompleter(cfg, logger), logger)
	return chain
}

func loadAWSConfig(ctx context.Context, cfg config.Config) (awsCfg aws.Config, err error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}

	awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		err = errors.Wrap(err, "failed to load AWS configuration")
		return awsCfg, err
	}
	return awsCfg, err
}

// app holds everything a long-running command needs.
type app struct {
	processor *pipeline.Processor
	store     dedup.Store
	checks    map[string]server.Checker
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// appOptions choose local stand-ins for AWS.
type appOptions struct {
	// localRoot serves objects from <localRoot>/<bucket>/<key> instead of S3.
	localRoot string
	// events receives JSON lines instead of SNS when set.
	events io.Writer
}

// newApp wires the processor. AWS clients are only created when S3 or SNS are used.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (rt *app, err error) {
	rt = &app{checks: map[string]server.Checker{}}

	needS3 := opts.localRoot == ""
	needSNS := opts.events == nil && cfg.AWS.TopicARN != ""

	var awsCfg aws.Config
	if needS3 || needSNS {
		awsCfg, err = loadAWSConfig(ctx, cfg)
		if err != nil {
			return rt, err
		}
	}

	var fetcher storage.Fetcher
	if needS3 {
		fetcher = storage.NewS3Fetcher(s3.NewFromConfig(awsCfg), cfg.Processing.MaxFileSize, logger)
	} else {
		fetcher = storage.NewDirFetcher(opts.localRoot, cfg.Processing.MaxFileSize)
	}

	var transport notify.Transport
	switch {
	case opts.events != nil:
		transport = notify.NewWriterPublisher(opts.events)
	case needSNS:
		snsPub := notify.NewSNSPublisher(sns.NewFromConfig(awsCfg), cfg.AWS.TopicARN, logger)
		rt.checks["sns"] = snsPub
		transport = snsPub
	default:
		logger.Warn("no SNS topic configured, results will only be logged")
		transport = notify.NewLogPublisher(logger)
	}
	transport = notify.NewRetrying(transport, notify.DefaultPublishAttempts, cfg.RetryDelay(), logger)

	var store dedup.Store
	store, err = dedup.New(ctx, cfg)
	if err != nil {
		err = errors.Wrapf(err, "failed to open %s dedup store", cfg.Dedup.Backend)
		return rt, err
	}
	rt.store = store

	rt.processor = pipeline.NewProcessor(cfg, pipeline.Deps{
		Fetcher:   fetcher,
		Analyzer:  newAnalyzer(cfg, logger),
		Store:     rt.store,
		Publisher: notify.NewNotifier(transport, logger),
	}, logger)

	return rt, err
}
