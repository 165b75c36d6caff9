// Package app assembles the chat service from configuration. Every binary
// under cmd/ starts here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"scholarship-agent/internal/catalog"
	"scholarship-agent/internal/config"
	"scholarship-agent/internal/integrations/endpoint"
	"scholarship-agent/internal/integrations/openai"
	"scholarship-agent/internal/integrations/paramstore"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/metrics"
	"scholarship-agent/internal/session"
	"scholarship-agent/internal/usecase"
)

const (
	warnMissingKey = "The AI assistant is not configured, so answers come straight from the scholarship catalog."
	warnDisabled   = "AI answers are turned off, so answers come straight from the scholarship catalog."
)

// AWS builds the AWS clients the app needs. It is called at most once and
// only when a DynamoDB catalog or an SSM key lookup is configured.
type AWS func(ctx context.Context) (catalog.TableReader, paramstore.Getter, error)

// Deps overrides external collaborators, mainly in tests.
type Deps struct {
	AWS        AWS
	HTTPClient *http.Client
}

type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics
	Catalog *catalog.Catalog
	Chat    *usecase.ChatService
}

// New loads the catalog, resolves the generator and returns the wired
// service. A missing API key is not an error: the service runs in local
// mode and carries the configuration warning.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if deps.AWS == nil {
		deps.AWS = DefaultAWS(cfg.CatalogTable)
	}

	aws := &lazyAWS{build: deps.AWS}

	cat, err := loadCatalog(ctx, cfg, aws)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}
	log.Info("catalog loaded", map[string]interface{}{
		"source":  cfg.CatalogSource,
		"version": cat.Version(),
		"records": cat.Len(),
	})

	gen, warning := newGenerator(ctx, cfg, log, aws, deps.HTTPClient)

	m := metrics.New()
	registry := session.NewRegistry(
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithHistoryWindow(cfg.HistoryWindow),
		session.WithActiveRecorder(m),
	)
	chat, err := usecase.NewChatService(cat, registry, gen, usecase.ChatOptions{
		RemoteTimeout:      cfg.RemoteTimeout,
		FallbackLimit:      cfg.FallbackLimit,
		MaxUtteranceLength: cfg.MaxUtteranceLength,
		Warning:            warning,
		Logger:             log,
		Metrics:            m,
	})
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: log, Metrics: m, Catalog: cat, Chat: chat}, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, aws *lazyAWS) (*catalog.Catalog, error) {
	opts := catalog.Options{
		Source:  cfg.CatalogSource,
		Path:    cfg.CatalogPath,
		Version: cfg.CatalogVersion,
	}
	if cfg.CatalogSource == catalog.SourceDynamoDB {
		tables, _, err := aws.get(ctx)
		if err != nil {
			return nil, err
		}
		opts.Tables = tables
	}
	return catalog.Load(ctx, opts)
}

// newGenerator returns nil and a banner warning when no generator can be
// used.
func newGenerator(ctx context.Context, cfg *config.Config, log logger.Logger, aws *lazyAWS, hc *http.Client) (usecase.Generator, string) {
	if !cfg.Remote() {
		log.Info("remote generation disabled by configuration", nil)
		return nil, warnDisabled
	}

	if gap := cfg.RemoteGap(); gap != "" {
		cerr := usecase.NewConfigurationError(gap+"_missing", nil)
		log.WithError(cerr).Warn("remote provider incomplete, falling back to local mode", map[string]interface{}{
			"provider": cfg.Provider,
			"missing":  gap,
		})
		return nil, warnMissingKey
	}

	key, err := resolveAPIKey(ctx, cfg, aws)
	if err != nil {
		cerr := usecase.NewConfigurationError("api_key_unavailable", err)
		log.WithError(cerr).Warn("no API key, falling back to local mode", map[string]interface{}{
			"provider": cfg.Provider,
		})
		return nil, warnMissingKey
	}

	var gen usecase.Generator
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithBaseURL(cfg.OpenAIBaseURL)}
		if hc != nil {
			opts = append(opts, openai.WithHTTPClient(hc))
		}
		gen, err = openai.NewClient(key, cfg.OpenAIModel, opts...)
	default:
		opts := []endpoint.Option{endpoint.WithAPIKey(key)}
		if hc != nil {
			opts = append(opts, endpoint.WithHTTPClient(hc))
		}
		gen, err = endpoint.NewClient(cfg.EndpointURL, opts...)
	}
	if err != nil {
		log.WithError(usecase.NewConfigurationError("generator_unavailable", err)).Warn("generator could not be created, falling back to local mode", nil)
		return nil, warnMissingKey
	}
	log.Info("remote generation enabled", map[string]interface{}{"provider": cfg.Provider})
	return gen, ""
}

func resolveAPIKey(ctx context.Context, cfg *config.Config, aws *lazyAWS) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if cfg.ParamPrefix == "" {
		return "", errors.New("api_key and param_prefix are both empty")
	}
	_, getter, err := aws.get(ctx)
	if err != nil {
		return "", err
	}
	return paramstore.ResolveToken(ctx, getter, paramstore.TokenParameter(cfg.ParamPrefix))
}

type lazyAWS struct {
	build   AWS
	done    bool
	tables  catalog.TableReader
	params  paramstore.Getter
	loadErr error
}

func (l *lazyAWS) get(ctx context.Context) (catalog.TableReader, paramstore.Getter, error) {
	if !l.done {
		l.tables, l.params, l.loadErr = l.build(ctx)
		l.done = true
	}
	return l.tables, l.params, l.loadErr
}

// DefaultAWS loads the shared AWS config and builds the DynamoDB catalog
// table (when table is set) and the SSM parameter client.
func DefaultAWS(table string) AWS {
	return func(ctx context.Context) (catalog.TableReader, paramstore.Getter, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, nil, err
		}
		if table == "" {
			return nil, params, nil
		}
		tables, err := catalog.NewTable(awsdynamodb.NewFromConfig(awsCfg), table)
		if err != nil {
			return nil, nil, err
		}
		return tables, params, nil
	}
}
