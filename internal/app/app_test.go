package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scholarship-agent/internal/catalog"
	"scholarship-agent/internal/config"
	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/integrations/paramstore"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/usecase"
)

func baseConfig() *config.Config {
	return &config.Config{
		Provider:           config.ProviderEndpoint,
		EndpointURL:        "http://127.0.0.1:1/chat",
		OpenAIBaseURL:      "https://api.openai.com/v1",
		OpenAIModel:        "gpt-4o-mini",
		RemoteTimeout:      time.Second,
		HistoryWindow:      10,
		FallbackLimit:      5,
		MaxUtteranceLength: 1000,
		CatalogSource:      catalog.SourceEmbedded,
		SessionIdleTTL:     time.Minute,
	}
}

type fakeGetter struct {
	value string
	err   error
	names []string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.names = append(f.names, name)
	return f.value, f.err
}

type fakeTables struct {
	version string
	cat     *catalog.Catalog
}

func (f *fakeTables) LoadVersion(_ context.Context, version string) (*catalog.Catalog, error) {
	f.version = version
	return f.cat, nil
}

func awsWith(tables catalog.TableReader, getter paramstore.Getter, err error, calls *int) AWS {
	return func(context.Context) (catalog.TableReader, paramstore.Getter, error) {
		*calls++
		return tables, getter, err
	}
}

func TestNew_DirectKeyNeedsNoAWS(t *testing.T) {
	calls := 0
	cfg := baseConfig()
	cfg.APIKey = "k"
	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{AWS: awsWith(nil, nil, errors.New("unused"), &calls)})
	require.NoError(t, err)
	require.Equal(t, usecase.ModeRemote, a.Chat.Mode())
	require.Empty(t, a.Chat.Warning())
	require.Zero(t, calls)
	require.NotZero(t, a.Catalog.Len())
}

func TestNew_KeyFromParameterStore(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"reply":"from endpoint"}`))
	}))
	defer srv.Close()

	calls := 0
	getter := &fakeGetter{value: `{"token":"ssm-key"}`}
	cfg := baseConfig()
	cfg.EndpointURL = srv.URL
	cfg.ParamPrefix = "/scholarship/dev"

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{AWS: awsWith(nil, getter, nil, &calls)})
	require.NoError(t, err)
	require.Equal(t, usecase.ModeRemote, a.Chat.Mode())
	require.Equal(t, []string{"/scholarship/dev/api-key"}, getter.names)

	s, err := a.Chat.StartSession("en")
	require.NoError(t, err)
	msg, err := a.Chat.SendText(context.Background(), s, "SC student BTech")
	require.NoError(t, err)
	require.Equal(t, "from endpoint", msg.Text)
	require.Equal(t, "Bearer ssm-key", gotAuth)
}

func TestNew_MissingKeyFallsBackToLocal(t *testing.T) {
	cases := map[string]func(*config.Config) AWS{
		"no key and no prefix": func(cfg *config.Config) AWS {
			calls := 0
			return awsWith(nil, nil, nil, &calls)
		},
		"ssm failure": func(cfg *config.Config) AWS {
			cfg.ParamPrefix = "/p"
			calls := 0
			return awsWith(nil, &fakeGetter{err: errors.New("AccessDenied")}, nil, &calls)
		},
		"aws config failure": func(cfg *config.Config) AWS {
			cfg.ParamPrefix = "/p"
			calls := 0
			return awsWith(nil, nil, errors.New("no region"), &calls)
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			aws := setup(cfg)
			a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{AWS: aws})
			require.NoError(t, err)
			require.Equal(t, usecase.ModeLocal, a.Chat.Mode())
			require.Equal(t, warnMissingKey, a.Chat.Warning())

			s, err := a.Chat.StartSession("")
			require.NoError(t, err)
			require.Equal(t, warnMissingKey, s.Banner())
		})
	}
}

func TestNew_EmptyConfigurationRunsLocally(t *testing.T) {
	cfg := baseConfig()
	cfg.EndpointURL = ""
	cfg.ParamPrefix = "/scholarship/dev"
	calls := 0

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{AWS: awsWith(nil, &fakeGetter{value: "k"}, nil, &calls)})
	require.NoError(t, err)
	require.Equal(t, usecase.ModeLocal, a.Chat.Mode())
	require.Equal(t, warnMissingKey, a.Chat.Warning())
	require.Zero(t, calls)

	s, err := a.Chat.StartSession("en")
	require.NoError(t, err)
	require.Equal(t, warnMissingKey, s.Banner())
	msg, err := a.Chat.SendText(context.Background(), s, "SC student in BTech")
	require.NoError(t, err)
	require.Contains(t, msg.Text, "Post-Matric Fee Reimbursement for SC Students")
}

func TestNew_ProviderNone(t *testing.T) {
	cfg := baseConfig()
	cfg.Provider = config.ProviderNone
	cfg.APIKey = "k"
	a, err := New(context.Background(), cfg, nil, Deps{})
	require.NoError(t, err)
	require.Equal(t, usecase.ModeLocal, a.Chat.Mode())
	require.Equal(t, warnDisabled, a.Chat.Warning())
}

func TestNew_OpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"openai says hi"}}]}`))
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.Provider = config.ProviderOpenAI
	cfg.OpenAIBaseURL = srv.URL
	cfg.APIKey = "sk"
	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{HTTPClient: srv.Client()})
	require.NoError(t, err)

	s, err := a.Chat.StartSession("en")
	require.NoError(t, err)
	msg, err := a.Chat.SendText(context.Background(), s, "ST student doing MTech")
	require.NoError(t, err)
	require.Equal(t, "openai says hi", msg.Text)
}

func TestNew_DynamoDBCatalog(t *testing.T) {
	cat, err := catalog.New("2026-06", []domain.ScholarshipRecord{{
		ID: "x", Name: "Table Scheme", Categories: []string{"All"}, Benefit: "Rs 5000", ApplicationLink: "https://x.example",
	}})
	require.NoError(t, err)
	tables := &fakeTables{cat: cat}

	calls := 0
	cfg := baseConfig()
	cfg.Provider = config.ProviderNone
	cfg.CatalogSource = catalog.SourceDynamoDB
	cfg.CatalogTable = "catalog"
	cfg.CatalogVersion = "2026-06"

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Deps{AWS: awsWith(tables, nil, nil, &calls)})
	require.NoError(t, err)
	require.Equal(t, "2026-06", a.Chat.CatalogVersion())
	require.Equal(t, "2026-06", tables.version)
	require.Equal(t, 1, calls)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil, Deps{})
	require.Error(t, err)

	cfg := baseConfig()
	cfg.CatalogSource = "ftp"
	_, err = New(context.Background(), cfg, nil, Deps{})
	require.ErrorContains(t, err, "catalog_source")
}
