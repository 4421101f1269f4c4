package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "transmission-api/internal/common/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: transmission-api\n"))
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, CatalogSourceHTTP, cfg.Catalog.Source)
	assert.Equal(t, DefaultCatalogURL, cfg.Catalog.URL)
	assert.Equal(t, 10, cfg.Catalog.MaxCandidates)
	assert.Equal(t, "none", cfg.Catalog.GroupBy)
	assert.Equal(t, 2, cfg.Query.MinTokenLength)
	require.NotNil(t, cfg.Query.ImplicitSpeedCount)
	assert.True(t, *cfg.Query.ImplicitSpeedCount)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, time.Hour, GetDuration(cfg.Catalog.RefreshInterval))
	assert.Contains(t, cfg.Catalog.Placeholders.Codes, "TBD")
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TEST_LLM_KEY", "from-placeholder")
	t.Setenv("TEST_CATALOG_PATH", "/tmp/catalog.json")

	cfg, err := LoadFromFile(writeConfig(t, `
llm:
  api_key: ${TEST_LLM_KEY}
catalog:
  source: file
  path: ${TEST_CATALOG_PATH}
  max_candidates: 5
  group_by: trans_model
query:
  implicit_speed_count: false
`))
	require.NoError(t, err)

	assert.Equal(t, "from-placeholder", cfg.LLM.APIKey)
	assert.Equal(t, "/tmp/catalog.json", cfg.Catalog.Path)
	assert.Equal(t, 5, cfg.Catalog.MaxCandidates)
	assert.Equal(t, "trans_model", cfg.Catalog.GroupBy)
	require.NotNil(t, cfg.Query.ImplicitSpeedCount)
	assert.False(t, *cfg.Query.ImplicitSpeedCount)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		body    string
		wantMsg string
	}{
		{
			name:    "missing api key fails fast",
			apiKey:  "",
			body:    "app:\n  name: x\n",
			wantMsg: "GEMINI_API_KEY",
		},
		{
			name:    "unknown catalog source",
			apiKey:  "k",
			body:    "catalog:\n  source: ftp\n",
			wantMsg: "catalog.source",
		},
		{
			name:    "gateway without base url",
			apiKey:  "k",
			body:    "llm:\n  provider: gateway\n",
			wantMsg: "llm.base_url",
		},
		{
			name:    "postgres source without connection",
			apiKey:  "k",
			body:    "catalog:\n  source: postgres\n",
			wantMsg: "database.postgres",
		},
		{
			name:    "snapshot without redis",
			apiKey:  "k",
			body:    "catalog:\n  snapshot:\n    enabled: true\n",
			wantMsg: "database.redis.address",
		},
		{
			name:    "sns without topic",
			apiKey:  "k",
			body:    "alerts:\n  sns:\n    enabled: true\n",
			wantMsg: "topic_arn",
		},
		{
			name:    "completion timeout beyond request deadline",
			apiKey:  "k",
			body:    "server:\n  request_timeout: 10000\nllm:\n  timeout: 15000\n",
			wantMsg: "llm.timeout",
		},
		{
			name:    "unknown grouping key",
			apiKey:  "k",
			body:    "catalog:\n  group_by: engine\n",
			wantMsg: "catalog.group_by",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.apiKey)
			t.Setenv("ALERTS_SNS_TOPIC_ARN", "")
			t.Setenv("REDIS_ADDRESS", "")

			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")

			var stdErr *apperrors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, apperrors.ErrCodeConfigInvalid, stdErr.Code)
			assert.Contains(t, stdErr.Details, tt.wantMsg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestElasticsearchConfig_GetURL(t *testing.T) {
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "http://u:9200", ElasticsearchConfig{URL: "http://u:9200", Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Equal(t, "", ElasticsearchConfig{}.GetURL())
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cat", SSLMode: "disable"}.GetDSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cat sslmode=disable", dsn)
}
