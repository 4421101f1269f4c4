// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "transmission-api/internal/common/errors"
)

// Load reads configs/config.yaml (optional) merged with
// configs/config.<APP_ENVIRONMENT>.yaml, overlays the environment and validates.
func Load() (*Config, error) {
	envFile := loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	cfg, err := finish(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	envFile := loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := finish(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found and returns its path.
func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills well-known settings from their conventional
// environment variables when the file left them empty.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.LLM.APIKey, "GEMINI_API_KEY"},
		{&cfg.LLM.Model, "GEMINI_MODEL"},
		{&cfg.Catalog.URL, "CATALOG_URL"},
		{&cfg.Catalog.Path, "CATALOG_PATH"},
		{&cfg.Database.Redis.Address, "REDIS_ADDRESS"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Server.Address, "SERVER_ADDRESS"},
		{&cfg.Alerts.SNS.TopicARN, "ALERTS_SNS_TOPIC_ARN"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "transmission-api"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = CatalogSourceHTTP
	}
	if cfg.Catalog.Source == CatalogSourceHTTP && cfg.Catalog.URL == "" {
		cfg.Catalog.URL = DefaultCatalogURL
	}
	if cfg.Catalog.Table == "" {
		cfg.Catalog.Table = "transmissions"
	}
	if cfg.Catalog.Index == "" {
		cfg.Catalog.Index = "transmissions"
	}
	if cfg.Catalog.RefreshInterval == 0 {
		cfg.Catalog.RefreshInterval = 3600000
	}
	if cfg.Catalog.FetchTimeout == 0 {
		cfg.Catalog.FetchTimeout = 10000
	}
	if cfg.Catalog.MaxCandidates == 0 {
		cfg.Catalog.MaxCandidates = 10
	}
	if cfg.Catalog.GroupBy == "" {
		cfg.Catalog.GroupBy = "none"
	}
	if cfg.Catalog.Snapshot.Key == "" {
		cfg.Catalog.Snapshot.Key = "transmission:catalog:snapshot"
	}
	if cfg.Catalog.Snapshot.TTL == 0 {
		cfg.Catalog.Snapshot.TTL = 7 * 24 * 3600000
	}
	if len(cfg.Catalog.Placeholders.Codes) == 0 {
		cfg.Catalog.Placeholders.Codes = []string{"TBD", "N/A", "PENDIENTE", "POR CONFIRMAR"}
	}
	if cfg.Catalog.Placeholders.Label == "" {
		cfg.Catalog.Placeholders.Label = "Modelo por confirmar"
	}

	if cfg.Query.MinTokenLength == 0 {
		cfg.Query.MinTokenLength = 2
	}
	if cfg.Query.ImplicitSpeedCount == nil {
		enabled := true
		cfg.Query.ImplicitSpeedCount = &enabled
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGemini
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.0-flash"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 15000
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 500
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.RateLimitRPS == 0 {
		cfg.LLM.RateLimitRPS = 5
	}
	if cfg.LLM.RateLimitBurst == 0 {
		cfg.LLM.RateLimitBurst = 10
	}

	if cfg.Suggest.Corrector == "" {
		cfg.Suggest.Corrector = CorrectorLLM
	}
	if cfg.Suggest.MaxDistance == 0 {
		cfg.Suggest.MaxDistance = 3
	}

	if cfg.ReplyCache.TTL == 0 {
		cfg.ReplyCache.TTL = 3600000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Alerts.SNS.Region == "" {
		cfg.Alerts.SNS.Region = "us-east-1"
	}
	if cfg.Alerts.SNS.MinInterval == 0 {
		cfg.Alerts.SNS.MinInterval = 600000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	invalid := func(format string, args ...interface{}) error {
		return apperrors.NewConfigInvalidError(fmt.Sprintf(format, args...))
	}

	if cfg.LLM.APIKey == "" {
		return invalid("llm.api_key (GEMINI_API_KEY) is required")
	}
	switch cfg.LLM.Provider {
	case ProviderGemini:
	case ProviderGateway:
		if cfg.LLM.BaseURL == "" {
			return invalid("llm.base_url is required for the gateway provider")
		}
	default:
		return invalid("unknown llm.provider %q", cfg.LLM.Provider)
	}

	switch cfg.Catalog.Source {
	case CatalogSourceHTTP:
		if cfg.Catalog.URL == "" {
			return invalid("catalog.url is required for the http source")
		}
	case CatalogSourceFile:
		if cfg.Catalog.Path == "" {
			return invalid("catalog.path is required for the file source")
		}
	case CatalogSourcePostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return invalid("database.postgres.host and database are required for the postgres source")
		}
	case CatalogSourceElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return invalid("database.elasticsearch.addresses or url is required for the elasticsearch source")
		}
	default:
		return invalid("unknown catalog.source %q", cfg.Catalog.Source)
	}

	// A lookup that outlives the request deadline cannot deliver its degraded reply.
	if cfg.LLM.Timeout >= cfg.Server.RequestTimeout {
		return invalid("llm.timeout (%dms) must be below server.request_timeout (%dms)", cfg.LLM.Timeout, cfg.Server.RequestTimeout)
	}

	if cfg.Catalog.MaxCandidates < 0 || cfg.Catalog.RefreshInterval < 0 {
		return invalid("catalog.max_candidates and catalog.refresh_interval must not be negative")
	}
	switch cfg.Catalog.GroupBy {
	case "none", "trans_model", "make_model_trans_model":
	default:
		return invalid("unknown catalog.group_by %q", cfg.Catalog.GroupBy)
	}

	switch cfg.Suggest.Corrector {
	case CorrectorLLM, CorrectorLevenshtein:
	default:
		return invalid("unknown suggest.corrector %q", cfg.Suggest.Corrector)
	}

	if (cfg.Catalog.Snapshot.Enabled || cfg.ReplyCache.Enabled) && cfg.Database.Redis.Address == "" {
		return invalid("database.redis.address is required when the catalog snapshot or reply cache is enabled")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return invalid("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Alerts.SNS.Enabled && cfg.Alerts.SNS.TopicARN == "" {
		return invalid("alerts.sns.topic_arn is required when sns alerts are enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
