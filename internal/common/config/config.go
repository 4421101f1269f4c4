// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Query      QueryConfig      `mapstructure:"query"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Suggest    SuggestConfig    `mapstructure:"suggest"`
	ReplyCache ReplyCacheConfig `mapstructure:"reply_cache"`
	Camunda    CamundaConfig    `mapstructure:"camunda"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string `mapstructure:"-"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the inbound HTTP settings.
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Catalog sources.
const (
	CatalogSourceHTTP          = "http"
	CatalogSourceFile          = "file"
	CatalogSourcePostgres      = "postgres"
	CatalogSourceElasticsearch = "elasticsearch"
)

// DefaultCatalogURL is the published transmission catalog.
const DefaultCatalogURL = "https://raw.githubusercontent.com/manuelnamarupa-wq/transmision-api/main/api/transmissions.json"

type CatalogConfig struct {
	Source          string             `mapstructure:"source"`
	URL             string             `mapstructure:"url"`
	Path            string             `mapstructure:"path"`
	Watch           bool               `mapstructure:"watch"`
	Table           string             `mapstructure:"table"`
	Index           string             `mapstructure:"index"`
	RefreshInterval int                `mapstructure:"refresh_interval"` // milliseconds, 0 = never expire
	FetchTimeout    int                `mapstructure:"fetch_timeout"`    // milliseconds
	MaxCandidates   int                `mapstructure:"max_candidates"`
	GroupBy         string             `mapstructure:"group_by"`
	Snapshot        SnapshotConfig     `mapstructure:"snapshot"`
	Placeholders    PlaceholdersConfig `mapstructure:"placeholders"`
}

// SnapshotConfig controls the Redis copy of the last good catalog.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Key     string `mapstructure:"key"`
	TTL     int    `mapstructure:"ttl"` // milliseconds
}

type PlaceholdersConfig struct {
	Codes []string `mapstructure:"codes"`
	Label string   `mapstructure:"label"`
}

type QueryConfig struct {
	MinTokenLength     int      `mapstructure:"min_token_length"`
	ImplicitSpeedCount *bool    `mapstructure:"implicit_speed_count"`
	ExtraStopWords     []string `mapstructure:"extra_stop_words"`
}

// Completion providers.
const (
	ProviderGemini  = "gemini"
	ProviderGateway = "gateway"
)

type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
	MaxRetries      int     `mapstructure:"max_retries"`
	RateLimitRPS    float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Spell correctors.
const (
	CorrectorLLM         = "llm"
	CorrectorLevenshtein = "levenshtein"
)

type SuggestConfig struct {
	Corrector   string `mapstructure:"corrector"`
	MaxDistance int    `mapstructure:"max_distance"`
}

type ReplyCacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig is optional: an empty address disables both the catalog
// snapshot and the reply cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AlertsConfig struct {
	SNS SNSConfig `mapstructure:"sns"`
}

// SNSConfig publishes catalog outage notifications.
type SNSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Region      string `mapstructure:"region"`
	TopicARN    string `mapstructure:"topic_arn"`
	MinInterval int    `mapstructure:"min_interval"` // milliseconds between alerts
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
