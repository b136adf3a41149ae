package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Search       SearchConfig            `mapstructure:"search"`
	Autocomplete AutocompleteConfig      `mapstructure:"autocomplete"`
	Recommend    RecommendConfig         `mapstructure:"recommend"`
	Interactions InteractionsConfig      `mapstructure:"interactions"`
	Catalog      CatalogConfig           `mapstructure:"catalog"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Analytics    AnalyticsConfig         `mapstructure:"analytics"`
	Breaker      BreakerConfig           `mapstructure:"breaker"`
	Ops          OpsConfig               `mapstructure:"ops"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
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
	Addresses         []string `mapstructure:"addresses"`
	Username          string   `mapstructure:"username"`
	Password          string   `mapstructure:"password"`
	URL               string   `mapstructure:"url"`
	CatalogIndex      string   `mapstructure:"catalog_index"`
	InteractionsIndex string   `mapstructure:"interactions_index"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RequestTimeout    int      `mapstructure:"request_timeout"` // milliseconds
}

// GetAddresses returns Addresses, or URL when only the single URL is set.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// --- Discovery Configuration Sections ---

type SearchConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	CacheTTL        int `mapstructure:"cache_ttl"`     // seconds
	QueryTimeout    int `mapstructure:"query_timeout"` // milliseconds
}

type AutocompleteConfig struct {
	MinPrefixLength int `mapstructure:"min_prefix_length"`
	DefaultLimit    int `mapstructure:"default_limit"`
	MaxLimit        int `mapstructure:"max_limit"`
	StrategyTimeout int `mapstructure:"strategy_timeout"` // milliseconds
	CacheTTL        int `mapstructure:"cache_ttl"`        // seconds
}

type RecommendConfig struct {
	DefaultLimit        int     `mapstructure:"default_limit"`
	MaxLimit            int     `mapstructure:"max_limit"`
	HistoryWindow       int     `mapstructure:"history_window"`
	SimilarUsers        int     `mapstructure:"similar_users"`
	SimilarityFloor     float64 `mapstructure:"similarity_floor"`
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	ContentWeight       float64 `mapstructure:"content_weight"`
	FetchConcurrency    int     `mapstructure:"fetch_concurrency"`
	CacheTTL            int     `mapstructure:"cache_ttl"` // seconds
}

type InteractionsConfig struct {
	// Backend is "postgres" or "index".
	Backend  string `mapstructure:"backend"`
	Window   int    `mapstructure:"window"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

type CatalogConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type CacheConfig struct {
	Enabled               bool `mapstructure:"enabled"`
	InvalidationQueueSize int  `mapstructure:"invalidation_queue_size"`
	OperationTimeout      int  `mapstructure:"operation_timeout"` // milliseconds
}

type AnalyticsConfig struct {
	Enabled     bool      `mapstructure:"enabled"`
	QueueSize   int       `mapstructure:"queue_size"`
	KeyPrefix   string    `mapstructure:"key_prefix"`
	SinkTimeout int       `mapstructure:"sink_timeout"` // milliseconds
	SNS         SNSConfig `mapstructure:"sns"`
}

type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

type BreakerConfig struct {
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"` // milliseconds
	Timeout          int    `mapstructure:"timeout"`  // milliseconds
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
}

type OpsConfig struct {
	Address string `mapstructure:"address"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetTTL converts seconds from config to time.Duration
func GetTTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
