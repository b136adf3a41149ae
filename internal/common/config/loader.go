package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Task types served by the worker manager.
const (
	TaskSearchDocuments   = "search-documents"
	TaskAutocompleteQuery = "autocomplete-query"
	TaskRecommendItems    = "recommend-items"
	TaskRecordInteraction = "record-interaction"
	TaskIndexDocuments    = "index-documents"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top, expands ${ENV} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)

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

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	candidates := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

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
		switch val := v.Get(key).(type) {
		case string:
			if expanded, ok := expand(val); ok {
				v.Set(key, expanded)
			}
		case []interface{}:
			out := make([]string, 0, len(val))
			changed := false
			for _, item := range val {
				str := fmt.Sprint(item)
				if expanded, ok := expand(str); ok {
					str = expanded
					changed = true
				}
				if str != "" {
					out = append(out, str)
				}
			}
			if changed {
				v.Set(key, out)
			}
		}
	}
}

func expand(s string) (string, bool) {
	if !strings.Contains(s, "$") {
		return s, false
	}
	expanded := os.ExpandEnv(s)
	return expanded, expanded != s
}

// overrideEmptyConfig fills secrets that are commonly provided only as
// plain environment variables.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Elasticsearch.Username, "ELASTICSEARCH_USERNAME"},
		{&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.Analytics.SNS.TopicARN, "ANALYTICS_SNS_TOPIC_ARN"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			*o.target = os.Getenv(o.env)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "discovery-workers"
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

	pg := &cfg.Database.Postgres
	if pg.Port == 0 {
		pg.Port = 5432
	}
	if pg.MaxConnections == 0 {
		pg.MaxConnections = 25
	}
	if pg.MaxIdle == 0 {
		pg.MaxIdle = 5
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}

	es := &cfg.Database.Elasticsearch
	if es.CatalogIndex == "" {
		es.CatalogIndex = "catalog"
	}
	if es.InteractionsIndex == "" {
		es.InteractionsIndex = "interactions"
	}
	if es.MaxRetries == 0 {
		es.MaxRetries = 3
	}
	if es.RequestTimeout == 0 {
		es.RequestTimeout = 30000
	}

	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 20
	}
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "discovery:"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, w := range cfg.Workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = 5
		}
		if w.Timeout == 0 {
			w.Timeout = 30000
		}
		if w.MaxRetries == 0 {
			w.MaxRetries = 3
		}
		cfg.Workers[key] = w
	}

	s := &cfg.Search
	setDefault(&s.DefaultPageSize, 20)
	setDefault(&s.MaxPageSize, 100)
	setDefault(&s.CacheTTL, 300)
	setDefault(&s.QueryTimeout, 30000)

	a := &cfg.Autocomplete
	setDefault(&a.MinPrefixLength, 2)
	setDefault(&a.DefaultLimit, 10)
	setDefault(&a.MaxLimit, 50)
	setDefault(&a.StrategyTimeout, 2000)
	setDefault(&a.CacheTTL, 300)

	r := &cfg.Recommend
	setDefault(&r.DefaultLimit, 10)
	setDefault(&r.MaxLimit, 100)
	setDefault(&r.HistoryWindow, 100)
	setDefault(&r.SimilarUsers, 50)
	setDefault(&r.FetchConcurrency, 8)
	setDefault(&r.CacheTTL, 1800)
	if r.SimilarityFloor == 0 {
		r.SimilarityFloor = 0.1
	}
	if r.CollaborativeWeight == 0 && r.ContentWeight == 0 {
		r.CollaborativeWeight = 0.7
		r.ContentWeight = 0.3
	}

	in := &cfg.Interactions
	if in.Backend == "" {
		in.Backend = "postgres"
	}
	setDefault(&in.Window, 100)
	setDefault(&in.CacheTTL, 120)

	setDefault(&cfg.Catalog.BatchSize, 500)

	setDefault(&cfg.Cache.InvalidationQueueSize, 256)
	setDefault(&cfg.Cache.OperationTimeout, 2000)

	setDefault(&cfg.Analytics.QueueSize, 1024)
	setDefault(&cfg.Analytics.SinkTimeout, 5000)
	if cfg.Analytics.KeyPrefix == "" {
		cfg.Analytics.KeyPrefix = "analytics:queries:"
	}

	b := &cfg.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 3
	}
	if b.FailureThreshold == 0 {
		b.FailureThreshold = 5
	}
	setDefault(&b.Interval, 60000)
	setDefault(&b.Timeout, 30000)

	if cfg.Ops.Address == "" {
		cfg.Ops.Address = ":8080"
	}
}

func setDefault(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Interactions.Backend {
	case "postgres":
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database are required for the postgres interaction log")
		}
	case "index":
	default:
		return fmt.Errorf("interactions.backend must be postgres or index, got %q", cfg.Interactions.Backend)
	}

	r := cfg.Recommend
	if r.SimilarityFloor < 0 || r.SimilarityFloor > 1 {
		return fmt.Errorf("recommend.similarity_floor must be within [0,1]")
	}
	if r.CollaborativeWeight < 0 || r.ContentWeight < 0 {
		return fmt.Errorf("recommend weights must be non-negative")
	}
	if cfg.Search.DefaultPageSize > cfg.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size exceeds search.max_page_size")
	}
	if cfg.Analytics.SNS.Enabled && cfg.Analytics.SNS.TopicARN == "" {
		return fmt.Errorf("analytics.sns.topic_arn is required when SNS publishing is enabled")
	}
	return nil
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, exists := cfg.Workers[workerName]; exists {
		return w
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	return GetWorkerConfig(cfg, workerName).Enabled
}
