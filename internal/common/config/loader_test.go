package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  elasticsearch:
    addresses:
      - ${TEST_ES_URL}
  redis:
    address: localhost:6379
interactions:
  backend: index
workers:
  search-documents:
    enabled: true
`

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_ES_URL", "http://es.local:9200")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://es.local:9200"}, cfg.Database.Elasticsearch.GetAddresses())
	assert.Equal(t, "catalog", cfg.Database.Elasticsearch.CatalogIndex)

	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)
	assert.Equal(t, 2, cfg.Autocomplete.MinPrefixLength)
	assert.Equal(t, 2000, cfg.Autocomplete.StrategyTimeout)
	assert.Equal(t, 0.7, cfg.Recommend.CollaborativeWeight)
	assert.Equal(t, 0.3, cfg.Recommend.ContentWeight)
	assert.Equal(t, 0.1, cfg.Recommend.SimilarityFloor)
	assert.Equal(t, 50, cfg.Recommend.SimilarUsers)
	assert.Equal(t, 256, cfg.Cache.InvalidationQueueSize)
	assert.Equal(t, 500, cfg.Catalog.BatchSize)

	w := GetWorkerConfig(cfg, TaskSearchDocuments)
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFileRejectsMissingIndexAddress(t *testing.T) {
	t.Setenv("TEST_ES_URL", "")

	_, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch")
}

func TestValidateConfigRequiresPostgresForPostgresBackend(t *testing.T) {
	cfg := &Config{
		Camunda: CamundaConfig{BrokerAddress: "zeebe:26500"},
		Database: DatabaseConfig{
			Elasticsearch: ElasticsearchConfig{URL: "http://es:9200"},
			Redis:         RedisConfig{Address: "redis:6379"},
		},
	}
	applyDefaults(cfg)

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")

	cfg.Database.Postgres.Host = "pg"
	cfg.Database.Postgres.Database = "discovery"
	assert.NoError(t, validateConfig(cfg))
}

func TestUnknownWorkerDefaultsToEnabled(t *testing.T) {
	cfg := &Config{}
	assert.True(t, IsWorkerEnabled(cfg, "unknown-task"))

	cfg.Workers = map[string]WorkerConfig{TaskIndexDocuments: {Enabled: false}}
	assert.False(t, IsWorkerEnabled(cfg, TaskIndexDocuments))
}

func TestDurations(t *testing.T) {
	assert.Equal(t, "2s", GetDuration(2000).String())
	assert.Equal(t, "5m0s", GetTTL(300).String())
}
