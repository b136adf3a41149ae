package e2e

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/cache"
	"discovery-workers/internal/catalog"
	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/database"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/discovery"
	"discovery-workers/internal/index"
	"discovery-workers/internal/interactions"
	"discovery-workers/internal/models"
	"discovery-workers/internal/recommend"
	"discovery-workers/internal/search"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newStack wires the facade against live Elasticsearch and Redis. The test
// is skipped when either is unreachable.
func newStack(t *testing.T) *discovery.Facade {
	t.Helper()
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{
		Addresses:      []string{env("ELASTICSEARCH_URL", "http://localhost:9200")},
		RequestTimeout: 5000,
	})
	require.NoError(t, err)
	if err := es.Ping(ctx); err != nil {
		t.Skipf("Skipping test: Elasticsearch not available: %v", err)
	}

	rdb := database.NewRedis(config.RedisConfig{Address: env("REDIS_ADDRESS", "localhost:6379"), PoolSize: 4})
	if err := rdb.Ping(ctx); err != nil {
		t.Skipf("Skipping test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	catalogIndex := "e2e-catalog-" + suffix
	interactionsIndex := "e2e-interactions-" + suffix
	t.Cleanup(func() {
		res, err := es.Client.Indices.Delete([]string{catalogIndex, interactionsIndex})
		if err == nil {
			res.Body.Close()
		}
	})

	gateway := index.NewElasticsearchGateway(es.Client, 5*time.Second, index.BreakerSettings{FailureThreshold: 5}, log)

	store := cache.NewRedisStore(rdb.Client, "e2e:"+suffix+":", time.Second)
	queue := cache.NewQueue(store, 64, time.Second, log)
	t.Cleanup(func() { _ = queue.Close(context.Background()) })
	layer := cache.NewLayer(store, queue, log)

	interactionLog := interactions.NewIndexLog(gateway, interactionsIndex)
	history := interactions.NewStore(interactionLog, layer, interactions.StoreConfig{Window: 100, CacheTTL: time.Minute}, log)

	searchCfg := search.Config{
		Index:           catalogIndex,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		QueryTimeout:    5 * time.Second,
		SearchTTL:       time.Minute,
		MinPrefixLength: 2,
		DefaultLimit:    10,
		MaxLimit:        50,
		StrategyTimeout: 2 * time.Second,
		AutocompleteTTL: time.Minute,
	}
	recCfg := recommend.Config{
		Index:               catalogIndex,
		DefaultLimit:        10,
		MaxLimit:            100,
		SimilarUsers:        50,
		SimilarityFloor:     0.1,
		CollaborativeWeight: 0.7,
		ContentWeight:       0.3,
		FetchConcurrency:    4,
		QueryTimeout:        5 * time.Second,
	}

	schemas, err := validation.LoadDocumentSchemas()
	require.NoError(t, err)

	facade := discovery.New(discovery.Deps{
		Search:       search.NewCachedService(search.NewService(gateway, searchCfg, log), layer, searchCfg),
		Recommender:  recommend.NewService(gateway, history, recCfg, log),
		Interactions: history,
		Indexer:      catalog.NewIndexer(gateway, schemas, catalog.Config{Index: catalogIndex}, log),
		Schemas:      []discovery.SchemaEnsurer{interactionLog},
	}, log)
	require.NoError(t, facade.EnsureIndexes(ctx))
	return facade
}

func docs(t *testing.T, items ...map[string]interface{}) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestDiscoveryAgainstLiveBackends(t *testing.T) {
	facade := newStack(t)
	ctx := context.Background()

	res, err := facade.IndexDocuments(ctx, models.IndexRequest{
		Refresh: true,
		Documents: docs(t,
			map[string]interface{}{"id": "p1", "type": "product", "title": "Basic phone", "category": "phones", "price": 100, "rating": 4.0, "reviewCount": 100},
			map[string]interface{}{"id": "p2", "type": "product", "title": "Better phone", "category": "phones", "price": 200, "rating": 4.5, "reviewCount": 50},
			map[string]interface{}{"id": "p3", "type": "product", "title": "Phone case", "category": "accessories", "price": 20, "rating": 3.0, "reviewCount": 10},
		),
	})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Indexed)

	t.Run("search with price range", func(t *testing.T) {
		out, err := facade.Search(ctx, models.SearchRequest{
			Query: "phone",
			Filters: models.SearchFilters{PriceRange: &models.NumericRange{
				Min: ptr(150.0),
				Max: ptr(250.0),
			}},
			Facets: []string{models.FacetCategory},
		})
		require.NoError(t, err)
		require.Len(t, out.Documents, 1)
		assert.Equal(t, "p2", out.Documents[0].ID)
		assert.Contains(t, out.Facets, models.FacetCategory)
	})

	t.Run("autocomplete", func(t *testing.T) {
		out, err := facade.Autocomplete(ctx, models.AutocompleteRequest{Prefix: "ba", Limit: 5})
		require.NoError(t, err)
		texts := make([]string, 0, len(out.Suggestions))
		for _, s := range out.Suggestions {
			texts = append(texts, s.Text)
		}
		assert.Contains(t, texts, "Basic phone")
	})

	t.Run("popularity fallback for a new user", func(t *testing.T) {
		out, err := facade.Recommend(ctx, models.RecommendRequest{UserID: "nobody-" + uuid.NewString(), Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, models.AlgorithmPopularity, out.Algorithm)
		require.NotEmpty(t, out.Recommendations)
		assert.Equal(t, "p1", out.Recommendations[0].ID)
	})

	t.Run("recorded interactions are visible", func(t *testing.T) {
		_, err := facade.RecordInteraction(ctx, models.Interaction{
			UserID: "U1", ItemID: "p1", ItemType: models.DocumentTypeProduct, InteractionType: models.InteractionPurchase,
		})
		require.NoError(t, err)

		got, err := facade.GetUserInteractions(ctx, "U1", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ItemID)
	})
}

func ptr[T any](v T) *T { return &v }
