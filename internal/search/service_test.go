package search

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/cache"
	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/index"
	"discovery-workers/internal/index/indextest"
	"discovery-workers/internal/models"
)

func product(id, title string, price float64) models.Document {
	return models.Document{ID: id, Type: models.DocumentTypeProduct, Title: title, Price: &price}
}

// priceRangeEngine answers search bodies by applying their price range
// filter to docs.
func priceRangeEngine(t *testing.T, docs ...models.Document) func(string, map[string]interface{}) (*index.QueryResult, error) {
	return func(_ string, body map[string]interface{}) (*index.QueryResult, error) {
		lo, hi := 0.0, 1e18
		boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
		if filters, ok := boolQ["filter"].([]interface{}); ok {
			for _, f := range filters {
				r, ok := f.(map[string]interface{})["range"].(map[string]interface{})
				if !ok {
					continue
				}
				bounds := r["price"].(map[string]interface{})
				if v, ok := bounds["gte"].(float64); ok {
					lo = v
				}
				if v, ok := bounds["lte"].(float64); ok {
					hi = v
				}
			}
		}

		res := &index.QueryResult{Hits: []index.Hit{}}
		for _, d := range docs {
			if *d.Price >= lo && *d.Price <= hi {
				res.Hits = append(res.Hits, indextest.HitOf(t, d, 1))
			}
		}
		res.Total = int64(len(res.Hits))
		return res, nil
	}
}

func TestSearchPriceRange(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = priceRangeEngine(t, product("p1", "Basic phone", 100), product("p2", "Better phone", 200))
	svc := NewService(gw, testConfig, logger.NewTestLogger(t))

	res, err := svc.Search(context.Background(), models.SearchRequest{
		Filters: models.SearchFilters{PriceRange: &models.NumericRange{Min: indextest.Ptr(150.0), Max: indextest.Ptr(250.0)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "p2", res.Documents[0].ID)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, 1, res.TotalPages)
}

func TestSearchNeverExceedsPageSize(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = priceRangeEngine(t, product("a", "A", 1), product("b", "B", 2), product("c", "C", 3))
	svc := NewService(gw, testConfig, logger.NewNoOpLogger())

	res, err := svc.Search(context.Background(), models.SearchRequest{Size: 2})
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)
	assert.Equal(t, 2, res.TotalPages)
}

func TestSearchValidationHappensBeforeEngine(t *testing.T) {
	gw := indextest.NewFake()
	svc := NewService(gw, testConfig, logger.NewNoOpLogger())

	_, err := svc.Search(context.Background(), models.SearchRequest{
		Filters: models.SearchFilters{Geo: &models.GeoFilter{RadiusKm: 3}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, gw.QueryCount())
}

func TestSearchSurfacesEngineFailure(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = func(string, map[string]interface{}) (*index.QueryResult, error) {
		return nil, errors.NewEngineFailureError("query", stderrors.New("connection refused"))
	}
	svc := NewService(gw, testConfig, logger.NewNoOpLogger())

	_, err := svc.Search(context.Background(), models.SearchRequest{Query: "phone"})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

// suggestEngine answers the three strategy queries. The correction
// strategy always fails.
func suggestEngine(t *testing.T) func(string, map[string]interface{}) (*index.QueryResult, error) {
	return func(_ string, body map[string]interface{}) (*index.QueryResult, error) {
		suggest, _ := body["suggest"].(map[string]interface{})
		switch {
		case suggest["completion"] != nil:
			c := suggest["completion"].(map[string]interface{})
			assert.Equal(t, "iph", c["prefix"])
			return &index.QueryResult{Suggest: map[string][]index.SuggestEntry{
				"completion": {{Text: "iph", Length: 3, Options: []index.SuggestOption{
					{Text: "iPhone 15 Pro", ID: "p1", DocScore: 1},
					{Text: "iPhone 14", ID: "p7", DocScore: 1},
				}}},
			}}, nil
		case suggest["correction"] != nil:
			return nil, errors.NewEngineTimeoutError("query", context.DeadlineExceeded)
		default:
			hit := indextest.HitOf(t, product("p1", "iPhone 15 Pro", 999), 2.5)
			hit.Highlight = map[string][]string{"title": {"<em>iPhone</em> 15 Pro"}}
			return &index.QueryResult{Hits: []index.Hit{hit}}, nil
		}
	}
}

func TestAutocompleteMergesStrategies(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = suggestEngine(t)
	svc := NewService(gw, testConfig, logger.NewTestLogger(t))

	res, err := svc.Autocomplete(context.Background(), models.AutocompleteRequest{Prefix: "iph"})
	require.NoError(t, err)
	assert.Equal(t, 3, gw.QueryCount())

	require.NotEmpty(t, res.Suggestions)
	assert.Contains(t, res.Suggestions[0].Text, "iPhone")

	seen := map[string]bool{}
	for _, s := range res.Suggestions {
		key := strings.ToLower(s.Text)
		assert.False(t, seen[key], "duplicate suggestion %q", s.Text)
		seen[key] = true
	}
	assert.Len(t, res.Suggestions, 2)
	assert.Equal(t, models.SuggestionPhrase, res.Suggestions[0].SourceType, "highest score wins the duplicate")
	assert.Equal(t, "<em>iPhone</em> 15 Pro", res.Suggestions[0].Metadata["highlight"])
}

func TestAutocompleteRejectsShortPrefix(t *testing.T) {
	gw := indextest.NewFake()
	svc := NewService(gw, testConfig, logger.NewNoOpLogger())

	for _, prefix := range []string{"", "i", "  i  "} {
		_, err := svc.Autocomplete(context.Background(), models.AutocompleteRequest{Prefix: prefix})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	}
	assert.Zero(t, gw.QueryCount())
}

func TestAutocompleteSurvivesAllStrategiesFailing(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = func(string, map[string]interface{}) (*index.QueryResult, error) {
		return nil, errors.NewEngineFailureError("query", stderrors.New("down"))
	}
	svc := NewService(gw, testConfig, logger.NewNoOpLogger())

	res, err := svc.Autocomplete(context.Background(), models.AutocompleteRequest{Prefix: "iph"})
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
}

func TestCorrectionSplicesToken(t *testing.T) {
	res := &index.QueryResult{Suggest: map[string][]index.SuggestEntry{
		"correction": {{Text: "iphnoe", Offset: 4, Length: 6, Options: []index.SuggestOption{{Text: "iphone", Score: 0.8, Freq: 12}}}},
	}}
	out := correctionSuggestions("red iphnoe case", res)
	require.Len(t, out, 1)
	assert.Equal(t, "red iphone case", out[0].Text)
	assert.Equal(t, 0.8, out[0].Score)
}

func TestCorrectionSplicesByUTF16Offsets(t *testing.T) {
	res := &index.QueryResult{Suggest: map[string][]index.SuggestEntry{
		"correction": {{Text: "wrld", Offset: 6, Length: 4, Options: []index.SuggestOption{{Text: "world", Score: 0.9}}}},
	}}
	out := correctionSuggestions("héllo wrld", res)
	require.Len(t, out, 1)
	assert.Equal(t, "héllo world", out[0].Text)
	assert.True(t, utf8.ValidString(out[0].Text))

	// an astral character counts as two units
	res.Suggest["correction"][0] = index.SuggestEntry{Text: "cse", Offset: 3, Length: 3, Options: []index.SuggestOption{{Text: "case", Score: 0.5}}}
	out = correctionSuggestions("📱 cse", res)
	require.Len(t, out, 1)
	assert.Equal(t, "📱 case", out[0].Text)
}

func TestCorrectionSkipsOutOfRangeEntries(t *testing.T) {
	res := &index.QueryResult{Suggest: map[string][]index.SuggestEntry{
		"correction": {{Text: "x", Offset: 9, Length: 4, Options: []index.SuggestOption{{Text: "y"}}}},
	}}
	assert.Empty(t, correctionSuggestions("héllo", res))
}

func newLayer(t *testing.T) *cache.Layer {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", time.Second)
	q := cache.NewQueue(store, 16, time.Second, logger.NewNoOpLogger())
	t.Cleanup(func() { _ = q.Close(context.Background()) })
	return cache.NewLayer(store, q, logger.NewNoOpLogger())
}

func TestCachedServiceServesRepeatedSearchFromCache(t *testing.T) {
	gw := indextest.NewFake()
	gw.QueryFunc = priceRangeEngine(t, product("p1", "Basic phone", 100))
	cfg := testConfig
	cfg.SearchTTL = time.Minute
	svc := NewCachedService(NewService(gw, cfg, logger.NewNoOpLogger()), newLayer(t), cfg)
	ctx := context.Background()

	first, err := svc.Search(ctx, models.SearchRequest{Query: "phone"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		before := gw.QueryCount()
		_, err := svc.Search(ctx, models.SearchRequest{Query: " phone "})
		return err == nil && gw.QueryCount() == before
	}, time.Second, 10*time.Millisecond)

	again, err := svc.Search(ctx, models.SearchRequest{Query: "phone"})
	require.NoError(t, err)
	assert.Equal(t, first.Documents, again.Documents)
}

func TestCachedServiceValidatesBeforeCache(t *testing.T) {
	gw := indextest.NewFake()
	svc := NewCachedService(NewService(gw, testConfig, logger.NewNoOpLogger()), newLayer(t), testConfig)

	_, err := svc.Autocomplete(context.Background(), models.AutocompleteRequest{Prefix: "x"})
	assert.True(t, errors.IsValidation(err))
}
