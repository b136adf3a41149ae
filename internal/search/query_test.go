package search

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/index"
	"discovery-workers/internal/index/indextest"
	"discovery-workers/internal/models"
)

var testConfig = Config{
	Index:           "catalog",
	DefaultPageSize: 20,
	MaxPageSize:     100,
	MinPrefixLength: 2,
	DefaultLimit:    10,
	MaxLimit:        50,
}

// roundTrip re-decodes a built body so assertions see plain JSON values.
func roundTrip(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBuildSearchQueryMatchAllWithoutText(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{})
	require.NoError(t, err)

	body := roundTrip(t, BuildSearchQuery(req))
	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, boolQ["must"], "match_all")
	assert.NotContains(t, boolQ, "filter")
	assert.Equal(t, float64(0), body["from"])
	assert.Equal(t, float64(20), body["size"])
}

func TestBuildSearchQueryWeightedFuzzyText(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{Query: "  phone  ", Page: 3, Size: 10})
	require.NoError(t, err)

	body := roundTrip(t, BuildSearchQuery(req))
	mm := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "phone", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []interface{}{"title^3", "description^2", "category^1.5", "tags"}, mm["fields"])
	assert.Equal(t, float64(20), body["from"], "offset is (page-1)*size")
}

func TestBuildSearchQueryFilters(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{
		Filters: models.SearchFilters{
			Types:      []models.DocumentType{models.DocumentTypeProduct},
			Categories: []string{"phones", "tablets", "phones"},
			PriceRange: &models.NumericRange{Min: indextest.Ptr(150.0), Max: indextest.Ptr(250.0)},
			Geo:        &models.GeoFilter{Center: &models.GeoPoint{Lat: 52.5, Lon: 13.4}, RadiusKm: 10},
			Available:  indextest.Ptr(true),
			Tags:       []string{"5g"},
			Attributes: map[string]interface{}{"color": "black"},
		},
	})
	require.NoError(t, err)

	body := roundTrip(t, BuildSearchQuery(req))
	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filters, 7)

	assert.Equal(t, map[string]interface{}{"terms": map[string]interface{}{"type": []interface{}{"product"}}}, filters[0])
	assert.Equal(t, map[string]interface{}{"terms": map[string]interface{}{"category.keyword": []interface{}{"phones", "tablets"}}}, filters[1])
	assert.Equal(t, map[string]interface{}{"range": map[string]interface{}{"price": map[string]interface{}{"gte": 150.0, "lte": 250.0}}}, filters[2])
	assert.Equal(t, "10km", filters[3].(map[string]interface{})["geo_distance"].(map[string]interface{})["distance"])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"availability": true}}, filters[4])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"attributes.color": "black"}}, filters[6])
}

func TestBuildSearchQueryDefaultSortTieBreaks(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{})
	require.NoError(t, err)

	sort := roundTrip(t, BuildSearchQuery(req))["sort"].([]interface{})
	require.Len(t, sort, 4)
	assert.Contains(t, sort[0], "_score")
	assert.Contains(t, sort[1], "rating")
	assert.Contains(t, sort[2], "updatedAt")
}

func TestBuildSearchQueryFieldSort(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{Sort: &models.SortSpec{Field: models.SortTitle}})
	require.NoError(t, err)

	sort := roundTrip(t, BuildSearchQuery(req))["sort"].([]interface{})
	assert.Equal(t, map[string]interface{}{"title.keyword": map[string]interface{}{"order": "asc", "missing": "_last"}}, sort[0])
}

func TestBuildSearchQueryFacets(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{Facets: []string{"price", "category", "rating"}})
	require.NoError(t, err)

	aggs := roundTrip(t, BuildSearchQuery(req))["aggs"].(map[string]interface{})
	assert.Len(t, aggs, 3)

	ranges := aggs["price"].(map[string]interface{})["range"].(map[string]interface{})["ranges"].([]interface{})
	assert.Len(t, ranges, 6)
	assert.Equal(t, map[string]interface{}{"key": "1000+", "from": 1000.0}, ranges[5])
	assert.Equal(t, "category.keyword", aggs["category"].(map[string]interface{})["terms"].(map[string]interface{})["field"])
}

func TestNormalizeSearchRejectsMalformedFilters(t *testing.T) {
	cases := map[string]models.SearchRequest{
		"geo without center": {Filters: models.SearchFilters{Geo: &models.GeoFilter{RadiusKm: 5}}},
		"inverted range":     {Filters: models.SearchFilters{PriceRange: &models.NumericRange{Min: indextest.Ptr(10.0), Max: indextest.Ptr(1.0)}}},
		"distance sort":      {Sort: &models.SortSpec{Field: models.SortDistance}},
		"unknown facet":      {Facets: []string{"brand"}},
		"unknown sort":       {Sort: &models.SortSpec{Field: "popularity"}},
		"negative size":      {Size: -1},
		"past result window": {Page: 101, Size: 100},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := testConfig.NormalizeSearch(req)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestNormalizeSearchClampsSize(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, req.Size)
	assert.Equal(t, 1, req.Page)
}

func TestNormalizeSearchAllowsLastPageOfResultWindow(t *testing.T) {
	req, err := testConfig.NormalizeSearch(models.SearchRequest{Page: 100, Size: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, req.Page)
}

func TestPhraseQueryUsesShingles(t *testing.T) {
	body := roundTrip(t, phraseQuery(models.AutocompleteRequest{Prefix: "iphone 15 p", Type: models.DocumentTypeProduct, Limit: 5}))

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	prefix := boolQ["must"].(map[string]interface{})["match_phrase_prefix"].(map[string]interface{})
	assert.Contains(t, prefix, "title")

	should := boolQ["should"].([]interface{})
	require.Len(t, should, 1)
	shingles := should[0].(map[string]interface{})["match_bool_prefix"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"query": "iphone 15 p"}, shingles[index.FieldTitleShingles])

	assert.Contains(t, body["highlight"].(map[string]interface{})["fields"], "title")
	assert.Equal(t, float64(5), body["size"])
}

func TestParseFacets(t *testing.T) {
	aggs := map[string]json.RawMessage{
		"category": json.RawMessage(`{"buckets":[{"key":"phones","doc_count":3}]}`),
		"price":    json.RawMessage(`{"buckets":[{"key":"0-50","from":0,"to":50,"doc_count":1},{"key":"1000+","from":1000,"doc_count":0}]}`),
	}
	facets := parseFacets(aggs, []string{"category", "price", "tags"})

	assert.Equal(t, []models.FacetBucket{{Key: "phones", Count: 3}}, facets["category"])
	require.Len(t, facets["price"], 2)
	assert.Equal(t, 50.0, *facets["price"][0].To)
	assert.Nil(t, facets["price"][1].To)
	assert.Empty(t, facets["tags"])
}
