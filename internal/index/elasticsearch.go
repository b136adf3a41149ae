package index

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
	"discovery-workers/internal/models"
)

// BreakerSettings configures the circuit breaker guarding the engine.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ElasticsearchGateway implements Gateway over the Elasticsearch REST API.
// Every call carries a timeout and goes through one circuit breaker.
type ElasticsearchGateway struct {
	client  *elasticsearch.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	timeout time.Duration
	logger  logger.Logger
}

type rawResponse struct {
	status int
	body   []byte
}

func NewElasticsearchGateway(client *elasticsearch.Client, timeout time.Duration, bs BreakerSettings, log logger.Logger) *ElasticsearchGateway {
	log = logger.Component(log, "index-gateway")
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = 5
	}

	const name = "elasticsearch"
	metrics.EngineBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.EngineBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &ElasticsearchGateway{
		client:  client,
		breaker: cb,
		timeout: timeout,
		logger:  log,
	}
}

// perform executes req under the timeout and the breaker and returns the
// fully read response. Transport errors and 5xx responses count against the
// breaker; 4xx responses are returned to the caller for interpretation.
func (g *ElasticsearchGateway) perform(ctx context.Context, op string, req esapi.Request) (*rawResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.breaker.Execute(func() (*rawResponse, error) {
		res, err := req.Do(ctx, g.client)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		raw := &rawResponse{status: res.StatusCode, body: body}
		if res.StatusCode >= http.StatusInternalServerError {
			return raw, fmt.Errorf("%d %s", res.StatusCode, reasonOf(body))
		}
		return raw, nil
	})
	if err != nil {
		metrics.EngineRequests.WithLabelValues(op, "error").Inc()
		return nil, g.classify(ctx, op, err)
	}

	status := "success"
	if raw.status >= http.StatusBadRequest {
		status = "rejected"
	}
	metrics.EngineRequests.WithLabelValues(op, status).Inc()
	return raw, nil
}

func (g *ElasticsearchGateway) classify(ctx context.Context, op string, err error) error {
	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewEngineFailureError(op, err).WithMetadata("circuit", "open")
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewEngineTimeoutError(op, err)
	default:
		return errors.NewEngineFailureError(op, err)
	}
}

// rejected converts a 4xx response into a typed error.
func rejected(op, index string, raw *rawResponse) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw.body, &body)
	if body.Error.Type == "index_not_found_exception" {
		return errors.NewIndexNotFoundError(index)
	}

	se := errors.NewEngineFailureError(op, fmt.Errorf("%d %s: %s", raw.status, body.Error.Type, body.Error.Reason))
	// The request itself is wrong; retrying will not help.
	se.Retryable = raw.status == http.StatusTooManyRequests
	return se
}

func reasonOf(body []byte) string {
	var eb struct {
		Error struct {
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Reason != "" {
		return eb.Error.Reason
	}
	if len(body) > 256 {
		return string(body[:256])
	}
	return string(body)
}

// EnsureIndex creates name with mapping unless it already exists.
func (g *ElasticsearchGateway) EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) error {
	raw, err := g.perform(ctx, "ensure_index", esapi.IndicesExistsRequest{Index: []string{name}})
	if err != nil {
		return err
	}
	if raw.status == http.StatusOK {
		return nil
	}
	if raw.status != http.StatusNotFound {
		return rejected("ensure_index", name, raw)
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	raw, err = g.perform(ctx, "ensure_index", esapi.IndicesCreateRequest{Index: name, Body: bytes.NewReader(body)})
	if err != nil {
		return err
	}
	if raw.status >= http.StatusBadRequest {
		var eb struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		if json.Unmarshal(raw.body, &eb) == nil && eb.Error.Type == "resource_already_exists_exception" {
			return nil
		}
		return rejected("ensure_index", name, raw)
	}

	g.logger.Info("Created index", map[string]interface{}{"index": name})
	return nil
}

// BulkWrite applies op to every item in one bulk request. Per-item failures
// are reported in the result, not as an error.
func (g *ElasticsearchGateway) BulkWrite(ctx context.Context, index string, op models.Operation, items []BulkItem, refresh bool) (*BulkResult, error) {
	result := &BulkResult{Errors: []BulkItemError{}}
	if len(items) == 0 {
		return result, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		meta := map[string]interface{}{
			string(op): map[string]interface{}{"_index": index, "_id": item.ID},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encoding bulk action: %w", err)
		}
		switch op {
		case models.OperationDelete:
		case models.OperationUpdate:
			if err := enc.Encode(map[string]interface{}{"doc": item.Doc}); err != nil {
				return nil, fmt.Errorf("encoding bulk document %s: %w", item.ID, err)
			}
		default:
			if err := enc.Encode(item.Doc); err != nil {
				return nil, fmt.Errorf("encoding bulk document %s: %w", item.ID, err)
			}
		}
	}

	req := esapi.BulkRequest{Body: &buf}
	if refresh {
		req.Refresh = "wait_for"
	}
	raw, err := g.perform(ctx, "bulk", req)
	if err != nil {
		return nil, err
	}
	if raw.status >= http.StatusBadRequest {
		return nil, rejected("bulk", index, raw)
	}

	var resp struct {
		Took  int64 `json:"took"`
		Items []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Result string `json:"result"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		return nil, errors.NewEngineFailureError("bulk", fmt.Errorf("decoding response: %w", err))
	}

	result.Took = resp.Took
	for _, entry := range resp.Items {
		for _, it := range entry {
			switch {
			case it.Error != nil:
				result.Errors = append(result.Errors, BulkItemError{ID: it.ID, Status: it.Status, Reason: it.Error.Type + ": " + it.Error.Reason})
			case it.Status >= http.StatusBadRequest:
				result.Errors = append(result.Errors, BulkItemError{ID: it.ID, Status: it.Status, Reason: it.Result})
			default:
				result.Indexed++
			}
		}
	}
	return result, nil
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []Hit    `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
	Suggest      map[string][]SuggestEntry  `json:"suggest"`
}

// Query runs a search request with the given DSL body.
func (g *ElasticsearchGateway) Query(ctx context.Context, index string, body map[string]interface{}) (*QueryResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	raw, err := g.perform(ctx, "query", esapi.SearchRequest{Index: []string{index}, Body: bytes.NewReader(payload)})
	if err != nil {
		return nil, err
	}
	if raw.status >= http.StatusBadRequest {
		return nil, rejected("query", index, raw)
	}

	var resp searchResponse
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		return nil, errors.NewEngineFailureError("query", fmt.Errorf("decoding response: %w", err))
	}

	out := &QueryResult{
		Total:        resp.Hits.Total.Value,
		Hits:         resp.Hits.Hits,
		Aggregations: resp.Aggregations,
		Suggest:      resp.Suggest,
		Took:         resp.Took,
	}
	if resp.Hits.MaxScore != nil {
		out.MaxScore = *resp.Hits.MaxScore
	}
	if out.Hits == nil {
		out.Hits = []Hit{}
	}
	return out, nil
}

// FindSimilar returns documents similar to seedID, never including the seed.
func (g *ElasticsearchGateway) FindSimilar(ctx context.Context, index, seedID string, opts SimilarOptions) ([]Hit, error) {
	res, err := g.Query(ctx, index, MoreLikeThis(index, seedID, opts))
	if err != nil {
		return nil, err
	}
	return res.Hits, nil
}

// MoreLikeThis builds the find-similar query body.
func MoreLikeThis(index, seedID string, opts SimilarOptions) map[string]interface{} {
	opts = opts.withDefaults()
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"more_like_this": map[string]interface{}{
					"fields":          opts.Fields,
					"like":            []interface{}{map[string]interface{}{"_index": index, "_id": seedID}},
					"min_term_freq":   opts.MinTermFreq,
					"min_doc_freq":    opts.MinDocFreq,
					"max_query_terms": opts.MaxQueryTerms,
				},
			},
		},
		"must_not": []interface{}{
			map[string]interface{}{"ids": map[string]interface{}{"values": []string{seedID}}},
		},
	}
	if len(opts.Filters) > 0 {
		boolQuery["filter"] = opts.Filters
	}
	return map[string]interface{}{
		"size":  opts.Size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

// Get reads one document. A missing document yields ErrNotFound.
func (g *ElasticsearchGateway) Get(ctx context.Context, index, id string) (*Hit, error) {
	raw, err := g.perform(ctx, "get", esapi.GetRequest{Index: index, DocumentID: id})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Hit
		Found bool `json:"found"`
	}
	if raw.status == http.StatusNotFound {
		if json.Unmarshal(raw.body, &resp) == nil && resp.ID != "" && !resp.Found {
			return nil, ErrNotFound
		}
		return nil, rejected("get", index, raw)
	}
	if raw.status >= http.StatusBadRequest {
		return nil, rejected("get", index, raw)
	}
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		return nil, errors.NewEngineFailureError("get", fmt.Errorf("decoding response: %w", err))
	}
	if !resp.Found {
		return nil, ErrNotFound
	}
	hit := resp.Hit
	return &hit, nil
}

// Refresh makes recent writes to index visible to search.
func (g *ElasticsearchGateway) Refresh(ctx context.Context, index string) error {
	raw, err := g.perform(ctx, "refresh", esapi.IndicesRefreshRequest{Index: []string{index}})
	if err != nil {
		return err
	}
	if raw.status >= http.StatusBadRequest {
		return rejected("refresh", index, raw)
	}
	return nil
}

// Ping reports whether the cluster answers.
func (g *ElasticsearchGateway) Ping(ctx context.Context) error {
	raw, err := g.perform(ctx, "ping", esapi.PingRequest{})
	if err != nil {
		return err
	}
	if raw.status >= http.StatusBadRequest {
		return fmt.Errorf("elasticsearch ping: status %d", raw.status)
	}
	return nil
}
