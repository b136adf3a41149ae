package recommend

import (
	"context"

	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

const popularityScript = `doc['rating'].size() == 0 || doc['reviewCount'].size() == 0 ? 0 : doc['rating'].value * doc['reviewCount'].value`

func typeFilter(docType models.DocumentType) []map[string]interface{} {
	if docType == "" {
		return nil
	}
	return []map[string]interface{}{{"term": map[string]interface{}{"type": docType}}}
}

// popularityQuery ranks the catalog by rating × reviewCount.
func popularityQuery(docType models.DocumentType, exclude []string, size int) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	if f := typeFilter(docType); f != nil {
		boolQuery["filter"] = f
	}
	if len(exclude) > 0 {
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{"ids": map[string]interface{}{"values": exclude}},
		}
	}
	return map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"_script": map[string]interface{}{
				"type":   "number",
				"script": map[string]interface{}{"lang": "painless", "source": popularityScript},
				"order":  "desc",
			}},
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc", "missing": "_last"}},
			map[string]interface{}{"updatedAt": map[string]interface{}{"order": "desc", "missing": "_last"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
}

func (s *Service) popular(ctx context.Context, docType models.DocumentType, exclude []string, size int) ([]candidate, error) {
	res, err := s.gateway.Query(ctx, s.cfg.Index, popularityQuery(docType, exclude, size))
	if err != nil {
		return nil, err
	}
	cands := decodeCandidates(res.Hits, nil, s.logger)
	for i := range cands {
		cands[i].Score = cands[i].Doc.Popularity()
	}
	return cands, nil
}

// hydrate loads the documents of scored ids, dropping ids that are no
// longer indexed or do not match docType.
func (s *Service) hydrate(ctx context.Context, items []scored, docType models.DocumentType) ([]candidate, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}

	filters := []interface{}{map[string]interface{}{"ids": map[string]interface{}{"values": ids}}}
	for _, f := range typeFilter(docType) {
		filters = append(filters, f)
	}
	res, err := s.gateway.Query(ctx, s.cfg.Index, map[string]interface{}{
		"size":  len(ids),
		"query": map[string]interface{}{"bool": map[string]interface{}{"filter": filters}},
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]float64, len(items))
	for _, it := range items {
		byID[it.ID] = it.Score
	}
	return decodeCandidates(res.Hits, func(h index.Hit) float64 { return byID[h.ID] }, s.logger), nil
}
