package recommend

import (
	"context"
	stderrors "errors"

	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// contentSeed picks the seed document: the requested item, else the user's
// most recent purchase or like. history is newest first.
func contentSeed(itemID string, history []models.Interaction) string {
	if itemID != "" {
		return itemID
	}
	for _, ev := range history {
		if ev.InteractionType.HighValue() {
			return ev.ItemID
		}
	}
	return ""
}

// content finds documents similar to the seed. A seed missing from the
// index yields no candidates.
func (s *Service) content(ctx context.Context, seedID string, docType models.DocumentType, size int) ([]candidate, error) {
	if seedID == "" {
		return nil, nil
	}
	if _, err := s.gateway.Get(ctx, s.cfg.Index, seedID); err != nil {
		if stderrors.Is(err, index.ErrNotFound) {
			s.logger.Debug("Content seed not in index", map[string]interface{}{"itemId": seedID})
			return nil, nil
		}
		return nil, err
	}

	hits, err := s.gateway.FindSimilar(ctx, s.cfg.Index, seedID, index.SimilarOptions{
		Size:    size,
		Filters: typeFilter(docType),
	})
	if err != nil {
		return nil, err
	}
	return decodeCandidates(hits, func(h index.Hit) float64 { return h.Score }, s.logger), nil
}
