package recommend

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"discovery-workers/internal/models"
)

// cooccurrenceLimit bounds the events read when looking for users who share
// items with the seed user.
const cooccurrenceLimit = 1000

// similarUser is another user and their approximate Jaccard similarity to
// the seed user.
type similarUser struct {
	UserID     string
	Similarity float64
}

// scored is an item id with an accumulated score.
type scored struct {
	ID    string
	Type  models.DocumentType
	Score float64
}

// similarUsers ranks users by |shared items| / |seed items|, keeps those at
// or above floor and returns the top k.
func similarUsers(seed map[string]struct{}, others []models.Interaction, floor float64, k int) []similarUser {
	if len(seed) == 0 {
		return nil
	}
	shared := map[string]map[string]struct{}{}
	for _, ev := range others {
		if _, ok := seed[ev.ItemID]; !ok {
			continue
		}
		if shared[ev.UserID] == nil {
			shared[ev.UserID] = map[string]struct{}{}
		}
		shared[ev.UserID][ev.ItemID] = struct{}{}
	}

	users := make([]similarUser, 0, len(shared))
	for userID, items := range shared {
		sim := float64(len(items)) / float64(len(seed))
		if sim < floor {
			continue
		}
		users = append(users, similarUser{UserID: userID, Similarity: sim})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Similarity != users[j].Similarity {
			return users[i].Similarity > users[j].Similarity
		}
		return users[i].UserID < users[j].UserID
	})
	if k > 0 && len(users) > k {
		users = users[:k]
	}
	return users
}

// collaborative scores items the seed user has not seen by
// similarity × interaction weight, summed over similar users.
func (s *Service) collaborative(ctx context.Context, userID string, history []models.Interaction) ([]scored, error) {
	if len(history) == 0 {
		return nil, nil
	}

	seed := make(map[string]struct{}, len(history))
	seedIDs := make([]string, 0, len(history))
	for _, ev := range history {
		if _, ok := seed[ev.ItemID]; !ok {
			seed[ev.ItemID] = struct{}{}
			seedIDs = append(seedIDs, ev.ItemID)
		}
	}

	others, err := s.history.ItemInteractions(ctx, seedIDs, userID, cooccurrenceLimit)
	if err != nil {
		return nil, err
	}
	users := similarUsers(seed, others, s.cfg.SimilarityFloor, s.cfg.SimilarUsers)
	if len(users) == 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		scores = map[string]*scored{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for _, u := range users {
		u := u
		g.Go(func() error {
			evs, err := s.history.UserHistory(gctx, u.UserID)
			if err != nil {
				s.logger.Warn("Skipping similar user", map[string]interface{}{"userId": u.UserID, "error": err})
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, ev := range evs {
				if _, ok := seed[ev.ItemID]; ok {
					continue
				}
				c := scores[ev.ItemID]
				if c == nil {
					c = &scored{ID: ev.ItemID, Type: ev.ItemType}
					scores[ev.ItemID] = c
				}
				c.Score += u.Similarity * ev.InteractionType.Weight()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]scored, 0, len(scores))
	for _, c := range scores {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
