package interactions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"discovery-workers/internal/cache"
	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/models"
)

const cacheName = "interactions"

type StoreConfig struct {
	// Window is the number of most recent events cached per user.
	Window   int
	CacheTTL time.Duration
}

// Store records interactions and serves cached per-user history. The cached
// history of a user is invalidated synchronously on every append for that
// user.
type Store struct {
	log    Log
	cache  *cache.Layer
	cfg    StoreConfig
	logger logger.Logger
	now    func() time.Time
}

// NewStore builds a Store. cache may be nil.
func NewStore(log Log, layer *cache.Layer, cfg StoreConfig, l logger.Logger) *Store {
	if cfg.Window <= 0 {
		cfg.Window = 100
	}
	return &Store{
		log:    log,
		cache:  layer,
		cfg:    cfg,
		logger: logger.Component(l, "interaction-store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UserKey is the cache key of a user's interaction history.
func UserKey(userID string) string {
	return "interactions:user:" + userID
}

// RecordInteraction validates and appends ev under a fresh id; a caller
// supplied id is ignored. Nothing is stored when ev is invalid.
func (s *Store) RecordInteraction(ctx context.Context, ev models.Interaction) (*models.Interaction, error) {
	ev.UserID = strings.TrimSpace(ev.UserID)
	ev.ItemID = strings.TrimSpace(ev.ItemID)
	if err := validation.Struct(ev); err != nil {
		return nil, err
	}
	ev.ID = uuid.NewString()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}

	if err := s.log.Append(ctx, ev); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Queue().InvalidateSync(ctx, UserKey(ev.UserID)); err != nil {
			s.logger.Warn("Failed to invalidate interaction history", map[string]interface{}{
				"userId": ev.UserID,
				"error":  err,
			})
		}
	}

	s.logger.Debug("Interaction recorded", map[string]interface{}{
		"userId":          ev.UserID,
		"itemId":          ev.ItemID,
		"interactionType": ev.InteractionType,
	})
	return &ev, nil
}

// GetUserInteractions returns up to limit of the user's most recent events,
// newest first. Requests within the cached window are served from cache.
func (s *Store) GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewValidationError("userId is required", "")
	}
	if limit < 0 {
		return nil, errors.NewValidationError("limit must not be negative", "")
	}
	if limit == 0 {
		limit = s.cfg.Window
	}
	if limit > s.cfg.Window {
		return s.log.QueryByUser(ctx, userID, limit)
	}

	window, err := cache.Fetch(ctx, s.cache, cacheName, UserKey(userID), s.cfg.CacheTTL, func(ctx context.Context) (*[]models.Interaction, error) {
		evs, err := s.log.QueryByUser(ctx, userID, s.cfg.Window)
		if err != nil {
			return nil, err
		}
		return &evs, nil
	})
	if err != nil {
		return nil, err
	}

	evs := *window
	if len(evs) > limit {
		evs = evs[:limit]
	}
	return evs, nil
}

// UserHistory is the recommenders' view of a user's recent history.
func (s *Store) UserHistory(ctx context.Context, userID string) ([]models.Interaction, error) {
	return s.GetUserInteractions(ctx, userID, s.cfg.Window)
}

// ItemInteractions returns other users' events on itemIDs. Not cached.
func (s *Store) ItemInteractions(ctx context.Context, itemIDs []string, excludeUser string, limit int) ([]models.Interaction, error) {
	return s.log.QueryByItems(ctx, itemIDs, excludeUser, limit)
}
