package service

import (
	"context"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreferenceStore persists user notification preferences
type PreferenceStore interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error
}

// PreferenceCache caches effective preferences
type PreferenceCache interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, bool, error)
	Set(ctx context.Context, prefs *domain.NotificationPreferences) error
	Invalidate(ctx context.Context, userID primitive.ObjectID) error
}

// PreferenceService resolves the effective preferences of a user
type PreferenceService struct {
	store PreferenceStore
	cache PreferenceCache
	log   *logger.Logger
}

// NewPreferenceService creates a new preference service. cache may be nil.
func NewPreferenceService(store PreferenceStore, cache PreferenceCache, log *logger.Logger) *PreferenceService {
	return &PreferenceService{store: store, cache: cache, log: log}
}

// Get returns the user's preferences with the default policy applied to
// anything the user never set
func (s *PreferenceService) Get(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, error) {
	if s.cache != nil {
		prefs, hit, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warn("Preference cache read failed", "user_id", userID.Hex(), "error", err)
		} else if hit {
			return prefs, nil
		}
	}

	stored, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var prefs *domain.NotificationPreferences
	if stored == nil {
		prefs = domain.DefaultPreferences(userID)
	} else {
		prefs = stored.WithDefaults()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, prefs); err != nil {
			s.log.Warn("Preference cache write failed", "user_id", userID.Hex(), "error", err)
		}
	}
	return prefs, nil
}

// Effective never fails: a lookup error is logged and the default policy
// is returned
func (s *PreferenceService) Effective(ctx context.Context, userID primitive.ObjectID) *domain.NotificationPreferences {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		s.log.Warn("Failed to load preferences, using defaults", "user_id", userID.Hex(), "error", err)
		return domain.DefaultPreferences(userID)
	}
	return prefs
}

// Update stores the user's preferences and drops the cached copy
func (s *PreferenceService) Update(ctx context.Context, prefs *domain.NotificationPreferences) error {
	if err := s.store.Upsert(ctx, prefs); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, prefs.UserID); err != nil {
			s.log.Warn("Preference cache invalidation failed", "user_id", prefs.UserID.Hex(), "error", err)
		}
	}
	return nil
}
