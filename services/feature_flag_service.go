package services

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"time"

	"github.com/mansamusa/marketplace_backend/models"
)

const (
	flagCacheKey = "feature_flags"
	flagCacheTTL = 60 * time.Second
)

// RolloutBucket places a user in one of 100 buckets for a flag
func RolloutBucket(key, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(key + ":" + userID))
	return int(h.Sum32() % 100)
}

// FlagEnabled evaluates a flag for a user
func FlagEnabled(flag models.FeatureFlag, userID string) bool {
	if !flag.Enabled {
		return false
	}
	for _, id := range flag.AllowUserIDs {
		if id == userID {
			return true
		}
	}
	return RolloutBucket(flag.Key, userID) < flag.RolloutPercentage
}

type FeatureFlagService struct {
	flags FeatureFlagStore
	cache Cache

	Now func() time.Time
}

// NewFeatureFlagService takes an optional cache
func NewFeatureFlagService(flags FeatureFlagStore, cache Cache) *FeatureFlagService {
	return &FeatureFlagService{flags: flags, cache: cache, Now: systemNow}
}

func (s *FeatureFlagService) load(ctx context.Context) ([]models.FeatureFlag, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, flagCacheKey); err == nil && ok {
			var flags []models.FeatureFlag
			if json.Unmarshal(raw, &flags) == nil {
				return flags, nil
			}
		}
	}
	flags, err := s.flags.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(flags); err == nil {
			logIfErr(s.cache.Set(ctx, flagCacheKey, raw, flagCacheTTL), "Failed to cache feature flags")
		}
	}
	return flags, nil
}

func (s *FeatureFlagService) invalidate(ctx context.Context) {
	if s.cache != nil {
		logIfErr(s.cache.Delete(ctx, flagCacheKey), "Failed to invalidate feature flag cache")
	}
}

// Evaluate returns every flag's value for the user
func (s *FeatureFlagService) Evaluate(ctx context.Context, userID string) (map[string]bool, error) {
	flags, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(flags))
	for _, f := range flags {
		out[f.Key] = FlagEnabled(f, userID)
	}
	return out, nil
}

func (s *FeatureFlagService) List(ctx context.Context, actor Actor) ([]models.FeatureFlag, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.flags.List(ctx)
}

// Save creates or replaces a flag by key
func (s *FeatureFlagService) Save(ctx context.Context, actor Actor, req models.FeatureFlagRequest) (*models.FeatureFlag, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, invalid("key is required")
	}
	if req.RolloutPercentage < 0 || req.RolloutPercentage > 100 {
		return nil, invalid("rolloutPercentage must be between 0 and 100")
	}
	flag := &models.FeatureFlag{
		Key:               key,
		Description:       req.Description,
		Enabled:           req.Enabled,
		RolloutPercentage: req.RolloutPercentage,
		AllowUserIDs:      req.AllowUserIDs,
		UpdatedAt:         s.Now(),
	}
	if err := s.flags.Upsert(ctx, flag); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return flag, nil
}

func (s *FeatureFlagService) Delete(ctx context.Context, actor Actor, key string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.flags.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
