package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/quota"
	"github.com/riskibarqy/touchline/internal/platform/cache"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

// TierSource fetches the caller's limits from the remote authority.
type TierSource interface {
	FetchLimits(ctx context.Context, ident Identity) (quota.Limits, error)
}

// LimitService resolves tier limits: a fresh remote answer, then the cached
// value, then the last value ever seen, then guest defaults. It never fails
// open.
type LimitService struct {
	source TierSource
	cache  *cache.Store[quota.Limits]
	logger *logging.Logger
}

func NewLimitService(source TierSource, ttl time.Duration, logger *logging.Logger) *LimitService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LimitService{
		source: source,
		cache:  cache.NewStore[quota.Limits](ttl),
		logger: logger.Named("limits"),
	}
}

func (s *LimitService) Limits(ctx context.Context, ident Identity) quota.Limits {
	ctx, span := startUsecaseSpan(ctx, "usecase.LimitService.Limits")
	defer span.End()

	if !ident.Authenticated || s.source == nil {
		return quota.Defaults(quota.TierGuest)
	}

	key := "limits:" + ident.UserID
	limits, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (quota.Limits, error) {
		fetched, err := s.source.FetchLimits(ctx, ident)
		if err != nil {
			return quota.Limits{}, err
		}
		return normalizeLimits(fetched), nil
	})
	if err == nil {
		return limits
	}

	if stale, ok := s.cache.GetStale(ctx, key); ok {
		s.logger.WarnContext(ctx, "tier source unavailable, using last known limits",
			"user_id", ident.UserID,
			"tier", stale.Tier,
			"error", err,
		)
		return stale
	}

	s.logger.WarnContext(ctx, "tier source unavailable, using guest limits",
		"user_id", ident.UserID,
		"error", err,
	)
	return quota.Defaults(quota.TierGuest)
}

// Invalidate drops cached limits so the next check refetches, for example
// after an upgrade.
func (s *LimitService) Invalidate(ctx context.Context, userID string) {
	s.cache.Delete(ctx, "limits:"+userID)
}

func normalizeLimits(l quota.Limits) quota.Limits {
	if !l.Tier.Valid() {
		l.Tier = quota.TierGuest
	}
	if len(l.Values) == 0 {
		return quota.Defaults(l.Tier)
	}
	defaults := quota.Defaults(l.Tier)
	for r, v := range defaults.Values {
		if _, ok := l.Values[r]; !ok {
			l.Values[r] = v
		}
	}
	return l
}
