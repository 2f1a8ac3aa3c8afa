package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/player"
	"github.com/riskibarqy/touchline/internal/domain/quota"
	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/domain/season"
	"github.com/riskibarqy/touchline/internal/domain/team"
)

// QuotaGuard counts the caller's live records for the resource an entity
// consumes and evaluates the count against the caller's tier.
type QuotaGuard struct {
	store  record.Store
	limits *LimitService
}

func NewQuotaGuard(store record.Store, limits *LimitService) *QuotaGuard {
	return &QuotaGuard{store: store, limits: limits}
}

// scope names the counted bucket e falls into, or "" when e is not capped.
func (g *QuotaGuard) scope(e record.Entity) string {
	switch v := e.(type) {
	case *team.Team:
		if v.IsOpponent {
			return ""
		}
		return string(quota.ResourceOwnedTeams)
	case *player.Player:
		if v.CurrentTeamID == "" {
			return ""
		}
		return string(quota.ResourcePlayersPerTeam) + ":" + v.CurrentTeamID
	case *season.Season:
		return string(quota.ResourceSeasons)
	case *match.Match:
		return string(quota.ResourceMatchesPerSeason) + ":" + v.SeasonID
	case *event.Event:
		switch v.Type.Info().Bucket {
		case event.BucketEvents:
			return string(quota.ResourceEventsPerMatch) + ":" + v.MatchID
		case event.BucketFormationChanges:
			return string(quota.ResourceFormationChanges) + ":" + v.MatchID
		}
	}
	return ""
}

// Check fails with *QuotaExceededError when one more e would cross the limit.
func (g *QuotaGuard) Check(ctx context.Context, ident Identity, e record.Entity) error {
	if g == nil || g.limits == nil || g.scope(e) == "" {
		return nil
	}

	usage, err := g.usage(ctx, ident.UserID, e)
	if err != nil {
		return err
	}

	limits := g.limits.Limits(ctx, ident)
	decision := quota.Evaluate(usage, limits)
	if decision.Allowed {
		return nil
	}
	return &QuotaExceededError{
		Tier:     limits.Tier,
		Resource: decision.Resource,
		Limit:    decision.Limit,
		Reason:   decision.Reason,
	}
}

func (g *QuotaGuard) usage(ctx context.Context, owner string, e record.Entity) (quota.Usage, error) {
	switch v := e.(type) {
	case *team.Team:
		n, err := countDecoded(ctx, g.store, record.Query{Kind: record.KindTeams, OwnerID: owner}, func(t *team.Team) bool {
			return !t.IsOpponent && t.ID != v.ID
		})
		return quota.Usage{Resource: quota.ResourceOwnedTeams, Count: n}, err
	case *player.Player:
		n, err := g.count(ctx, record.Query{Kind: record.KindPlayers, OwnerID: owner, ParentID: v.CurrentTeamID})
		return quota.Usage{Resource: quota.ResourcePlayersPerTeam, Count: n}, err
	case *season.Season:
		n, err := g.count(ctx, record.Query{Kind: record.KindSeasons, OwnerID: owner})
		return quota.Usage{Resource: quota.ResourceSeasons, Count: n}, err
	case *match.Match:
		n, err := g.count(ctx, record.Query{Kind: record.KindMatches, OwnerID: owner, ParentID: v.SeasonID})
		return quota.Usage{Resource: quota.ResourceMatchesPerSeason, Count: n}, err
	case *event.Event:
		bucket := v.Type.Info().Bucket
		resource := quota.ResourceEventsPerMatch
		if bucket == event.BucketFormationChanges {
			resource = quota.ResourceFormationChanges
		}
		n, err := countDecoded(ctx, g.store, record.Query{Kind: record.KindEvents, OwnerID: owner, ParentID: v.MatchID}, func(ev *event.Event) bool {
			return ev.Type.Info().Bucket == bucket && ev.ID != v.ID
		})
		return quota.Usage{Resource: resource, Count: n}, err
	}
	return quota.Usage{}, fmt.Errorf("no quota resource for %s", e.Kind())
}

func (g *QuotaGuard) count(ctx context.Context, q record.Query) (int, error) {
	n, err := g.store.Count(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count %s for quota: %w", q.Kind, err)
	}
	return n, nil
}

func countDecoded[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, store record.Store, q record.Query, keep func(PT) bool) (int, error) {
	docs, err := store.List(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("list %s for quota: %w", q.Kind, err)
	}

	n := 0
	for _, doc := range docs {
		item, err := record.Decode[T, PT](doc)
		if err != nil {
			return 0, err
		}
		if keep(PT(item)) {
			n++
		}
	}
	return n, nil
}
