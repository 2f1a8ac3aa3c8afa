package usecase

import (
	"context"

	"github.com/riskibarqy/touchline/internal/domain/season"
)

// SetCurrentSeason flags a season as current. Other seasons keep their flag;
// a single current season per owner is not enforced.
func SetCurrentSeason(ctx context.Context, s *DataService, seasonID string) (*season.Season, error) {
	return Update[season.Season](ctx, s, seasonID, func(item *season.Season) error {
		item.IsCurrent = true
		return nil
	})
}

// CurrentSeasons lists the caller's seasons flagged current, oldest first.
func CurrentSeasons(ctx context.Context, s *DataService) ([]season.Season, error) {
	ident, err := s.Identity(ctx)
	if err != nil {
		return nil, err
	}

	all, err := List[season.Season](ctx, s, ListFilter{OwnerID: ident.UserID})
	if err != nil {
		return nil, err
	}

	out := make([]season.Season, 0, 1)
	for _, item := range all {
		if item.IsCurrent {
			out = append(out, item)
		}
	}
	return out, nil
}
