package season

import (
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

// Season groups matches. IsCurrent is a hint; more than one season per owner
// may carry it.
type Season struct {
	record.Meta
	Label     string     `json:"label" validate:"required,max=80"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	IsCurrent bool       `json:"isCurrent"`
}

func (Season) Kind() record.Kind { return record.KindSeasons }

func (Season) ParentRef() string { return "" }

func (s Season) Validate() error {
	if err := record.ValidateStruct(s); err != nil {
		return err
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return record.Invalidf("season end date %s is before start date %s",
			s.EndDate.Format(time.DateOnly), s.StartDate.Format(time.DateOnly))
	}
	return nil
}
