package feed

import (
	"sort"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/period"
)

type EntryKind string

const (
	EntryEvent       EntryKind = "event"
	EntryPeriodStart EntryKind = "period_start"
	EntryPeriodEnd   EntryKind = "period_end"
)

// Entry is one line of the match timeline.
type Entry struct {
	ID            string      `json:"id"`
	MatchID       string      `json:"matchId"`
	Kind          EntryKind   `json:"entryKind"`
	EventType     event.Type  `json:"kind,omitempty"`
	Label         string      `json:"label"`
	TeamID        string      `json:"teamId,omitempty"`
	PlayerID      string      `json:"playerId,omitempty"`
	PeriodNumber  int         `json:"periodNumber"`
	PeriodType    period.Type `json:"periodType,omitempty"`
	ClockOffsetMs int64       `json:"clockOffsetMs"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func FromEvent(e event.Event) Entry {
	return Entry{
		ID:            e.ID,
		MatchID:       e.MatchID,
		Kind:          EntryEvent,
		EventType:     e.Type,
		Label:         e.Type.Info().Label,
		TeamID:        e.TeamID,
		PlayerID:      e.PlayerID,
		PeriodNumber:  e.PeriodNumber,
		ClockOffsetMs: e.ClockOffsetMs,
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt,
	}
}

func PeriodStartID(periodID string) string { return "period:" + periodID + ":start" }

func PeriodEndID(periodID string) string { return "period:" + periodID + ":end" }

// PeriodEntries synthesizes the start entry and, once closed, the end entry
// of a period.
func PeriodEntries(p period.Period) []Entry {
	out := []Entry{{
		ID:           PeriodStartID(p.ID),
		MatchID:      p.MatchID,
		Kind:         EntryPeriodStart,
		Label:        periodLabel(p, "started"),
		PeriodNumber: p.PeriodNumber,
		PeriodType:   p.Type,
		CreatedAt:    p.StartedAt,
	}}
	if p.EndedAt != nil {
		out = append(out, Entry{
			ID:           PeriodEndID(p.ID),
			MatchID:      p.MatchID,
			Kind:         EntryPeriodEnd,
			Label:        periodLabel(p, "ended"),
			PeriodNumber: p.PeriodNumber,
			PeriodType:   p.Type,
			CreatedAt:    *p.EndedAt,
		})
	}
	return out
}

func periodLabel(p period.Period, verb string) string {
	switch p.Type {
	case period.TypeExtraTime:
		return "Extra time " + itoa(p.PeriodNumber) + " " + verb
	case period.TypePenaltyShootout:
		return "Penalty shootout " + verb
	default:
		return "Period " + itoa(p.PeriodNumber) + " " + verb
	}
}

// Timeline keeps entries newest first, one per id. It is not safe for
// concurrent use.
type Timeline struct {
	entries []Entry
}

func NewTimeline(entries ...Entry) *Timeline {
	t := &Timeline{}
	for _, e := range entries {
		t.Upsert(e)
	}
	return t
}

// Upsert inserts e or replaces the entry with the same id, then re-sorts.
func (t *Timeline) Upsert(e Entry) {
	replaced := false
	for i := range t.entries {
		if t.entries[i].ID == e.ID {
			t.entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		t.entries = append(t.entries, e)
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := t.entries[i], t.entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (t *Timeline) Remove(id string) bool {
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Timeline) Len() int { return len(t.entries) }

// Entries returns a copy, newest first.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Score tallies the event entries currently on the timeline.
func (t *Timeline) Score(homeTeamID, awayTeamID string) (home, away int) {
	for _, e := range t.entries {
		if e.Kind != EntryEvent {
			continue
		}
		h, a := credit(e.EventType, e.TeamID, homeTeamID, awayTeamID)
		home += h
		away += a
	}
	return home, away
}
