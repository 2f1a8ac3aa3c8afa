package feed

import (
	"testing"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/domain/record"
)

var base = time.Date(2026, 6, 6, 10, 0, 0, 0, time.UTC)

func entryAt(id string, minute int) Entry {
	return Entry{ID: id, Kind: EntryEvent, EventType: event.TypeFoul, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func TestTimeline_OutOfOrderAndDuplicates(t *testing.T) {
	tl := NewTimeline()

	tl.Upsert(entryAt("b", 5))
	tl.Upsert(entryAt("c", 9))
	tl.Upsert(entryAt("a", 1))
	tl.Upsert(entryAt("b", 5))

	got := tl.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"c", "b", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("entries[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestTimeline_EqualTimesOrderedByID(t *testing.T) {
	tl := NewTimeline(entryAt("x", 3), entryAt("y", 3))

	got := tl.Entries()
	if got[0].ID != "y" || got[1].ID != "x" {
		t.Fatalf("unexpected tie order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestTimeline_Remove(t *testing.T) {
	tl := NewTimeline(entryAt("a", 1), entryAt("b", 2))

	if !tl.Remove("a") {
		t.Fatalf("expected a to be removed")
	}
	if tl.Remove("missing") {
		t.Fatalf("removing an unknown id must report false")
	}
	if tl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tl.Len())
	}
}

func TestPeriodEntries_DeterministicIDs(t *testing.T) {
	ended := base.Add(45 * time.Minute)
	p := period.Period{
		Meta:         record.Meta{ID: "p1"},
		MatchID:      "m1",
		PeriodNumber: 1,
		Type:         period.TypeRegular,
		StartedAt:    base,
		EndedAt:      &ended,
	}

	entries := PeriodEntries(p)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].ID != "period:p1:start" || entries[1].ID != "period:p1:end" {
		t.Fatalf("unexpected ids: %s, %s", entries[0].ID, entries[1].ID)
	}
}

func TestScore_OwnGoalCreditsOtherSide(t *testing.T) {
	events := []event.Event{
		{MatchID: "m1", Type: event.TypeGoal, TeamID: "A"},
		{MatchID: "m1", Type: event.TypeOwnGoal, TeamID: "A"},
	}

	home, away := Score(events, "A", "B")
	if home != 1 || away != 1 {
		t.Fatalf("score = %d-%d, want 1-1", home, away)
	}
}

func TestScore_GoalAndOwnGoalForSameTeam(t *testing.T) {
	events := []event.Event{
		{Type: event.TypeGoal, TeamID: "A", Meta: record.Meta{IsDeleted: true}},
		{Type: event.TypeOwnGoal, TeamID: "A"},
		{Type: event.TypeFoul, TeamID: "B"},
	}

	home, away := Score(events, "A", "B")
	if home != 0 || away != 1 {
		t.Fatalf("score = %d-%d, want 0-1", home, away)
	}
}

func TestTimeline_ScoreIgnoresPeriodEntries(t *testing.T) {
	tl := NewTimeline(
		Entry{ID: "e1", Kind: EntryEvent, EventType: event.TypeOwnGoal, TeamID: "A", CreatedAt: base},
		Entry{ID: "period:p1:start", Kind: EntryPeriodStart, CreatedAt: base.Add(-time.Minute)},
	)

	home, away := tl.Score("A", "B")
	if home != 0 || away != 1 {
		t.Fatalf("score = %d-%d, want 0-1", home, away)
	}
}
