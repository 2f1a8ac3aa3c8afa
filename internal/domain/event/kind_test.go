package event

import (
	"errors"
	"testing"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

func TestBuckets(t *testing.T) {
	tests := []struct {
		kind Type
		want QuotaBucket
	}{
		{kind: TypeGoal, want: BucketExempt},
		{kind: TypeOwnGoal, want: BucketExempt},
		{kind: TypeFormationChange, want: BucketFormationChanges},
		{kind: TypeFoul, want: BucketEvents},
		{kind: TypeSave, want: BucketEvents},
	}

	for _, tc := range tests {
		if got := tc.kind.Info().Bucket; got != tc.want {
			t.Fatalf("%s bucket = %s, want %s", tc.kind, got, tc.want)
		}
	}
}

func TestEveryTypeHasLabel(t *testing.T) {
	for _, kind := range Types() {
		info, ok := Lookup(kind)
		if !ok || info.Label == "" || info.Category == "" || info.Bucket == "" {
			t.Fatalf("incomplete metadata for %s: %+v", kind, info)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Event{MatchID: "m1", Type: TypeFoul, Sentiment: -1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		ev   Event
	}{
		{name: "unknown kind", ev: Event{MatchID: "m1", Type: "dance"}},
		{name: "missing match", ev: Event{Type: TypeFoul}},
		{name: "sentiment out of range", ev: Event{MatchID: "m1", Type: TypeFoul, Sentiment: 4}},
		{name: "goal without team", ev: Event{MatchID: "m1", Type: TypeGoal}},
	}
	for _, tc := range tests {
		if err := tc.ev.Validate(); !errors.Is(err, record.ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
	}
}
