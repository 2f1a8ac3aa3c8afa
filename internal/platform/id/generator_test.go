package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestRandomGenerator_NewIDIsUniqueV4(t *testing.T) {
	gen := NewRandomGenerator()
	seen := make(map[string]struct{}, 1000)

	for i := 0; i < 1000; i++ {
		value, err := gen.NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		parsed, err := uuid.Parse(value)
		if err != nil {
			t.Fatalf("parse id %q: %v", value, err)
		}
		if parsed.Version() != 4 {
			t.Fatalf("expected random (v4) id, got version %d", parsed.Version())
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate id %s", value)
		}
		seen[value] = struct{}{}
	}
}
