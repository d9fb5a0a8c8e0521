package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

func newTestEngine(names []string, noRepeat bool, capacity int, seed int64) *DrawEngine {
	rng := NewSeededSource(seed)
	rp := NewRosterPool(noRepeat)
	for _, n := range names {
		rp.AddStudent(n, "")
	}
	model := DefaultModel(rng, zerolog.Nop())
	return NewDrawEngine(rp, model, NewHistory(capacity), rng, zerolog.Nop())
}

func TestDrawNextEmptyRoster(t *testing.T) {
	e := newTestEngine(nil, true, 0, 1)
	if r := e.DrawNext(); r != nil {
		t.Fatalf("empty roster should yield nil, got %+v", r)
	}
	if e.History().Len() != 0 {
		t.Error("no-result draw must leave history untouched")
	}
}

func TestNoRepeatPermutation(t *testing.T) {
	e := newTestEngine([]string{"A", "B", "C"}, true, 0, 3)

	var drawn []string
	for i := 0; i < 3; i++ {
		r := e.DrawNext()
		if r == nil {
			t.Fatal("unexpected nil result")
		}
		drawn = append(drawn, r.Name)
	}

	if len(lo.Uniq(drawn)) != 3 {
		t.Fatalf("three no-repeat draws should be a permutation, got %v", drawn)
	}
	if len(e.Roster().Pool()) != 0 {
		t.Errorf("pool should be exhausted, has %d", len(e.Roster().Pool()))
	}

	// fourth draw falls back to the full roster
	r := e.DrawNext()
	if r == nil {
		t.Fatal("exhausted pool must not dead-end")
	}
	if !lo.Contains([]string{"A", "B", "C"}, r.Name) {
		t.Errorf("fallback draw returned unknown name %q", r.Name)
	}
}

func TestNoRepeatUniqueUntilExhaustion(t *testing.T) {
	names := make([]string, 20)
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	e := newTestEngine(names, true, 0, 11)

	seen := map[string]bool{}
	for i := 0; i < len(names); i++ {
		r := e.DrawNext()
		if r == nil {
			t.Fatal("unexpected nil result")
		}
		if seen[r.StudentID] {
			t.Fatalf("student %s drawn twice before exhaustion", r.StudentID)
		}
		seen[r.StudentID] = true
	}
}

func TestDrawPopulatesResult(t *testing.T) {
	e := newTestEngine([]string{"A"}, false, 0, 5)
	r := e.DrawNext()
	if r == nil {
		t.Fatal("expected result")
	}
	if r.Name != "A" || r.StudentID == "" {
		t.Errorf("bad snapshot: %+v", r)
	}
	if r.Rarity == "" || r.WearLevel == "" {
		t.Errorf("rarity/wear not assigned: %+v", r)
	}
	if r.WearValue < 0 || r.WearValue >= 1 {
		t.Errorf("wear value %v out of range", r.WearValue)
	}
	if r.Timestamp == 0 {
		t.Error("timestamp not set")
	}
	if e.LastResult() == nil || e.LastResult().StudentID != r.StudentID {
		t.Error("last result not recorded")
	}
}

func TestHistoryCapacityEviction(t *testing.T) {
	const capacity = 5
	e := newTestEngine([]string{"A", "B"}, false, capacity, 9)

	for i := 0; i < capacity+1; i++ {
		if e.DrawNext() == nil {
			t.Fatal("unexpected nil result")
		}
	}

	list := e.History().List()
	if len(list) != capacity {
		t.Fatalf("history len %d, want %d", len(list), capacity)
	}
	// records are in insertion order; the oldest one was evicted
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp < list[i-1].Timestamp {
			t.Error("history out of insertion order")
		}
	}
}

func TestDisplayNamePrefersSnapshot(t *testing.T) {
	e := newTestEngine([]string{"A"}, false, 0, 2)
	r := e.DrawNext()
	if r == nil {
		t.Fatal("expected result")
	}

	// roster replaced after the draw: display still uses the snapshot
	e.Roster().ReplaceRoster([]Student{{ID: "x", Name: "Z"}})
	if got := e.DisplayName(*r); got != "A" {
		t.Errorf("display name %q, want snapshot %q", got, "A")
	}

	// no snapshot: live lookup, then Unknown
	if got := e.DisplayName(RollResult{StudentID: "x"}); got != "Z" {
		t.Errorf("display name %q, want live lookup %q", got, "Z")
	}
	if got := e.DisplayName(RollResult{StudentID: "gone"}); got != "Unknown" {
		t.Errorf("display name %q, want Unknown", got)
	}
}
