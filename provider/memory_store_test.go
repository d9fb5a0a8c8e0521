package provider

import (
	"context"
	"testing"

	"github.com/QQHKX/rollcall-module/game"
)

func TestMemoryStoreStateRoundTrip(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatalf("fresh store should have no state, got %+v", loaded)
	}

	state := &State{
		Students: []game.Student{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}},
		Pool:     []string{"a", "b"},
		Settings: game.DefaultSettings(),
	}
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatal(err)
	}

	loaded, err = store.LoadState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || len(loaded.Students) != 2 || len(loaded.Pool) != 2 {
		t.Fatalf("unexpected state: %+v", loaded)
	}
	if loaded.SavedAt == 0 {
		t.Error("SavedAt not stamped")
	}

	// mutation of the loaded copy must not leak back into the store
	loaded.Students[0].Name = "changed"
	again, _ := store.LoadState(ctx)
	if again.Students[0].Name != "Alice" {
		t.Error("loaded state aliases stored state")
	}
}

func TestMemoryStoreHistoryCap(t *testing.T) {
	const capacity = 3
	store := NewMemoryStore(capacity)
	ctx := context.Background()

	for i := 0; i < capacity+2; i++ {
		r := game.RollResult{StudentID: "s", Name: "N", Timestamp: int64(i)}
		if err := store.AppendHistory(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != capacity {
		t.Fatalf("history len %d, want %d", len(records), capacity)
	}
	if records[0].Timestamp != 2 {
		t.Errorf("oldest surviving record %d, want 2", records[0].Timestamp)
	}

	limited, err := store.History(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[1].Timestamp != int64(capacity+1) {
		t.Fatalf("limited query wrong: %+v", limited)
	}

	if err := store.ClearHistory(ctx); err != nil {
		t.Fatal(err)
	}
	records, _ = store.History(ctx, 0)
	if len(records) != 0 {
		t.Errorf("history not cleared, %d records remain", len(records))
	}
}
