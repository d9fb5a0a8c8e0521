package game

import (
	"testing"

	"github.com/samber/lo"
)

func assertPoolSubsetOfRoster(t *testing.T, rp *RosterPool) {
	t.Helper()
	ids := lo.Map(rp.Students(), func(s Student, _ int) string { return s.ID })
	for _, pid := range rp.Pool() {
		if !lo.Contains(ids, pid) {
			t.Fatalf("pool id %s not in roster", pid)
		}
	}
}

func TestAddStudentJoinsPool(t *testing.T) {
	rp := NewRosterPool(true)
	s := rp.AddStudent("Alice", "")
	if s.ID == "" {
		t.Fatal("expected generated id")
	}
	if !lo.Contains(rp.Pool(), s.ID) {
		t.Error("new student should join pool under no-repeat")
	}
	assertPoolSubsetOfRoster(t, rp)
}

func TestAddStudentNoRepeatDisabled(t *testing.T) {
	rp := NewRosterPool(false)
	rp.AddStudent("Alice", "")
	if len(rp.Pool()) != 0 {
		t.Error("pool should stay empty when no-repeat is off")
	}
}

func TestRemoveStudent(t *testing.T) {
	rp := NewRosterPool(true)
	a := rp.AddStudent("Alice", "")
	rp.AddStudent("Bob", "")

	if !rp.RemoveStudent(a.ID) {
		t.Fatal("expected removal")
	}
	if rp.Size() != 1 {
		t.Errorf("roster size %d, want 1", rp.Size())
	}
	if lo.Contains(rp.Pool(), a.ID) {
		t.Error("removed student must leave the pool")
	}
	if rp.RemoveStudent("missing") {
		t.Error("removing unknown id should return false")
	}
	assertPoolSubsetOfRoster(t, rp)
}

func TestSetNoRepeat(t *testing.T) {
	rp := NewRosterPool(false)
	rp.AddStudent("Alice", "")
	rp.AddStudent("Bob", "")

	rp.SetNoRepeat(true)
	if len(rp.Pool()) != 2 {
		t.Errorf("enabling no-repeat should rebuild pool, got %d", len(rp.Pool()))
	}

	rp.SetNoRepeat(false)
	if len(rp.Pool()) != 0 {
		t.Error("disabling no-repeat should empty the pool")
	}
}

func TestReplaceRoster(t *testing.T) {
	rp := NewRosterPool(true)
	rp.AddStudent("Alice", "")

	rp.ReplaceRoster([]Student{
		{ID: "n1", Name: "Carol"},
		{ID: "n2", Name: "Dave"},
	})
	if rp.Size() != 2 {
		t.Fatalf("roster size %d, want 2", rp.Size())
	}
	if len(rp.Pool()) != 2 {
		t.Errorf("pool should rebuild from new roster, got %d", len(rp.Pool()))
	}
	assertPoolSubsetOfRoster(t, rp)
}

func TestEligibleIDsFallsBackToRoster(t *testing.T) {
	rp := NewRosterPool(true)
	a := rp.AddStudent("Alice", "")
	rp.removeFromPool(a.ID)

	eligible := rp.EligibleIDs()
	if len(eligible) != 1 || eligible[0] != a.ID {
		t.Errorf("exhausted pool should fall back to full roster, got %v", eligible)
	}
}

func TestRestoreSelfHealsEmptyPool(t *testing.T) {
	students := []Student{{ID: "s1", Name: "Alice"}, {ID: "s2", Name: "Bob"}}

	rp := Restore(students, nil, true)
	if len(rp.Pool()) != 2 {
		t.Errorf("empty pool under no-repeat should be rebuilt on restore, got %d", len(rp.Pool()))
	}

	// stale pool entries for removed students are dropped
	rp = Restore(students, []string{"s1", "gone"}, true)
	if got := rp.Pool(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("stale pool ids should be dropped, got %v", got)
	}
	assertPoolSubsetOfRoster(t, rp)
}

func TestToggleStar(t *testing.T) {
	rp := NewRosterPool(false)
	s := rp.AddStudent("Alice", "")
	if !rp.ToggleStar(s.ID) {
		t.Fatal("expected toggle")
	}
	got, _ := rp.Find(s.ID)
	if !got.Starred {
		t.Error("expected starred")
	}
}
