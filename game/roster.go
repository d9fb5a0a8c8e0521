package game

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RosterPool holds the full roster plus the ordered subset of ids still
// eligible under no-repeat mode. The pool is mutated by the draw engine
// (removal on draw) and by explicit reset/replace operations; every
// mutation re-establishes pool ⊆ roster.
//
// RosterPool is not goroutine-safe; the service layer serializes access.
type RosterPool struct {
	students []Student
	pool     []string
	noRepeat bool
}

// NewRosterPool creates an empty roster with no-repeat enabled.
func NewRosterPool(noRepeat bool) *RosterPool {
	return &RosterPool{noRepeat: noRepeat}
}

// Restore rebuilds a roster pool from persisted state. Pool entries that no
// longer exist in the roster are dropped, and an empty pool under no-repeat
// is repopulated from the roster (self-healing rehydrate).
func Restore(students []Student, pool []string, noRepeat bool) *RosterPool {
	rp := &RosterPool{
		students: append([]Student(nil), students...),
		noRepeat: noRepeat,
	}
	if noRepeat {
		ids := rp.idSet()
		rp.pool = lo.Filter(pool, func(id string, _ int) bool {
			_, ok := ids[id]
			return ok
		})
		if len(rp.pool) == 0 && len(rp.students) > 0 {
			rp.ResetPool()
		}
	}
	return rp
}

// Students returns a copy of the roster in order.
func (rp *RosterPool) Students() []Student {
	out := make([]Student, len(rp.students))
	copy(out, rp.students)
	return out
}

// Pool returns a copy of the eligible id list in order.
func (rp *RosterPool) Pool() []string {
	out := make([]string, len(rp.pool))
	copy(out, rp.pool)
	return out
}

// Size returns the roster size.
func (rp *RosterPool) Size() int { return len(rp.students) }

// NoRepeat reports whether no-repeat mode is active.
func (rp *RosterPool) NoRepeat() bool { return rp.noRepeat }

// Find returns the student with the given id.
func (rp *RosterPool) Find(id string) (Student, bool) {
	return lo.Find(rp.students, func(s Student) bool { return s.ID == id })
}

// FindByName returns the first student with the given name.
func (rp *RosterPool) FindByName(name string) (Student, bool) {
	return lo.Find(rp.students, func(s Student) bool { return s.Name == name })
}

// AddStudent appends a new student with a fresh id. Under no-repeat the new
// id immediately joins the pool.
func (rp *RosterPool) AddStudent(name, avatarURL string) Student {
	s := Student{
		ID:        uuid.New().String(),
		Name:      name,
		AvatarURL: avatarURL,
	}
	rp.students = append(rp.students, s)
	if rp.noRepeat {
		rp.pool = append(rp.pool, s.ID)
	}
	return s
}

// RemoveStudent removes a student from roster and pool. History records
// referring to the removed student keep their own name snapshot; that
// inconsistency is tolerated, not prevented.
func (rp *RosterPool) RemoveStudent(id string) bool {
	before := len(rp.students)
	rp.students = lo.Reject(rp.students, func(s Student, _ int) bool { return s.ID == id })
	if len(rp.students) == before {
		return false
	}
	rp.pool = lo.Reject(rp.pool, func(pid string, _ int) bool { return pid == id })
	return true
}

// ToggleStar flips the starred flag on a student.
func (rp *RosterPool) ToggleStar(id string) bool {
	for i := range rp.students {
		if rp.students[i].ID == id {
			rp.students[i].Starred = !rp.students[i].Starred
			return true
		}
	}
	return false
}

// ResetPool repopulates the pool with all roster ids in roster order.
func (rp *RosterPool) ResetPool() {
	rp.pool = lo.Map(rp.students, func(s Student, _ int) string { return s.ID })
}

// SetNoRepeat toggles no-repeat mode. Enabling rebuilds the pool from the
// full roster; disabling empties it (draws then use the whole roster).
func (rp *RosterPool) SetNoRepeat(enabled bool) {
	rp.noRepeat = enabled
	if enabled {
		rp.ResetPool()
	} else {
		rp.pool = nil
	}
}

// ReplaceRoster swaps the whole roster. The pool is rebuilt from the new
// roster when no-repeat is active, else emptied.
func (rp *RosterPool) ReplaceRoster(students []Student) {
	rp.students = append([]Student(nil), students...)
	if rp.noRepeat {
		rp.ResetPool()
	} else {
		rp.pool = nil
	}
}

// EligibleIDs returns the id set a draw selects from: the pool when
// no-repeat is active and the pool is non-empty, otherwise the full roster.
// An exhausted pool therefore falls back to the whole roster rather than
// dead-ending mid-session; removeFromPool on the drawn id keeps later
// draws consistent with this implicit-refill policy.
func (rp *RosterPool) EligibleIDs() []string {
	if rp.noRepeat && len(rp.pool) > 0 {
		return rp.Pool()
	}
	return lo.Map(rp.students, func(s Student, _ int) string { return s.ID })
}

// removeFromPool removes one id from the pool after a committed draw.
func (rp *RosterPool) removeFromPool(id string) {
	rp.pool = lo.Reject(rp.pool, func(pid string, _ int) bool { return pid == id })
}

func (rp *RosterPool) idSet() map[string]struct{} {
	return lo.SliceToMap(rp.students, func(s Student) (string, struct{}) { return s.ID, struct{}{} })
}
