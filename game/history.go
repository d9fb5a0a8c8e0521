package game

// DefaultHistoryCapacity bounds the in-memory draw history.
const DefaultHistoryCapacity = 2000

// History is a bounded, insertion-ordered list of roll results. When the
// capacity is exceeded the oldest records are evicted first. Results are
// immutable once appended; the list is cleared only by explicit action.
type History struct {
	results  []RollResult
	capacity int
}

// NewHistory creates a history with the given capacity. A non-positive
// capacity falls back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// RestoreHistory rebuilds a history from persisted records, trimming to
// capacity from the oldest end.
func RestoreHistory(results []RollResult, capacity int) *History {
	h := NewHistory(capacity)
	if over := len(results) - h.capacity; over > 0 {
		results = results[over:]
	}
	h.results = append([]RollResult(nil), results...)
	return h
}

// Append adds a result, evicting the oldest record if at capacity.
func (h *History) Append(r RollResult) {
	h.results = append(h.results, r)
	if over := len(h.results) - h.capacity; over > 0 {
		h.results = h.results[over:]
	}
}

// List returns a copy of the history in insertion order.
func (h *History) List() []RollResult {
	out := make([]RollResult, len(h.results))
	copy(out, h.results)
	return out
}

// Len returns the number of stored results.
func (h *History) Len() int { return len(h.results) }

// Capacity returns the configured bound.
func (h *History) Capacity() int { return h.capacity }

// Clear drops all records.
func (h *History) Clear() {
	h.results = nil
}

// Last returns the most recent result.
func (h *History) Last() (RollResult, bool) {
	if len(h.results) == 0 {
		return RollResult{}, false
	}
	return h.results[len(h.results)-1], true
}
