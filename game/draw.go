package game

import (
	"time"

	"github.com/rs/zerolog"
)

// DrawEngine performs atomic draws: pick an eligible student uniformly,
// assign rarity and wear, remove the id from the no-repeat pool, and append
// the result to history. It is the only component that mutates the pool as
// a consequence of drawing.
//
// DrawEngine is not goroutine-safe; the service layer serializes access.
type DrawEngine struct {
	roster  *RosterPool
	model   *Model
	history *History
	rng     RandomSource
	logger  zerolog.Logger

	lastResult *RollResult
}

// NewDrawEngine wires the engine. rng may be nil for the crypto default.
func NewDrawEngine(roster *RosterPool, model *Model, history *History, rng RandomSource, logger zerolog.Logger) *DrawEngine {
	if rng == nil {
		rng = DefaultRandomSource()
	}
	return &DrawEngine{
		roster:  roster,
		model:   model,
		history: history,
		rng:     rng,
		logger:  logger.With().Str("component", "draw-engine").Logger(),
	}
}

// DrawNext commits one draw and returns the result, or nil when the roster
// is empty (no side effects in that case). The pool removal and history
// append happen together as one state transition; callers must not observe
// a result before both are applied.
func (e *DrawEngine) DrawNext() *RollResult {
	eligible := e.roster.EligibleIDs()
	if len(eligible) == 0 {
		return nil
	}

	id := eligible[intn(e.rng, len(eligible))]
	student, ok := e.roster.Find(id)
	if !ok {
		// eligible ids are derived from the roster, so this indicates a
		// broken pool invariant; treat as a no-result draw
		e.logger.Error().Str("student_id", id).Msg("eligible id missing from roster")
		return nil
	}

	level := e.model.DrawWearLevel()
	result := RollResult{
		StudentID: student.ID,
		Name:      student.Name,
		Rarity:    e.model.DrawRarity(),
		WearLevel: level,
		WearValue: e.model.GenerateWearValue(level),
		Timestamp: time.Now().UnixMilli(),
	}

	if e.roster.NoRepeat() {
		e.roster.removeFromPool(student.ID)
	}
	e.history.Append(result)
	e.lastResult = &result

	e.logger.Debug().
		Str("student_id", result.StudentID).
		Str("name", result.Name).
		Str("rarity", string(result.Rarity)).
		Int("pool_remaining", len(e.roster.Pool())).
		Msg("draw committed")

	return &result
}

// LastResult returns the most recent committed result, nil before any draw.
func (e *DrawEngine) LastResult() *RollResult {
	return e.lastResult
}

// History returns the engine's history.
func (e *DrawEngine) History() *History { return e.history }

// Roster returns the engine's roster pool.
func (e *DrawEngine) Roster() *RosterPool { return e.roster }

// Model returns the engine's rarity model.
func (e *DrawEngine) Model() *Model { return e.model }

// DisplayName resolves the name to show for a history record: the snapshot
// stored on the result first, a live roster lookup only as a last resort.
func (e *DrawEngine) DisplayName(r RollResult) string {
	if r.Name != "" {
		return r.Name
	}
	if s, ok := e.roster.Find(r.StudentID); ok {
		return s.Name
	}
	return "Unknown"
}
