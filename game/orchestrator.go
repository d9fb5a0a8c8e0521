package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/QQHKX/rollcall-module/errors"
)

// Phase is the orchestrator state machine phase.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRolling  Phase = "rolling"
	PhaseRevealed Phase = "revealed"
	PhaseDone     Phase = "done"
)

// DefaultMultiDrawCount is the auto-mode draw count ("5x").
const DefaultMultiDrawCount = 5

// CueSink receives the orchestrator's audio signals. Fire-and-forget; no
// return value is consumed.
type CueSink interface {
	Tick(intensity, frequencyHint float64)
	Reveal(rarity RarityTier)
}

// Drawer commits a single draw. The engine's DrawNext signature is wrapped
// by the service so pool/history mutation and persistence commit before
// the orchestrator starts animating the result.
type Drawer interface {
	Draw() (*RollResult, []ReelTile, error)
}

// OrchestratorOptions tune one multi-draw session.
type OrchestratorOptions struct {
	Count   int
	Speed   Speed
	Layout  Layout
	Reduced bool

	// AnimationDuration and RevealPause override the speed-derived timings;
	// zero means use the speed defaults. Used by tests.
	AnimationDuration time.Duration
	RevealPause       time.Duration
}

// Snapshot is a read-only view of a session's progress.
type Snapshot struct {
	ID      string       `json:"id"`
	Phase   Phase        `json:"phase"`
	Current int          `json:"current"`
	Total   int          `json:"total"`
	Results []RollResult `json:"results"`
	Aborted bool         `json:"aborted"`
}

// Orchestrator repeats the draw-and-animate cycle a fixed number of times,
// pausing between reveals and refusing user interruption until the whole
// sequence is done. A session that runs out of roster mid-sequence aborts
// back to idle without completing the remaining draws.
type Orchestrator struct {
	mu       sync.Mutex
	id       string
	phase    Phase
	current  int
	total    int
	results  []RollResult
	aborted  bool
	cancel   context.CancelFunc
	done     chan struct{}
	drawer   Drawer
	animator *Animator
	cues     CueSink
	logger   zerolog.Logger
	opts     OrchestratorOptions
}

// NewOrchestrator creates an idle session. cues may be nil.
func NewOrchestrator(drawer Drawer, animator *Animator, cues CueSink, opts OrchestratorOptions, logger zerolog.Logger) *Orchestrator {
	if opts.Count <= 0 {
		opts.Count = DefaultMultiDrawCount
	}
	if !opts.Speed.Valid() {
		opts.Speed = SpeedNormal
	}
	id := uuid.New().String()
	return &Orchestrator{
		id:       id,
		phase:    PhaseIdle,
		total:    opts.Count,
		drawer:   drawer,
		animator: animator,
		cues:     cues,
		logger:   logger.With().Str("component", "multi-draw").Str("session_id", id).Logger(),
		opts:     opts,
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// Start begins the auto sequence. Only an idle session can start.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return apperrors.New(apperrors.ErrDrawInProgress, "multi-draw session already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.phase = PhaseRolling
	o.current = 1
	go o.run(runCtx)
	return nil
}

// Interrupt rejects user interruption while the auto sequence is running;
// close/continue controls stay disabled until the session is done.
func (o *Orchestrator) Interrupt() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == PhaseRolling || o.phase == PhaseRevealed {
		return apperrors.New(apperrors.ErrDrawInProgress, "auto multi-draw cannot be interrupted")
	}
	return nil
}

// Stop cancels the session on teardown. Pending timers are released; any
// in-flight animation's completion is discarded.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State returns the current session snapshot.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	results := make([]RollResult, len(o.results))
	copy(results, o.results)
	return Snapshot{
		ID:      o.id,
		Phase:   o.phase,
		Current: o.current,
		Total:   o.total,
		Results: results,
		Aborted: o.aborted,
	}
}

// Wait blocks until the session goroutine exits. Used by tests.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	for n := 1; n <= o.total; n++ {
		o.setRolling(n)

		result, seq, err := o.drawer.Draw()
		if err != nil || result == nil {
			// roster exhausted mid-sequence: abort immediately
			o.abort(err)
			return
		}

		if !o.animate(ctx, seq) {
			o.abort(nil)
			return
		}

		o.reveal(n, *result)

		if n < o.total {
			if !sleepCtx(ctx, o.revealPause()) {
				o.abort(nil)
				return
			}
		}
	}

	o.mu.Lock()
	o.phase = PhaseDone
	o.mu.Unlock()
	o.logger.Info().Int("draws", o.total).Msg("multi-draw session complete")
}

// animate runs the reel for one draw. Returns false when the context was
// cancelled before completion; the stale completion is then never observed.
func (o *Orchestrator) animate(ctx context.Context, seq []ReelTile) bool {
	geo, err := o.animator.Plan(seq, len(seq)-1, o.opts.Layout)
	if err != nil {
		o.logger.Warn().Err(err).Msg("skipping animation, layout not usable")
		return ctx.Err() == nil
	}

	run := o.animator.NewRun(geo, o.opts.Speed, o.opts.Reduced)
	if o.opts.AnimationDuration > 0 {
		run.duration = o.opts.AnimationDuration
	}

	completed := false
	run.Drive(ctx,
		func(f Frame) {
			if o.cues == nil {
				return
			}
			for _, t := range f.Ticks {
				o.cues.Tick(t.Intensity, t.FrequencyHint)
			}
		},
		func() { completed = true },
	)
	return completed
}

func (o *Orchestrator) setRolling(n int) {
	o.mu.Lock()
	o.phase = PhaseRolling
	o.current = n
	o.mu.Unlock()
}

func (o *Orchestrator) reveal(n int, result RollResult) {
	o.mu.Lock()
	o.phase = PhaseRevealed
	o.results = append(o.results, result)
	o.mu.Unlock()

	if o.cues != nil {
		o.cues.Reveal(result.Rarity)
	}
	o.logger.Debug().
		Int("n", n).
		Str("name", result.Name).
		Str("rarity", string(result.Rarity)).
		Msg("revealed")
}

func (o *Orchestrator) abort(err error) {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.aborted = true
	o.mu.Unlock()
	o.logger.Warn().Err(err).Int("completed", len(o.results)).Msg("multi-draw aborted")
}

func (o *Orchestrator) revealPause() time.Duration {
	if o.opts.RevealPause > 0 {
		return o.opts.RevealPause
	}
	return o.opts.Speed.RevealPause()
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
