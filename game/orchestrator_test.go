package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// engineDrawer wires a test engine and builder the way the service does,
// optionally removing students after a set number of draws.
type engineDrawer struct {
	engine     *DrawEngine
	builder    *SequenceBuilder
	emptyAfter int
	draws      int
}

func (d *engineDrawer) Draw() (*RollResult, []ReelTile, error) {
	d.draws++
	if d.emptyAfter > 0 && d.draws > d.emptyAfter {
		d.engine.Roster().ReplaceRoster(nil)
	}
	result := d.engine.DrawNext()
	if result == nil {
		return nil, nil, nil
	}
	seq := d.builder.Build(*result, d.engine.Roster().Students(), SpeedFast)
	return result, seq, nil
}

type recordingCues struct {
	mu      sync.Mutex
	ticks   int
	reveals []RarityTier
}

func (c *recordingCues) Tick(intensity, frequencyHint float64) {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
}

func (c *recordingCues) Reveal(rarity RarityTier) {
	c.mu.Lock()
	c.reveals = append(c.reveals, rarity)
	c.mu.Unlock()
}

func newTestOrchestrator(names []string, count, emptyAfter int) (*Orchestrator, *recordingCues) {
	rng := NewSeededSource(99)
	engine := newTestEngine(names, true, 0, 99)
	drawer := &engineDrawer{
		engine:     engine,
		builder:    NewSequenceBuilder(engine.Model(), rng),
		emptyAfter: emptyAfter,
	}
	cues := &recordingCues{}
	o := NewOrchestrator(drawer, testAnimator(), cues, OrchestratorOptions{
		Count:             count,
		Speed:             SpeedFast,
		Layout:            Layout{ContainerWidth: 600},
		AnimationDuration: 30 * time.Millisecond,
		RevealPause:       10 * time.Millisecond,
	}, zerolog.Nop())
	return o, cues
}

func TestMultiDrawCompletes(t *testing.T) {
	o, cues := newTestOrchestrator([]string{"A", "B", "C", "D", "E", "F"}, 5, 0)

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	o.Wait()

	state := o.State()
	if state.Phase != PhaseDone {
		t.Fatalf("phase %s, want done", state.Phase)
	}
	if len(state.Results) != 5 {
		t.Fatalf("results %d, want 5", len(state.Results))
	}
	if state.Aborted {
		t.Error("completed session marked aborted")
	}

	cues.mu.Lock()
	defer cues.mu.Unlock()
	if len(cues.reveals) != 5 {
		t.Errorf("reveal cues %d, want 5", len(cues.reveals))
	}
}

func TestMultiDrawAbortsWhenRosterEmpties(t *testing.T) {
	o, _ := newTestOrchestrator([]string{"A", "B", "C"}, 5, 2)

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	o.Wait()

	state := o.State()
	if state.Phase != PhaseIdle {
		t.Fatalf("phase %s, want idle after abort", state.Phase)
	}
	if !state.Aborted {
		t.Error("expected aborted flag")
	}
	if len(state.Results) != 2 {
		t.Errorf("results %d, want 2 completed before abort", len(state.Results))
	}
}

func TestMultiDrawInterruptSuppressed(t *testing.T) {
	o, _ := newTestOrchestrator([]string{"A", "B", "C", "D", "E", "F"}, 3, 0)

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := o.Interrupt(); err == nil {
		t.Error("interrupt should be rejected while rolling")
	}
	o.Wait()
	if err := o.Interrupt(); err != nil {
		t.Errorf("interrupt after done should be allowed: %v", err)
	}
}

func TestMultiDrawDoubleStart(t *testing.T) {
	o, _ := newTestOrchestrator([]string{"A", "B", "C", "D"}, 2, 0)

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(context.Background()); err == nil {
		t.Error("second start should be rejected")
	}
	o.Wait()
}

func TestMultiDrawStopDiscardsStaleCompletion(t *testing.T) {
	o, _ := newTestOrchestrator([]string{"A", "B", "C", "D", "E", "F"}, 5, 0)

	if err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	o.Stop()

	state := o.State()
	if state.Phase == PhaseDone {
		t.Error("stopped session must not reach done")
	}
	if !state.Aborted && state.Phase != PhaseIdle {
		t.Errorf("unexpected state after stop: %+v", state)
	}
}
