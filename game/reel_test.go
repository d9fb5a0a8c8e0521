package game

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

func testSequence(n int) []ReelTile {
	tiles := make([]ReelTile, n)
	for i := range tiles {
		tiles[i] = ReelTile{ID: "tile" + string(rune('a'+i)), Name: "N", Rarity: RarityBlue}
	}
	return tiles
}

func testAnimator() *Animator {
	return NewAnimator(DefaultReelConfig(), zerolog.Nop())
}

func TestPlanUnmeasuredLayout(t *testing.T) {
	a := testAnimator()
	_, err := a.Plan(testSequence(10), 9, Layout{})
	if !errors.Is(err, ErrUnmeasuredLayout) {
		t.Fatalf("zero-width layout: got %v, want ErrUnmeasuredLayout", err)
	}
}

func TestPlanTargetCenterAlignment(t *testing.T) {
	a := testAnimator()
	seq := testSequence(19)
	widths := []float64{130, 320, 777, 1024, 1440.5, 2560}

	for _, w := range widths {
		layout := Layout{ContainerWidth: w, PaddingLeft: 16, PaddingRight: 16}
		if layout.ContentWidth() < a.Config().TileWidth {
			continue
		}
		geo, err := a.Plan(seq, len(seq)-1, layout)
		if err != nil {
			t.Fatalf("width %v: %v", w, err)
		}

		// target tile center at snapped final offset must sit within 1px
		// of the container center line
		tileCenter := geo.SnappedFinalOffset() + float64(geo.TargetDisplayIndex)*geo.Step + a.Config().TileWidth/2
		if d := math.Abs(tileCenter - geo.CenterX); d > 1 {
			t.Errorf("width %v: target center off by %.3fpx", w, d)
		}
	}
}

func TestPlanGeometry(t *testing.T) {
	a := testAnimator()
	seq := testSequence(13)
	layout := Layout{ContainerWidth: 800, PaddingLeft: 20, PaddingRight: 20}

	geo, err := a.Plan(seq, len(seq)-1, layout)
	if err != nil {
		t.Fatal(err)
	}

	content := layout.ContentWidth()
	step := a.Step()
	wantVisible := int(math.Ceil((content+a.Config().TileGap)/step)) + 1
	if geo.VisibleCount != wantVisible {
		t.Errorf("visible count %d, want %d", geo.VisibleCount, wantVisible)
	}
	wantPrepad := (wantVisible+1)/2 + 1
	if geo.Prepad != wantPrepad {
		t.Errorf("prepad %d, want %d", geo.Prepad, wantPrepad)
	}
	if geo.TargetDisplayIndex != geo.Prepad+len(seq)-1 {
		t.Errorf("target display index %d", geo.TargetDisplayIndex)
	}
	if minLen := geo.TargetDisplayIndex + geo.VisibleCount + a.Config().Buffer; len(geo.Display) < minLen {
		t.Errorf("display len %d below minimum %d", len(geo.Display), minLen)
	}

	ids := lo.Map(geo.Display, func(tile ReelTile, _ int) string { return tile.ID })
	if len(lo.Uniq(ids)) != len(ids) {
		t.Error("display tile ids not unique")
	}

	// the tile at the target display index is the real target, not a clone
	if geo.Display[geo.TargetDisplayIndex].ID != seq[len(seq)-1].ID {
		t.Errorf("target display slot holds %q", geo.Display[geo.TargetDisplayIndex].ID)
	}
}

func TestPlanReducedEffectsShrinksBuffer(t *testing.T) {
	a := testAnimator()
	seq := testSequence(13)
	normal, err := a.Plan(seq, len(seq)-1, Layout{ContainerWidth: 800})
	if err != nil {
		t.Fatal(err)
	}
	reduced, err := a.Plan(seq, len(seq)-1, Layout{ContainerWidth: 800, ReducedEffects: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(reduced.Display) >= len(normal.Display) {
		t.Errorf("reduced buffer should shorten display: %d vs %d", len(reduced.Display), len(normal.Display))
	}
	// rendering mode never moves the stopping position
	if reduced.FinalOffset != normal.FinalOffset {
		t.Errorf("final offset changed by reduced mode: %v vs %v", reduced.FinalOffset, normal.FinalOffset)
	}
}

func TestEaseCurveShape(t *testing.T) {
	if got := stopCurve.Ease(0); got != 0 {
		t.Errorf("Ease(0) = %v", got)
	}
	if got := stopCurve.Ease(1); got != 1 {
		t.Errorf("Ease(1) = %v", got)
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := stopCurve.Ease(float64(i) / 100)
		if v < prev-1e-9 {
			t.Fatalf("easing not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
	// strong ease-out: half the travel time covers well past half the distance
	if v := stopCurve.Ease(0.5); v < 0.8 {
		t.Errorf("Ease(0.5) = %v, want strong deceleration bias", v)
	}
}

func TestRunSampleTicksAndCompletion(t *testing.T) {
	a := testAnimator()
	seq := testSequence(19)
	geo, err := a.Plan(seq, len(seq)-1, Layout{ContainerWidth: 900})
	if err != nil {
		t.Fatal(err)
	}

	run := a.NewRun(geo, SpeedFast, false)
	var ticks []TickEvent
	step := 16 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < run.Duration(); elapsed += step {
		f := run.Sample(elapsed)
		if f.Done {
			t.Fatalf("done before duration at %v", elapsed)
		}
		ticks = append(ticks, f.Ticks...)
	}

	if len(ticks) == 0 {
		t.Fatal("no ticks emitted over full travel")
	}
	for i, tick := range ticks {
		if tick.Intensity < tickBase || tick.Intensity > 1 {
			t.Errorf("tick %d intensity %v out of range", i, tick.Intensity)
		}
		if i > 0 && tick.Elapsed-ticks[i-1].Elapsed < a.Config().TickMinGap {
			t.Errorf("ticks %d and %d closer than throttle gap", i-1, i)
		}
	}
	// intensity decays overall
	if ticks[len(ticks)-1].Intensity >= ticks[0].Intensity {
		t.Errorf("intensity did not decay: first %v last %v", ticks[0].Intensity, ticks[len(ticks)-1].Intensity)
	}

	final := run.Sample(run.Duration())
	if !final.Done {
		t.Fatal("expected done at duration")
	}
	if final.Offset != geo.SnappedFinalOffset() {
		t.Errorf("final offset %v not snapped to %v", final.Offset, geo.SnappedFinalOffset())
	}
}

func TestRunDriveCompletesOnce(t *testing.T) {
	a := testAnimator()
	seq := testSequence(13)
	geo, err := a.Plan(seq, len(seq)-1, Layout{ContainerWidth: 600})
	if err != nil {
		t.Fatal(err)
	}

	run := a.NewRun(geo, SpeedFast, false)
	run.duration = 50 * time.Millisecond
	run.interval = 5 * time.Millisecond

	completions := 0
	run.Drive(context.Background(), nil, func() { completions++ })
	if completions != 1 {
		t.Fatalf("completion fired %d times, want 1", completions)
	}
}

func TestRunDriveCancelledNeverCompletes(t *testing.T) {
	a := testAnimator()
	seq := testSequence(13)
	geo, err := a.Plan(seq, len(seq)-1, Layout{ContainerWidth: 600})
	if err != nil {
		t.Fatal(err)
	}

	run := a.NewRun(geo, SpeedSlow, false)
	run.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	completions := 0
	run.Drive(ctx, nil, func() { completions++ })
	if completions != 0 {
		t.Fatalf("cancelled run fired completion %d times", completions)
	}
}

func TestDetectReducedEffects(t *testing.T) {
	tests := []struct {
		name    string
		prefers bool
		dpr     float64
		width   float64
		cores   int
		want    bool
	}{
		{"explicit preference", true, 1, 1000, 8, true},
		{"high dpr large viewport", false, 2, 1920, 8, true},
		{"high dpr small viewport", false, 2, 1200, 8, false},
		{"low core count", false, 1, 1000, 4, true},
		{"unknown cores", false, 1, 1000, 0, false},
		{"default", false, 1, 1200, 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectReducedEffects(tt.prefers, tt.dpr, tt.width, tt.cores); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
