package game

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/QQHKX/rollcall-module/errors"
)

// ErrUnmeasuredLayout is returned when geometry is requested before the
// container has a usable width. Callers defer planning until a valid
// measurement arrives; no NaN offsets are ever produced.
var ErrUnmeasuredLayout = apperrors.New(apperrors.ErrLayoutUnmeasured, "container layout not measured")

// tickBase is the floor of the tick intensity decay curve.
const tickBase = 0.25

// defaultFrameInterval approximates a 60Hz sampling cadence.
const defaultFrameInterval = 16 * time.Millisecond

// Layout is the measured rendering surface, reported by the client on mount
// and on every resize.
type Layout struct {
	ContainerWidth float64 `json:"containerWidth"`
	PaddingLeft    float64 `json:"paddingLeft"`
	PaddingRight   float64 `json:"paddingRight"`
	ReducedEffects bool    `json:"reducedEffects"`
}

// ContentWidth returns the width available for tiles.
func (l Layout) ContentWidth() float64 {
	return l.ContainerWidth - l.PaddingLeft - l.PaddingRight
}

// LayoutProvider supplies the current layout. Abstracting the measurement
// keeps the geometry logic testable without a rendering surface.
type LayoutProvider interface {
	Layout() Layout
}

// DetectReducedEffects is the heuristic for the reduced-effects rendering
// mode: explicit user preference, high-DPI large viewports, or few logical
// cores. It only affects padding buffers and tick throttling, never the
// stopping position.
func DetectReducedEffects(prefersReducedMotion bool, devicePixelRatio, viewportWidth float64, logicalCores int) bool {
	if prefersReducedMotion {
		return true
	}
	if devicePixelRatio >= 2 && viewportWidth >= 1600 {
		return true
	}
	if logicalCores > 0 && logicalCores <= 4 {
		return true
	}
	return false
}

// ReelConfig holds the reel geometry and timing constants.
type ReelConfig struct {
	TileWidth         float64       `mapstructure:"tile_width"`
	TileGap           float64       `mapstructure:"tile_gap"`
	Buffer            int           `mapstructure:"buffer"`
	ReducedBuffer     int           `mapstructure:"reduced_buffer"`
	TickMinGap        time.Duration `mapstructure:"tick_min_gap"`
	ReducedTickMinGap time.Duration `mapstructure:"reduced_tick_min_gap"`
	FrameInterval     time.Duration `mapstructure:"frame_interval"`
}

// DefaultReelConfig returns the stock reel constants.
func DefaultReelConfig() ReelConfig {
	return ReelConfig{
		TileWidth:         120,
		TileGap:           12,
		Buffer:            8,
		ReducedBuffer:     4,
		TickMinGap:        40 * time.Millisecond,
		ReducedTickMinGap: 90 * time.Millisecond,
		FrameInterval:     defaultFrameInterval,
	}
}

func (c *ReelConfig) normalize() {
	def := DefaultReelConfig()
	if c.TileWidth <= 0 {
		c.TileWidth = def.TileWidth
	}
	if c.TileGap < 0 {
		c.TileGap = def.TileGap
	}
	if c.Buffer <= 0 {
		c.Buffer = def.Buffer
	}
	if c.ReducedBuffer <= 0 {
		c.ReducedBuffer = def.ReducedBuffer
	}
	if c.TickMinGap <= 0 {
		c.TickMinGap = def.TickMinGap
	}
	if c.ReducedTickMinGap <= 0 {
		c.ReducedTickMinGap = def.ReducedTickMinGap
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = def.FrameInterval
	}
}

// Geometry is the computed display plan for one animation run against one
// measured layout. Recomputed on every resize; the final offset always
// aligns the target tile center with the fixed center indicator.
type Geometry struct {
	VisibleCount       int        `json:"visibleCount"`
	Prepad             int        `json:"prepad"`
	Display            []ReelTile `json:"display"`
	TargetDisplayIndex int        `json:"targetDisplayIndex"`
	Step               float64    `json:"step"`
	CenterX            float64    `json:"centerX"`
	StartOffset        float64    `json:"startOffset"`
	FinalOffset        float64    `json:"finalOffset"`
}

// SnappedFinalOffset is the whole-pixel value the reel snaps to on
// completion, defeating floating point residue.
func (g *Geometry) SnappedFinalOffset() float64 {
	return math.Round(g.FinalOffset)
}

// Animator computes reel geometry and drives eased offset samples over
// time. The geometry math is pure; timing runs through Run.
type Animator struct {
	cfg    ReelConfig
	logger zerolog.Logger
}

// NewAnimator creates an animator with the given constants.
func NewAnimator(cfg ReelConfig, logger zerolog.Logger) *Animator {
	cfg.normalize()
	return &Animator{
		cfg:    cfg,
		logger: logger.With().Str("component", "reel-animator").Logger(),
	}
}

// Step returns the tile advance W+G.
func (a *Animator) Step() float64 { return a.cfg.TileWidth + a.cfg.TileGap }

// Config returns the animator constants.
func (a *Animator) Config() ReelConfig { return a.cfg }

// Plan computes the display sequence and offsets for one run.
//
// visibleCount = ceil((C+G)/S)+1 covers partial edge tiles; prepad =
// ceil(visibleCount/2)+1 clones of the sequence tail keep the left side of
// the window populated at the un-scrolled start position, and trailing
// clones keep the right side populated through the whole travel.
func (a *Animator) Plan(seq []ReelTile, targetIndex int, layout Layout) (*Geometry, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("empty tile sequence")
	}
	if targetIndex < 0 || targetIndex >= len(seq) {
		return nil, fmt.Errorf("target index %d out of range [0,%d)", targetIndex, len(seq))
	}

	content := layout.ContentWidth()
	if content <= 0 {
		return nil, ErrUnmeasuredLayout
	}

	step := a.Step()
	visible := int(math.Ceil((content+a.cfg.TileGap)/step)) + 1
	half := (visible + 1) / 2
	prepad := half + 1

	display := make([]ReelTile, 0, prepad+len(seq))
	for i := 0; i < prepad; i++ {
		src := seq[wrapIndex(len(seq)-prepad+i, len(seq))]
		display = append(display, cloneTile(src, fmt.Sprintf("p%d", i)))
	}
	display = append(display, seq...)

	targetDisplay := prepad + targetIndex

	buffer := a.cfg.Buffer
	if layout.ReducedEffects {
		buffer = a.cfg.ReducedBuffer
	}
	minLen := targetDisplay + visible + buffer
	for i := 0; len(display) < minLen; i++ {
		src := seq[i%len(seq)]
		display = append(display, cloneTile(src, fmt.Sprintf("t%d", i)))
	}

	centerX := layout.PaddingLeft + content/2
	finalOffset := centerX - (float64(targetDisplay)*step + a.cfg.TileWidth/2)

	return &Geometry{
		VisibleCount:       visible,
		Prepad:             prepad,
		Display:            display,
		TargetDisplayIndex: targetDisplay,
		Step:               step,
		CenterX:            centerX,
		StartOffset:        0,
		FinalOffset:        finalOffset,
	}, nil
}

func cloneTile(t ReelTile, suffix string) ReelTile {
	t.ID = t.ID + "~" + suffix
	return t
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

// stopCurve is the single ease-out transition used for the whole travel:
// one continuous cubic bezier biased heavily toward deceleration.
var stopCurve = cubicBezier{0.15, 0.8, 0.25, 1}

// cubicBezier evaluates a CSS-style timing curve with implicit endpoints
// (0,0) and (1,1).
type cubicBezier struct {
	x1, y1, x2, y2 float64
}

func (b cubicBezier) sampleX(t float64) float64 {
	// cubic with P0=(0,0), P3=(1,1)
	inv := 1 - t
	return 3*inv*inv*t*b.x1 + 3*inv*t*t*b.x2 + t*t*t
}

func (b cubicBezier) sampleY(t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*b.y1 + 3*inv*t*t*b.y2 + t*t*t
}

func (b cubicBezier) derivX(t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*b.x1 + 6*inv*t*(b.x2-b.x1) + 3*t*t*(1-b.x2)
}

// Ease maps progress x in [0,1] to eased output. Newton iterations with a
// bisection fallback solve the parametric t for x.
func (b cubicBezier) Ease(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	t := x
	for i := 0; i < 8; i++ {
		dx := b.sampleX(t) - x
		if math.Abs(dx) < 1e-7 {
			return b.sampleY(t)
		}
		d := b.derivX(t)
		if math.Abs(d) < 1e-7 {
			break
		}
		t -= dx / d
	}

	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < 32; i++ {
		cx := b.sampleX(t)
		if math.Abs(cx-x) < 1e-7 {
			break
		}
		if cx < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return b.sampleY(t)
}

// TickEvent marks the reel crossing a tile boundary during travel. The
// audio layer consumes it fire-and-forget.
type TickEvent struct {
	Elapsed       time.Duration `json:"elapsed"`
	Intensity     float64       `json:"intensity"`
	FrequencyHint float64       `json:"frequencyHint"`
	Slot          int           `json:"slot"`
}

// Frame is one sampled animation state.
type Frame struct {
	Elapsed time.Duration `json:"elapsed"`
	Offset  float64       `json:"offset"`
	Done    bool          `json:"done"`
	Ticks   []TickEvent   `json:"ticks,omitempty"`
}

// Run drives one animation session. Each run carries a unique id so stale
// completions from an abandoned run can be recognized and ignored.
type Run struct {
	ID       string
	Speed    Speed
	geo      *Geometry
	duration time.Duration
	tickGap  time.Duration
	interval time.Duration
	curve    cubicBezier

	lastSlot     int
	lastTickAt   time.Duration
	sampledOnce  bool
	completeOnce bool
}

// NewRun creates a run for a planned geometry at the given speed. The
// reduced flag widens the tick throttle; it never changes the stopping
// position.
func (a *Animator) NewRun(geo *Geometry, speed Speed, reduced bool) *Run {
	gap := a.cfg.TickMinGap
	if reduced {
		gap = a.cfg.ReducedTickMinGap
	}
	return &Run{
		ID:       uuid.New().String(),
		Speed:    speed,
		geo:      geo,
		duration: speed.Duration(),
		tickGap:  gap,
		interval: a.cfg.FrameInterval,
		curve:    stopCurve,
	}
}

// Geometry returns the run's display plan.
func (r *Run) Geometry() *Geometry { return r.geo }

// Duration returns the total travel time.
func (r *Run) Duration() time.Duration { return r.duration }

// OffsetAt returns the eased offset for an elapsed time, without mutating
// tick state.
func (r *Run) OffsetAt(elapsed time.Duration) float64 {
	if elapsed >= r.duration {
		return r.geo.SnappedFinalOffset()
	}
	t := float64(elapsed) / float64(r.duration)
	eased := r.curve.Ease(t)
	return r.geo.StartOffset + (r.geo.FinalOffset-r.geo.StartOffset)*eased
}

// slotAt identifies which tile sits under the center indicator for a given
// offset; a change between samples is a boundary crossing.
func (r *Run) slotAt(offset float64) int {
	return int(math.Round((r.geo.CenterX - offset - r.geo.Step/2) / r.geo.Step))
}

// Sample advances the run to the given elapsed time and returns the frame,
// including any tick emitted for a boundary crossing since the previous
// sample. Ticks are throttled by the minimum gap so high-refresh displays
// do not flood the audio layer; their intensity decays with the remaining
// distance.
func (r *Run) Sample(elapsed time.Duration) Frame {
	if elapsed >= r.duration {
		return Frame{Elapsed: elapsed, Offset: r.geo.SnappedFinalOffset(), Done: true}
	}

	offset := r.OffsetAt(elapsed)
	frame := Frame{Elapsed: elapsed, Offset: offset}

	slot := r.slotAt(offset)
	if !r.sampledOnce {
		r.sampledOnce = true
		r.lastSlot = slot
		return frame
	}

	if slot != r.lastSlot {
		if elapsed-r.lastTickAt >= r.tickGap {
			total := math.Abs(r.geo.FinalOffset - r.geo.StartOffset)
			remaining := math.Abs(r.geo.FinalOffset - offset)
			ratio := 0.0
			if total > 0 {
				ratio = remaining / total
			}
			frame.Ticks = append(frame.Ticks, TickEvent{
				Elapsed:       elapsed,
				Intensity:     tickBase + (1-tickBase)*ratio,
				FrequencyHint: 600 + 500*(1-ratio),
				Slot:          slot,
			})
			r.lastTickAt = elapsed
		}
		r.lastSlot = slot
	}
	return frame
}

// Drive samples the run on a frame ticker until completion or cancellation.
// onFrame receives every sample; onComplete fires exactly once, and only if
// the run actually finished.
func (r *Run) Drive(ctx context.Context, onFrame func(Frame), onComplete func()) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame := r.Sample(now.Sub(start))
			if onFrame != nil {
				onFrame(frame)
			}
			if frame.Done {
				if !r.completeOnce {
					r.completeOnce = true
					if onComplete != nil {
						onComplete()
					}
				}
				return
			}
		}
	}
}
