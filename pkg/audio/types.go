package audio

import (
	"time"

	"github.com/QQHKX/rollcall-module/game"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CueType identifies the sound a cue asks the client to play.
type CueType string

const (
	// CueClick is a UI interaction click.
	CueClick CueType = "click"
	// CueTick is one reel tile-boundary crossing.
	CueTick CueType = "tick"
	// CueReveal is the result landing; pitch/character follows rarity.
	CueReveal CueType = "reveal"
)

// Cue is one playback instruction. Cues are fire-and-forget: the reel and
// orchestrator emit them without waiting, and a slow listener drops them.
type Cue struct {
	Type          CueType         `json:"type"`
	Intensity     float64         `json:"intensity,omitempty"`
	FrequencyHint float64         `json:"frequencyHint,omitempty"`
	Rarity        game.RarityTier `json:"rarity,omitempty"`
	Volume        decimal.Decimal `json:"volume"`
	Timestamp     int64           `json:"timestamp"`
}

func stamp(c Cue) Cue {
	c.Timestamp = time.Now().UnixMilli()
	return c
}

// ServiceConfig configures the audio cue service.
type ServiceConfig struct {
	// Buffer sizes the broadcast channel; zero uses a sensible default.
	Buffer int

	// Volume is the initial master SFX volume; overwritten by settings.
	Volume decimal.Decimal

	// Logger is optional; if zero value, a no-op logger is used.
	Logger zerolog.Logger
}
