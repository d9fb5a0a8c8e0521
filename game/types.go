package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// Speed controls filler count, animation duration and reveal pauses.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// Valid reports whether the speed is one of the known values.
func (s Speed) Valid() bool {
	switch s {
	case SpeedSlow, SpeedNormal, SpeedFast:
		return true
	}
	return false
}

// FillerCount returns the number of filler tiles built ahead of the target.
// Slower speeds get more fillers so the deceleration has more apparent
// distance to cover.
func (s Speed) FillerCount() int {
	switch s {
	case SpeedFast:
		return 12
	case SpeedSlow:
		return 24
	default:
		return 18
	}
}

// Duration returns the reel travel time for this speed.
func (s Speed) Duration() time.Duration {
	switch s {
	case SpeedFast:
		return 5200 * time.Millisecond
	case SpeedSlow:
		return 9 * time.Second
	default:
		return 7 * time.Second
	}
}

// RevealPause returns the pause between reveals in auto multi-draw mode.
func (s Speed) RevealPause() time.Duration {
	switch s {
	case SpeedFast:
		return 1 * time.Second
	case SpeedSlow:
		return 2200 * time.Millisecond
	default:
		return 1500 * time.Millisecond
	}
}

// Student is a roster entry. The id is assigned on creation and never
// changes; only the starred flag is mutable.
type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Starred   bool   `json:"starred,omitempty"`
}

// RollResult is the committed outcome of one draw. The Name field is a
// snapshot taken at draw time and is the source of truth for display; the
// roster may be edited or replaced after the fact.
type RollResult struct {
	StudentID string     `json:"studentId"`
	Name      string     `json:"name"`
	Rarity    RarityTier `json:"rarity"`
	WearLevel WearLevel  `json:"wearLevel,omitempty"`
	WearValue float64    `json:"wearValue,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// ReelTile is one visual slot in a scrolling sequence. Tiles are ephemeral;
// they exist for a single animation run. The last tile of a built sequence
// is always the true result.
type ReelTile struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Rarity RarityTier `json:"rarity"`
}

// Settings holds the user-facing configuration. Mutated only through the
// service layer; the engine reads NoRepeat, the builder and animator read
// Speed, the audio layer reads the volumes.
type Settings struct {
	ClassName string          `json:"className"`
	NoRepeat  bool            `json:"noRepeat"`
	Speed     Speed           `json:"speed"`
	SFXVolume decimal.Decimal `json:"sfxVolume"`
	BGMVolume decimal.Decimal `json:"bgmVolume"`
}

// DefaultSettings returns the settings used before any are persisted.
func DefaultSettings() Settings {
	return Settings{
		ClassName: "",
		NoRepeat:  true,
		Speed:     SpeedNormal,
		SFXVolume: decimal.NewFromFloat(0.8),
		BGMVolume: decimal.NewFromFloat(0.5),
	}
}

// Normalize fills in zero values so rehydrated settings are always usable.
func (s *Settings) Normalize() {
	if !s.Speed.Valid() {
		s.Speed = SpeedNormal
	}
	if s.SFXVolume.IsZero() && s.BGMVolume.IsZero() {
		def := DefaultSettings()
		s.SFXVolume = def.SFXVolume
		s.BGMVolume = def.BGMVolume
	}
}
