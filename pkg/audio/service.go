package audio

import (
	"context"
	"sync"

	"github.com/QQHKX/rollcall-module/game"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBuffer sizes the cue channel. Ticks can arrive every 40ms during
// a fast reel; the buffer absorbs a short listener stall.
const DefaultBuffer = 128

// Service stamps cues with the current master volume and fans them out to
// stream listeners. The volume comes from the user settings; the emitting
// logic never decides loudness. Implements the orchestrator's cue sink.
type Service struct {
	mu     sync.RWMutex
	volume decimal.Decimal
	broad  *Broadcaster
	logger zerolog.Logger
}

// NewService creates an audio cue service.
func NewService(cfg ServiceConfig) *Service {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	volume := cfg.Volume
	if volume.IsZero() {
		volume = game.DefaultSettings().SFXVolume
	}
	return &Service{
		volume: volume,
		broad:  NewBroadcaster(buffer),
		logger: cfg.Logger.With().Str("component", "audio").Logger(),
	}
}

// SetVolume updates the master SFX volume applied to subsequent cues.
func (s *Service) SetVolume(v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

// Volume returns the current master SFX volume.
func (s *Service) Volume() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Click emits a UI click cue.
func (s *Service) Click() {
	s.broad.Send(stamp(Cue{
		Type:   CueClick,
		Volume: s.Volume(),
	}))
}

// Tick emits one reel boundary-crossing cue. Intensity decays over the
// travel; the frequency hint rises as the reel slows.
func (s *Service) Tick(intensity, frequencyHint float64) {
	s.broad.Send(stamp(Cue{
		Type:          CueTick,
		Intensity:     intensity,
		FrequencyHint: frequencyHint,
		Volume:        s.Volume(),
	}))
}

// Reveal emits the result-landing cue for a rarity tier.
func (s *Service) Reveal(rarity game.RarityTier) {
	s.broad.Send(stamp(Cue{
		Type:   CueReveal,
		Rarity: rarity,
		Volume: s.Volume(),
	}))
}

// Listen returns a channel of cues plus a cancel function.
func (s *Service) Listen(ctx context.Context) (<-chan Cue, context.CancelFunc) {
	return s.broad.Listen(ctx)
}
