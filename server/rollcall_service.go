package server

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/QQHKX/rollcall-module/errors"
	"github.com/QQHKX/rollcall-module/events/kafka"
	"github.com/QQHKX/rollcall-module/game"
	"github.com/QQHKX/rollcall-module/pkg/audio"
	"github.com/QQHKX/rollcall-module/provider"
)

// RollcallService orchestrates the full draw flow
//
// Flow: rollcallRoutes -> RollcallHandler -> RollcallService -> game engine
//
// The service:
// 1. Validates requests
// 2. Commits the draw (pool removal + history append) before any animation
// 3. Builds the reel sequence and geometry for the client
// 4. Persists state after every mutation
// 5. Publishes draw events to Kafka
// 6. Emits audio cues
//
// All state mutation is serialized behind one mutex; overlapping triggers
// resolve to a strict sequence and each draw observes the previous one's
// pool removal.
type RollcallService struct {
	mu       sync.Mutex
	cfg      *game.Config
	settings game.Settings
	roster   *game.RosterPool
	engine   *game.DrawEngine
	builder  *game.SequenceBuilder
	animator *game.Animator
	store    provider.StoreProvider
	producer *kafka.Producer
	topic    string
	audio    *audio.Service
	logger   zerolog.Logger

	lastSequence []game.ReelTile
	sessions     map[string]*game.Orchestrator
	active       *game.Orchestrator
}

// NewRollcallService rehydrates state from the store and wires the game
// engine. rng may be nil for the crypto default; producer may be nil when
// Kafka is disabled.
func NewRollcallService(
	ctx context.Context,
	cfg *game.Config,
	store provider.StoreProvider,
	producer *kafka.Producer,
	topic string,
	audioSvc *audio.Service,
	rng game.RandomSource,
	logger zerolog.Logger,
) (*RollcallService, error) {
	svcLogger := logger.With().Str("service", "rollcall").Logger()

	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRedisError, "failed to load persisted state")
	}

	settings := game.DefaultSettings()
	settings.ClassName = cfg.ClassName
	var roster *game.RosterPool
	if state != nil {
		settings = state.Settings
		settings.Normalize()
		roster = game.Restore(state.Students, state.Pool, settings.NoRepeat)
		svcLogger.Info().
			Int("students", roster.Size()).
			Int("pool", len(roster.Pool())).
			Msg("state rehydrated")
	} else {
		roster = game.NewRosterPool(settings.NoRepeat)
	}

	records, err := store.History(ctx, 0)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRedisError, "failed to load persisted history")
	}
	history := game.RestoreHistory(records, cfg.HistoryCapacity)

	model := game.NewModel(cfg.Rarities, cfg.Wears, rng, svcLogger)
	engine := game.NewDrawEngine(roster, model, history, rng, svcLogger)

	if audioSvc != nil {
		audioSvc.SetVolume(settings.SFXVolume)
	}

	return &RollcallService{
		cfg:      cfg,
		settings: settings,
		roster:   roster,
		engine:   engine,
		builder:  game.NewSequenceBuilder(model, rng),
		animator: game.NewAnimator(cfg.Reel, svcLogger),
		store:    store,
		producer: producer,
		topic:    topic,
		audio:    audioSvc,
		logger:   svcLogger,
		sessions: make(map[string]*game.Orchestrator),
	}, nil
}

// DrawOutcome is the committed result of one draw plus everything the
// client needs to animate it.
type DrawOutcome struct {
	Result     *game.RollResult `json:"result"`
	Sequence   []game.ReelTile  `json:"sequence"`
	Geometry   *game.Geometry   `json:"geometry,omitempty"`
	DurationMs int64            `json:"durationMs"`
	Speed      game.Speed       `json:"speed"`
}

// Draw commits a single draw. The result, pool removal and history append
// are persisted before the reel plan is returned, so a crash mid-animation
// never loses a committed outcome.
func (s *RollcallService) Draw(ctx context.Context, layout game.Layout) (*DrawOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeRunning() {
		return nil, apperrors.New(apperrors.ErrDrawInProgress, "multi-draw session in progress")
	}

	if s.audio != nil {
		s.audio.Click()
	}

	outcome, err := s.commitDraw(ctx, "")
	if err != nil {
		return nil, err
	}

	outcome.Geometry = s.planLocked(outcome.Sequence, layout)
	return outcome, nil
}

// commitDraw runs the draw + persist + publish pipeline. Caller holds the
// mutex.
func (s *RollcallService) commitDraw(ctx context.Context, sessionID string) (*DrawOutcome, error) {
	result := s.engine.DrawNext()
	if result == nil {
		return nil, apperrors.New(apperrors.ErrEmptyRoster, "roster is empty")
	}

	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	if err := s.store.AppendHistory(ctx, *result); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRedisError, "failed to persist history record")
	}

	seq := s.builder.Build(*result, s.roster.Students(), s.settings.Speed)
	s.lastSequence = seq

	s.publish(*result, sessionID)

	return &DrawOutcome{
		Result:     result,
		Sequence:   seq,
		DurationMs: s.settings.Speed.Duration().Milliseconds(),
		Speed:      s.settings.Speed,
	}, nil
}

// planLocked computes geometry for a measured layout; an unmeasured layout
// defers planning and returns nil.
func (s *RollcallService) planLocked(seq []game.ReelTile, layout game.Layout) *game.Geometry {
	if layout.ContentWidth() <= 0 {
		return nil
	}
	geo, err := s.animator.Plan(seq, len(seq)-1, layout)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reel plan skipped")
		return nil
	}
	return geo
}

// PlanReel recomputes geometry for the last committed draw against a new
// layout measurement (resize re-plan). The target stays centered; only the
// display padding changes.
func (s *RollcallService) PlanReel(layout game.Layout) (*DrawOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.engine.LastResult()
	if result == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "no draw to plan")
	}
	seq := s.lastSequence
	if len(seq) == 0 {
		seq = s.builder.Build(*result, s.roster.Students(), s.settings.Speed)
		s.lastSequence = seq
	}

	geo, err := s.animator.Plan(seq, len(seq)-1, layout)
	if err != nil {
		return nil, err
	}
	return &DrawOutcome{
		Result:     result,
		Sequence:   seq,
		Geometry:   geo,
		DurationMs: s.settings.Speed.Duration().Milliseconds(),
		Speed:      s.settings.Speed,
	}, nil
}

// sessionDrawer adapts the service's draw pipeline to the orchestrator.
type sessionDrawer struct {
	svc       *RollcallService
	sessionID string
}

func (d *sessionDrawer) Draw() (*game.RollResult, []game.ReelTile, error) {
	d.svc.mu.Lock()
	defer d.svc.mu.Unlock()

	outcome, err := d.svc.commitDraw(context.Background(), d.sessionID)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrEmptyRoster {
			// orchestrator treats a nil result as roster exhaustion
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return outcome.Result, outcome.Sequence, nil
}

// StartMultiDraw launches an auto multi-draw session and returns its id.
// Only one session may run at a time; the session outlives the HTTP
// request that started it.
func (s *RollcallService) StartMultiDraw(count int, layout game.Layout) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeRunning() {
		return "", apperrors.New(apperrors.ErrDrawInProgress, "multi-draw session already running")
	}
	if count <= 0 {
		count = s.cfg.MultiDrawCount
	}

	if s.audio != nil {
		s.audio.Click()
	}

	var cues game.CueSink
	if s.audio != nil {
		cues = s.audio
	}
	orch := game.NewOrchestrator(
		&sessionDrawer{svc: s},
		s.animator,
		cues,
		game.OrchestratorOptions{
			Count:   count,
			Speed:   s.settings.Speed,
			Layout:  layout,
			Reduced: layout.ReducedEffects,
		},
		s.logger,
	)
	if err := orch.Start(context.Background()); err != nil {
		return "", err
	}

	s.sessions[orch.ID()] = orch
	s.active = orch
	s.logger.Info().Str("session_id", orch.ID()).Int("count", count).Msg("multi-draw started")
	return orch.ID(), nil
}

// MultiDrawState returns the snapshot for a session id.
func (s *RollcallService) MultiDrawState(id string) (game.Snapshot, error) {
	s.mu.Lock()
	orch, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return game.Snapshot{}, apperrors.New(apperrors.ErrSessionNotFound, "multi-draw session not found")
	}
	return orch.State(), nil
}

// InterruptMultiDraw relays a user interrupt to a session. Rejected while
// the auto sequence is still running.
func (s *RollcallService) InterruptMultiDraw(id string) error {
	s.mu.Lock()
	orch, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return apperrors.New(apperrors.ErrSessionNotFound, "multi-draw session not found")
	}
	return orch.Interrupt()
}

// activeRunning reports whether the current session is mid-sequence.
// Caller holds the mutex.
func (s *RollcallService) activeRunning() bool {
	if s.active == nil {
		return false
	}
	phase := s.active.State().Phase
	return phase == game.PhaseRolling || phase == game.PhaseRevealed
}

// Stop tears down any running session. Stale animation completions are
// discarded by the orchestrator's cancellation.
func (s *RollcallService) Stop() {
	s.mu.Lock()
	sessions := make([]*game.Orchestrator, 0, len(s.sessions))
	for _, orch := range s.sessions {
		sessions = append(sessions, orch)
	}
	s.mu.Unlock()
	for _, orch := range sessions {
		orch.Stop()
	}
}

// Students returns the roster in order.
func (s *RollcallService) Students() []game.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Students()
}

// AddStudent appends one student to the roster.
func (s *RollcallService) AddStudent(ctx context.Context, name, avatarURL string) (game.Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return game.Student{}, apperrors.New(apperrors.ErrInvalidRequest, "student name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	student := s.roster.AddStudent(name, avatarURL)
	if err := s.persistLocked(ctx); err != nil {
		return game.Student{}, err
	}
	return student, nil
}

// RemoveStudent removes a student; history snapshots referring to the
// removed id are kept as-is.
func (s *RollcallService) RemoveStudent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roster.RemoveStudent(id) {
		return apperrors.New(apperrors.ErrStudentNotFound, "student not found")
	}
	return s.persistLocked(ctx)
}

// ToggleStar flips a student's starred flag.
func (s *RollcallService) ToggleStar(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roster.ToggleStar(id) {
		return apperrors.New(apperrors.ErrStudentNotFound, "student not found")
	}
	return s.persistLocked(ctx)
}

// ResetPool repopulates the no-repeat pool from the full roster.
func (s *RollcallService) ResetPool(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster.ResetPool()
	return s.persistLocked(ctx)
}

// ImportRoster parses an import payload and applies it. A payload with no
// importable entries fails before any roster mutation.
func (s *RollcallService) ImportRoster(ctx context.Context, data string, mode game.ImportMode) (int, error) {
	names, err := game.ParseNames(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := game.ApplyImport(s.roster, names, mode)
	if err := s.persistLocked(ctx); err != nil {
		return 0, err
	}
	s.logger.Info().Int("imported", count).Str("mode", string(mode)).Msg("roster imported")
	return count, nil
}

// Settings returns a copy of the current settings.
func (s *RollcallService) Settings() game.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies new settings: no-repeat toggling rebuilds or
// empties the pool, the SFX volume propagates to the audio service.
func (s *RollcallService) UpdateSettings(ctx context.Context, settings game.Settings) (game.Settings, error) {
	settings.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.NoRepeat != s.roster.NoRepeat() {
		s.roster.SetNoRepeat(settings.NoRepeat)
	}
	s.settings = settings
	if s.audio != nil {
		s.audio.SetVolume(settings.SFXVolume)
	}
	if err := s.persistLocked(ctx); err != nil {
		return game.Settings{}, err
	}
	return s.settings, nil
}

// HistoryRecord is a history entry with the resolved display name.
type HistoryRecord struct {
	game.RollResult
	DisplayName string `json:"displayName"`
}

// History returns up to limit most recent records, oldest first; limit <= 0
// means all.
func (s *RollcallService) History(limit int) []HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := s.engine.History().List()
	if limit > 0 && len(results) > limit {
		results = results[len(results)-limit:]
	}
	records := make([]HistoryRecord, len(results))
	for i, r := range results {
		records[i] = HistoryRecord{RollResult: r, DisplayName: s.engine.DisplayName(r)}
	}
	return records
}

// ClearHistory drops both the in-memory and persisted history.
func (s *RollcallService) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.History().Clear()
	if err := s.store.ClearHistory(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrRedisError, "failed to clear persisted history")
	}
	return nil
}

// PoolStatus reports the no-repeat pool state for the roster view.
type PoolStatus struct {
	NoRepeat  bool `json:"noRepeat"`
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
}

// Pool returns the current pool status.
func (s *RollcallService) Pool() PoolStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PoolStatus{
		NoRepeat:  s.roster.NoRepeat(),
		Remaining: len(s.roster.Pool()),
		Total:     s.roster.Size(),
	}
}

// persistLocked saves roster + settings. Caller holds the mutex.
func (s *RollcallService) persistLocked(ctx context.Context) error {
	state := &provider.State{
		Students: s.roster.Students(),
		Pool:     s.roster.Pool(),
		Settings: s.settings,
	}
	if err := s.store.SaveState(ctx, state); err != nil {
		return apperrors.Wrap(err, apperrors.ErrRedisError, "failed to persist state")
	}
	return nil
}

// publish emits the draw event to Kafka, fire-and-forget.
func (s *RollcallService) publish(result game.RollResult, sessionID string) {
	if s.producer == nil {
		return
	}
	event := kafka.DrawEvent{
		DrawID:    uuid.New().String(),
		SessionID: sessionID,
		ClassName: s.settings.ClassName,
		Result:    result,
	}
	if err := s.producer.SendMessage(s.topic, result.StudentID, event); err != nil {
		s.logger.Error().Err(err).Msg("failed to enqueue draw event")
	}
}

// Animator exposes the reel animator for handlers that need timing
// constants.
func (s *RollcallService) Animator() *game.Animator { return s.animator }

// waitActive blocks until the active session goroutine exits. Test helper.
func (s *RollcallService) waitActive() {
	s.mu.Lock()
	orch := s.active
	s.mu.Unlock()
	if orch != nil {
		orch.Wait()
	}
}
