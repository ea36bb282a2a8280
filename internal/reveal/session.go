/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reveal drives the staggered left-to-right reveal of a generated
// weather board, one Session per UI surface.
package reveal

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/telemetry"
	"github.com/friendsincode/weatherslots/internal/track"
	"github.com/friendsincode/weatherslots/internal/weather"
)

// Publisher receives session events. *events.Bus satisfies it.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.EventType, events.Payload) {}

// SessionConfig carries a session's collaborators and initial settings.
// Zero-valued collaborators fall back to real timers, the process-wide
// random source, the fast profile and the default track.
type SessionConfig struct {
	ID        string
	Generator *weather.Generator
	Timers    Timers
	RNG       weather.RNG
	Publisher Publisher
	Profile   Profile
	TrackID   string
	MinPct    float64
	MaxPct    float64
	Now       func() time.Time
}

// Snapshot is a point-in-time copy of a session's observable state.
type Snapshot struct {
	SessionID  string         `json:"session_id"`
	RunID      uint64         `json:"run_id"`
	TrackID    string         `json:"track_id"`
	Profile    string         `json:"profile"`
	MinPct     float64        `json:"min_pct"`
	MaxPct     float64        `json:"max_pct"`
	Result     weather.Result `json:"result"`
	Revealed   int            `json:"revealed_count"`
	Running    bool           `json:"is_running"`
	HasStarted bool           `json:"has_started"`
}

// IsRevealed reports whether slot i (0-based) is visible.
func (s Snapshot) IsRevealed(i int) bool {
	return i < s.Revealed
}

// Session owns the reveal state for one UI surface. Timer callbacks arrive on
// their own goroutines, so all state sits behind mu.
type Session struct {
	id        string
	gen       *weather.Generator
	timers    Timers
	rng       weather.RNG
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	profile    Profile
	trackID    string
	minPct     float64
	maxPct     float64
	runID      uint64
	result     weather.Result
	revealed   int
	running    bool
	hasStarted bool
	lastActive time.Time
}

// NewSession creates a session with an initial, unrevealed board.
func NewSession(cfg SessionConfig, logger zerolog.Logger) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.RNG == nil {
		cfg.RNG = weather.StdRNG{}
	}
	if cfg.Generator == nil {
		cfg.Generator = weather.NewGenerator(cfg.RNG)
	}
	if cfg.Timers == nil {
		cfg.Timers = RealTimers{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = FastProfile
	}
	if cfg.TrackID == "" {
		cfg.TrackID = track.Default().ID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Session{
		id:        cfg.ID,
		gen:       cfg.Generator,
		timers:    cfg.Timers,
		rng:       cfg.RNG,
		publisher: cfg.Publisher,
		logger:    logger.With().Str("component", "reveal").Str("session_id", cfg.ID).Logger(),
		now:       cfg.Now,
		profile:   cfg.Profile,
		trackID:   cfg.TrackID,
		minPct:    cfg.MinPct,
		maxPct:    cfg.MaxPct,
	}
	s.result = s.gen.Generate(s.minPct, s.maxPct)
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start begins a new run: a fresh board is generated and one timer per slot
// is scheduled. Events still pending from an earlier run become no-ops.
func (s *Session) Start() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		telemetry.RevealRunsSuperseded.WithLabelValues(s.profile.Name).Inc()
		s.logger.Debug().Uint64("run_id", s.runID).Int("revealed", s.revealed).Msg("run superseded")
		s.publisher.Publish(events.EventRevealSuperseded, events.Payload{
			"session_id": s.id,
			"run_id":     s.runID,
			"revealed":   s.revealed,
		})
	}

	s.runID++
	runID := s.runID
	s.result = s.gen.Generate(s.minPct, s.maxPct)
	s.hasStarted = true
	s.running = true
	s.revealed = 0
	s.lastActive = s.now()

	telemetry.GenerationsTotal.WithLabelValues("session").Inc()
	telemetry.RainPercent.Observe(float64(s.result.RainPercent))
	telemetry.RevealRunsStarted.WithLabelValues(s.profile.Name).Inc()

	delays := s.profile.Delays(s.rng)
	for i, d := range delays {
		step := i + 1
		s.timers.AfterFunc(d, func() { s.reveal(runID, step) })
	}

	s.logger.Info().
		Uint64("run_id", runID).
		Int("rain_percent", s.result.RainPercent).
		Int("rain_slots", s.result.RainSlots).
		Ints("rain_indices", s.result.RainIndices).
		Str("profile", s.profile.Name).
		Dur("last_slot_in", delays[len(delays)-1]).
		Msg("reveal started")

	snap := s.snapshotLocked()
	s.publisher.Publish(events.EventRevealStarted, events.Payload{
		"session_id": s.id,
		"run_id":     runID,
		"snapshot":   snap,
	})
	return snap
}

// reveal is the timer callback for slot step of run runID.
func (s *Session) reveal(runID uint64, step int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID != s.runID {
		telemetry.StaleRevealEvents.Inc()
		return
	}
	// The count only moves forward, even if a callback lands late.
	if step <= s.revealed {
		return
	}

	s.revealed = step
	telemetry.SlotsRevealed.Inc()
	s.publisher.Publish(events.EventRevealSlot, events.Payload{
		"session_id": s.id,
		"run_id":     runID,
		"revealed":   step,
		"slot":       step - 1,
		"preset":     s.result.Slots[step-1],
	})

	if step == weather.Slots {
		s.running = false
		telemetry.RevealRunsCompleted.WithLabelValues(s.profile.Name).Inc()
		s.logger.Info().Uint64("run_id", runID).Msg("reveal completed")
		s.publisher.Publish(events.EventRevealCompleted, events.Payload{
			"session_id": s.id,
			"run_id":     runID,
			"snapshot":   s.snapshotLocked(),
		})
	}
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	res := s.result
	res.RainIndices = append([]int{}, s.result.RainIndices...)
	return Snapshot{
		SessionID:  s.id,
		RunID:      s.runID,
		TrackID:    s.trackID,
		Profile:    s.profile.Name,
		MinPct:     s.minPct,
		MaxPct:     s.maxPct,
		Result:     res,
		Revealed:   s.revealed,
		Running:    s.running,
		HasStarted: s.hasStarted,
	}
}

// SelectTrack switches the backdrop track and clears the has-started flag.
// A run in progress keeps revealing.
func (s *Session) SelectTrack(id string) error {
	t, ok := track.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackID = t.ID
	s.hasStarted = false
	s.lastActive = s.now()
	s.publisher.Publish(events.EventSessionTrack, events.Payload{
		"session_id": s.id,
		"track_id":   t.ID,
	})
	return nil
}

// ResetStarted clears the has-started flag without touching the board.
func (s *Session) ResetStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasStarted = false
}

// SetBounds changes the rain band used by the next Start. Order does not
// matter; out-of-range values are clamped at generation time.
func (s *Session) SetBounds(minPct, maxPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minPct = minPct
	s.maxPct = maxPct
	s.lastActive = s.now()
	s.publisher.Publish(events.EventSessionBounds, events.Payload{
		"session_id": s.id,
		"min_pct":    minPct,
		"max_pct":    maxPct,
	})
}

// SetProfile changes the timing profile used by the next Start.
func (s *Session) SetProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	return nil
}

// Close invalidates any pending run so its timers fire as no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID++
	s.running = false
	s.publisher.Publish(events.EventSessionClosed, events.Payload{
		"session_id": s.id,
	})
}

// idleSince reports when the session was last used and whether a run is active.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.running
}
