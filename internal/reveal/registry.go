/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reveal

import (
	"context"
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

// RegistryConfig holds defaults applied to new sessions.
type RegistryConfig struct {
	Profiles       *ProfileSet
	DefaultProfile string
	MinPct         float64
	MaxPct         float64
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	Timers         Timers
	RNG            weather.RNG
	Now            func() time.Time
}

// CreateOptions overrides registry defaults for one session. Nil bounds
// keep the defaults.
type CreateOptions struct {
	TrackID string
	Profile string
	MinPct  *float64
	MaxPct  *float64
}

// Registry owns the live sessions, one per UI surface.
type Registry struct {
	cfg    RegistryConfig
	bus    *events.Bus
	base   zerolog.Logger // sessions derive their own component logger
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, bus *events.Bus, logger zerolog.Logger) *Registry {
	if cfg.Profiles == nil {
		cfg.Profiles = DefaultProfiles()
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = FastProfile.Name
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:      cfg,
		bus:      bus,
		base:     logger,
		logger:   logger.With().Str("component", "registry").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Profiles exposes the profile set sessions draw from.
func (r *Registry) Profiles() *ProfileSet {
	return r.cfg.Profiles
}

// Create starts tracking a new session.
func (r *Registry) Create(opts CreateOptions) (*Session, error) {
	profileName := opts.Profile
	if profileName == "" {
		profileName = r.cfg.DefaultProfile
	}
	profile, err := r.cfg.Profiles.Lookup(profileName)
	if err != nil {
		return nil, err
	}

	trackID := opts.TrackID
	if trackID == "" {
		trackID = track.Default().ID
	}
	if _, ok := track.Lookup(trackID); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrack, trackID)
	}

	minPct, maxPct := r.cfg.MinPct, r.cfg.MaxPct
	if opts.MinPct != nil {
		minPct = *opts.MinPct
	}
	if opts.MaxPct != nil {
		maxPct = *opts.MaxPct
	}

	var pub Publisher
	if r.bus != nil {
		pub = r.bus
	}
	s := NewSession(SessionConfig{
		ID:        uuid.NewString(),
		Timers:    r.cfg.Timers,
		RNG:       r.cfg.RNG,
		Publisher: pub,
		Profile:   profile,
		TrackID:   trackID,
		MinPct:    minPct,
		MaxPct:    maxPct,
		Now:       r.cfg.Now,
	}, r.base)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()

	telemetry.ActiveSessions.Set(float64(n))
	if pub != nil {
		pub.Publish(events.EventSessionCreated, events.Payload{"session_id": s.ID(), "track_id": trackID})
	}
	r.logger.Debug().Str("session_id", s.ID()).Str("profile", profile.Name).Msg("session created")
	return s, nil
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	telemetry.ActiveSessions.Set(float64(n))
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL. Sessions mid-run are kept.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		last, running := s.idleSince()
		if running || !last.Before(cutoff) {
			continue
		}
		expired = append(expired, s)
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	telemetry.ActiveSessions.Set(float64(n))
	if len(expired) > 0 {
		r.logger.Info().Int("expired", len(expired)).Int("remaining", n).Msg("swept idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions until the context is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	r.logger.Info().Dur("idle_ttl", r.cfg.IdleTTL).Msg("session sweeper started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep()
		}
	}
}
