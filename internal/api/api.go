/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/logbuffer"
	"github.com/friendsincode/weatherslots/internal/reveal"
	"github.com/friendsincode/weatherslots/internal/telemetry"
	"github.com/friendsincode/weatherslots/internal/track"
	"github.com/friendsincode/weatherslots/internal/version"
	"github.com/friendsincode/weatherslots/internal/weather"
)

// API exposes HTTP handlers.
type API struct {
	registry  *reveal.Registry
	bus       *events.Bus
	logBuffer *logbuffer.Buffer
	logger    zerolog.Logger
}

// New creates the API router wrapper. logBuf may be nil, which disables the
// session logs route.
func New(registry *reveal.Registry, bus *events.Bus, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	return &API{
		registry:  registry,
		bus:       bus,
		logBuffer: logBuf,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Get("/presets", a.handlePresets)
		r.Get("/tracks", a.handleTracks)
		r.Get("/profiles", a.handleProfiles)
		r.Get("/weather", a.handleGenerate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.handleSessionCreate)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", a.handleSessionGet)
				r.Delete("/", a.handleSessionDelete)
				r.Post("/start", a.handleSessionStart)
				r.Put("/track", a.handleSessionTrack)
				r.Put("/bounds", a.handleSessionBounds)
				r.Get("/events", a.handleSessionEvents)
				r.Get("/logs", a.handleSessionLogs)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  version.Current(),
		"sessions": a.registry.Len(),
	})
}

func (a *API) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rain":   weather.RainPresets(),
		"dry":    weather.DryPresets(),
		"random": weather.RandomPreset,
	})
}

func (a *API) handleTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tracks": track.All()})
}

func (a *API) handleProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"profiles": a.registry.Profiles().All()})
}

// handleGenerate produces a board without touching any session.
func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	minPct, err := floatParam(r, "min", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_min")
		return
	}
	maxPct, err := floatParam(r, "max", 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_max")
		return
	}

	_, span := telemetry.StartSpan(r.Context(), "weather", "generate")
	res := weather.Generate(minPct, maxPct)
	telemetry.AddSpanAttributes(span, map[string]any{
		"rain_percent": res.RainPercent,
		"rain_slots":   res.RainSlots,
	})
	span.End()

	telemetry.GenerationsTotal.WithLabelValues("api").Inc()
	telemetry.RainPercent.Observe(float64(res.RainPercent))
	writeJSON(w, http.StatusOK, res)
}

type createSessionRequest struct {
	Track   string   `json:"track"`
	Profile string   `json:"profile"`
	MinPct  *float64 `json:"min_pct"`
	MaxPct  *float64 `json:"max_pct"`
}

func (a *API) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	s, err := a.registry.Create(reveal.CreateOptions{
		TrackID: req.Track,
		Profile: req.Profile,
		MinPct:  req.MinPct,
		MaxPct:  req.MaxPct,
	})
	if err != nil {
		a.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (a *API) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		a.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusAccepted, s.Start())
}

type trackRequest struct {
	Track string `json:"track"`
}

func (a *API) handleSessionTrack(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.SelectTrack(req.Track); err != nil {
		a.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type boundsRequest struct {
	MinPct *float64 `json:"min_pct"`
	MaxPct *float64 `json:"max_pct"`
}

func (a *API) handleSessionBounds(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req boundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.MinPct == nil || req.MaxPct == nil {
		writeError(w, http.StatusBadRequest, "min_pct_and_max_pct_required")
		return
	}
	s.SetBounds(*req.MinPct, *req.MaxPct)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (a *API) handleSessionLogs(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if a.logBuffer == nil {
		writeError(w, http.StatusNotImplemented, "log_buffer_disabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}

	entries := a.logBuffer.Query(logbuffer.QueryParams{
		SessionID:  s.ID(),
		Level:      r.URL.Query().Get("level"),
		Limit:      limit,
		Descending: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// session resolves the {sessionID} URL param, writing a 404 when unknown.
func (a *API) session(w http.ResponseWriter, r *http.Request) (*reveal.Session, bool) {
	s, err := a.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		a.writeSessionError(w, err)
		return nil, false
	}
	return s, true
}

func (a *API) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reveal.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, reveal.ErrUnknownTrack):
		writeError(w, http.StatusBadRequest, "unknown_track")
	case errors.Is(err, reveal.ErrUnknownProfile):
		writeError(w, http.StatusBadRequest, "unknown_profile")
	case errors.Is(err, reveal.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, "invalid_profile")
	default:
		a.logger.Error().Err(err).Msg("session request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func floatParam(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
