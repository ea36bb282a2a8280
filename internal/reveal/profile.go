/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reveal

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/weatherslots/internal/weather"
)

// Profile calibrates reveal timing. Slot i (1-based) fires after
// BaseStepMs*i plus a jitter drawn uniformly from JitterMs[0]..JitterMs[1].
type Profile struct {
	Name       string `json:"name" yaml:"name"`
	BaseStepMs int    `json:"base_step_ms" yaml:"base_step_ms"`
	JitterMs   [2]int `json:"jitter_ms" yaml:"jitter_ms"`
}

// Built-in profiles.
var (
	SlowProfile = Profile{Name: "slow", BaseStepMs: 1000, JitterMs: [2]int{1000, 3000}}
	FastProfile = Profile{Name: "fast", BaseStepMs: 350, JitterMs: [2]int{0, 120}}
)

// Validate checks the profile can produce a schedule.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.BaseStepMs <= 0 {
		return fmt.Errorf("%w: %s: base_step_ms must be positive", ErrInvalidProfile, p.Name)
	}
	if p.JitterMs[0] < 0 || p.JitterMs[1] < p.JitterMs[0] {
		return fmt.Errorf("%w: %s: jitter_ms must satisfy 0 <= low <= high", ErrInvalidProfile, p.Name)
	}
	return nil
}

// Delays returns the fire delay for slots 1..weather.Slots. The jitter band
// may be wider than the base step, so each delay is pushed to at least
// MinGap past its predecessor: slots always stop left to right, with enough
// room between callbacks that they cannot race each other.
func (p Profile) Delays(rng weather.RNG) []time.Duration {
	out := make([]time.Duration, weather.Slots)
	gap := p.MinGap()
	var prev time.Duration
	for i := range out {
		jitter := p.JitterMs[0] + rng.IntN(p.JitterMs[1]-p.JitterMs[0]+1)
		d := time.Duration(p.BaseStepMs*(i+1)+jitter) * time.Millisecond
		if i > 0 && d < prev+gap {
			d = prev + gap
		}
		out[i] = d
		prev = d
	}
	return out
}

// MinGap is the smallest spacing between consecutive slot delays: half the
// base step, and never below 1ms.
func (p Profile) MinGap() time.Duration {
	return time.Duration(max(p.BaseStepMs/2, 1)) * time.Millisecond
}

// ProfileSet is a named collection of profiles.
type ProfileSet struct {
	byName map[string]Profile
}

// DefaultProfiles returns a set holding the slow and fast profiles.
func DefaultProfiles() *ProfileSet {
	ps := &ProfileSet{byName: make(map[string]Profile)}
	ps.byName[SlowProfile.Name] = SlowProfile
	ps.byName[FastProfile.Name] = FastProfile
	return ps
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads extra profiles from a YAML file on top of the defaults.
// Entries named like a built-in replace it.
func LoadProfiles(path string) (*ProfileSet, error) {
	ps := DefaultProfiles()
	if path == "" {
		return ps, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		ps.byName[p.Name] = p
	}
	return ps, nil
}

// Lookup returns the named profile.
func (ps *ProfileSet) Lookup(name string) (Profile, error) {
	p, ok := ps.byName[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// All returns profiles sorted by name.
func (ps *ProfileSet) All() []Profile {
	out := make([]Profile, 0, len(ps.byName))
	for _, p := range ps.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
