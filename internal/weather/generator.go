/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weather turns a rain-percentage band into a nine-slot preset layout.
package weather

import (
	"math"
	"math/rand"
	"sort"
)

// Slots is the fixed number of positions on the board.
const Slots = 9

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// IntN returns a non-negative random int in [0, n).
	IntN(n int) int
}

// StdRNG delegates to the auto-seeded math/rand global source.
type StdRNG struct{}

func (StdRNG) IntN(n int) int { return rand.Intn(n) }

// Result is one generated board. It is never mutated after Generate returns.
type Result struct {
	RainPercent int           `json:"rain_percent"`
	RainSlots   int           `json:"rain_slots"`
	RainIndices []int         `json:"rain_indices"`
	Slots       [Slots]Preset `json:"slots"`
}

// IsRainy reports whether slot i was marked rainy.
func (r Result) IsRainy(i int) bool {
	for _, idx := range r.RainIndices {
		if idx == i {
			return true
		}
	}
	return false
}

// Generator draws boards from a rain catalog using rng.
type Generator struct {
	rng  RNG
	rain []Preset
}

// NewGenerator creates a generator over the built-in rain catalog.
// A nil rng uses StdRNG.
func NewGenerator(rng RNG) *Generator {
	if rng == nil {
		rng = StdRNG{}
	}
	return &Generator{rng: rng, rain: rainPresets}
}

var defaultGenerator = NewGenerator(StdRNG{})

// Generate draws a board from the process-wide random source.
func Generate(minPct, maxPct float64) Result {
	return defaultGenerator.Generate(minPct, maxPct)
}

// Generate samples a rain percentage within [minPct, maxPct] (either order,
// clamped to 0..100) and lays out rain presets on that share of the slots.
func (g *Generator) Generate(minPct, maxPct float64) Result {
	lo, hi := Bounds(minPct, maxPct)

	pct := lo + g.rng.IntN(hi-lo+1)
	n := RainSlotsFor(pct)
	indices := g.pickIndices(n)

	res := Result{
		RainPercent: pct,
		RainSlots:   n,
		RainIndices: indices,
	}
	rainy := make(map[int]bool, n)
	for _, idx := range indices {
		rainy[idx] = true
	}
	for i := 0; i < Slots; i++ {
		if rainy[i] {
			res.Slots[i] = g.rain[g.rng.IntN(len(g.rain))]
		} else {
			res.Slots[i] = RandomPreset
		}
	}
	return res
}

// Bounds normalizes a requested band to whole percentages with lo <= hi.
func Bounds(minPct, maxPct float64) (lo, hi int) {
	a := clampPercent(minPct)
	b := clampPercent(maxPct)
	if a > b {
		a, b = b, a
	}
	return a, b
}

// RainSlotsFor returns ceil(Slots*pct/100) clamped to [0, Slots].
func RainSlotsFor(pct int) int {
	n := (Slots*pct + 99) / 100
	return min(max(n, 0), Slots)
}

// pickIndices returns n unique slot indices in ascending order.
func (g *Generator) pickIndices(n int) []int {
	idx := make([]int, Slots)
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := append([]int{}, idx[:n]...)
	sort.Ints(picked)
	return picked
}

func clampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
