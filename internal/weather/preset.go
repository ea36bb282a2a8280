/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package weather

// Kind enumerates preset categories.
type Kind string

const (
	KindDry    Kind = "dry"
	KindRain   Kind = "rain"
	KindRandom Kind = "random"
)

// Preset is a named weather condition a slot can land on.
type Preset struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
	Icon  string `json:"icon"`
}

// RandomPreset is the placeholder shown on every slot that is not rainy.
var RandomPreset = Preset{ID: "RAND", Label: "Random", Kind: KindRandom, Icon: "weather/random.png"}

var rainPresets = []Preset{
	{ID: "R5", Label: "Rain R5", Kind: KindRain, Icon: "weather/rain-r5.png"},
	{ID: "R6", Label: "Rain R6", Kind: KindRain, Icon: "weather/rain-r6.png"},
	{ID: "R7", Label: "Rain R7", Kind: KindRain, Icon: "weather/rain-r7.png"},
	{ID: "R8", Label: "Rain R8", Kind: KindRain, Icon: "weather/rain-r8.png"},
}

// Dry presets are catalogued for display but never drawn by Generate.
var dryPresets = []Preset{
	{ID: "S05", Label: "Sunny (S05)", Kind: KindDry, Icon: "weather/sunny-s5.png"},
	{ID: "C04", Label: "Cloudy (C04)", Kind: KindDry, Icon: "weather/cloudy-c4.png"},
	{ID: "C05", Label: "Cloudy (C05)", Kind: KindDry, Icon: "weather/cloudy-c5.png"},
	{ID: "C06", Label: "Cloudy (C06)", Kind: KindDry, Icon: "weather/cloudy-c6.png"},
}

// RainPresets returns a copy of the rain catalog.
func RainPresets() []Preset {
	return append([]Preset(nil), rainPresets...)
}

// DryPresets returns a copy of the dry catalog.
func DryPresets() []Preset {
	return append([]Preset(nil), dryPresets...)
}

// Catalog returns every known preset: rain, dry, then the placeholder.
func Catalog() []Preset {
	out := make([]Preset, 0, len(rainPresets)+len(dryPresets)+1)
	out = append(out, rainPresets...)
	out = append(out, dryPresets...)
	return append(out, RandomPreset)
}
