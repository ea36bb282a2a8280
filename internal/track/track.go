/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package track holds the static circuit catalog shown behind the board.
package track

// Track is a selectable circuit.
type Track struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

var tracks = []Track{
	{ID: "monza", Name: "monza", Image: "tracks/monza.png"},
	{ID: "alsace-village", Name: "alsace-village", Image: "tracks/alsace-village.png"},
	{ID: "dragon-trail-gardens", Name: "dragon-trail-gardens", Image: "tracks/dragon-trail-gardens.png"},
	{ID: "barcelona-catalunya-gp", Name: "barcelona-catalunya-gp", Image: "tracks/barcelona-catalunya-gp.png"},
	{ID: "spa-francorchamps", Name: "spa-francorchamps", Image: "tracks/spa-francorchamps.png"},
	{ID: "sainte-croix-b", Name: "sainte-croix-b", Image: "tracks/sainte-croix-b.png"},
	{ID: "fuji", Name: "fuji", Image: "tracks/fuji.png"},
	{ID: "kyoto-yamagiwa-miyabi", Name: "kyoto-yamagiwa-miyabi", Image: "tracks/kyoto-yamagiwa-miyabi.png"},
	{ID: "nurburgring-gp", Name: "nurburgring-gp", Image: "tracks/nurburgring-gp.png"},
	{ID: "laguna-seca", Name: "laguna-seca", Image: "tracks/laguna-seca.png"},
}

// All returns the catalog in display order.
func All() []Track {
	return append([]Track(nil), tracks...)
}

// Default is the track a new session starts on.
func Default() Track {
	return tracks[0]
}

// Lookup finds a track by ID.
func Lookup(id string) (Track, bool) {
	for _, t := range tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}
