/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/logging"
	"github.com/friendsincode/weatherslots/internal/reveal"
	"github.com/friendsincode/weatherslots/internal/track"
	"github.com/friendsincode/weatherslots/internal/weather"
)

var (
	rollMin float64
	rollMax float64

	revealProfile      string
	revealProfilesFile string
	revealTrack        string
	revealVerbose      bool
)

var rollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Generate one weather board and print it as JSON",
	Long: `Generate one weather board from a rain percentage band.

Bounds may be given in either order and are clamped to 0..100.

Examples:
  weatherslots roll --min 20 --max 60
  weatherslots roll --min 100 --max 100
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := weather.Generate(rollMin, rollMax)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Roll a board and reveal it slot by slot in the terminal",
	Long: `Roll a board and print each slot as its timer fires.

Examples:
  weatherslots reveal --profile fast
  weatherslots reveal --profile slow --track spa-francorchamps --min 40 --max 80
`,
	RunE: runReveal,
}

func init() {
	rollCmd.Flags().Float64Var(&rollMin, "min", 0, "Minimum rain percentage")
	rollCmd.Flags().Float64Var(&rollMax, "max", 100, "Maximum rain percentage")

	revealCmd.Flags().Float64Var(&rollMin, "min", 0, "Minimum rain percentage")
	revealCmd.Flags().Float64Var(&rollMax, "max", 100, "Maximum rain percentage")
	revealCmd.Flags().StringVarP(&revealProfile, "profile", "p", reveal.SlowProfile.Name, "Timing profile name")
	revealCmd.Flags().StringVar(&revealProfilesFile, "profiles-file", "", "YAML file with extra timing profiles")
	revealCmd.Flags().StringVarP(&revealTrack, "track", "t", track.Default().ID, "Track id")
	revealCmd.Flags().BoolVarP(&revealVerbose, "verbose", "v", false, "Log session activity to stderr")

	rootCmd.AddCommand(rollCmd)
	rootCmd.AddCommand(revealCmd)
}

func runReveal(cmd *cobra.Command, args []string) error {
	profiles, err := reveal.LoadProfiles(revealProfilesFile)
	if err != nil {
		return err
	}
	profile, err := profiles.Lookup(revealProfile)
	if err != nil {
		return err
	}
	if _, ok := track.Lookup(revealTrack); !ok {
		return fmt.Errorf("%w: %s", reveal.ErrUnknownTrack, revealTrack)
	}

	log := zerolog.Nop()
	if revealVerbose {
		log = logging.SetupWithWriter("development", os.Stderr, nil)
	}

	printer := newSlotPrinter(cmd.OutOrStdout())
	s := reveal.NewSession(reveal.SessionConfig{
		Publisher: printer,
		Profile:   profile,
		TrackID:   revealTrack,
		MinPct:    rollMin,
		MaxPct:    rollMax,
	}, log)

	snap := s.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%% rain, %d of %d slots wet (profile %s)\n",
		revealTrack, snap.Result.RainPercent, snap.Result.RainSlots, weather.Slots, profile.Name)

	<-printer.done
	return nil
}

// slotPrinter writes reveal events as text lines and signals when the run
// completes.
type slotPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	done chan struct{}
}

func newSlotPrinter(out io.Writer) *slotPrinter {
	return &slotPrinter{out: out, done: make(chan struct{})}
}

func (p *slotPrinter) Publish(t events.EventType, payload events.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch t {
	case events.EventRevealSlot:
		preset, _ := payload["preset"].(weather.Preset)
		slot, _ := payload["slot"].(int)
		fmt.Fprintf(p.out, "slot %d: %s\n", slot+1, preset.Label)
	case events.EventRevealCompleted:
		close(p.done)
	}
}
