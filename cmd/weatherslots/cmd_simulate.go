/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/friendsincode/weatherslots/internal/weather"
)

var (
	simulateRuns int
	simulateMin  float64
	simulateMax  float64
	simulateJSON bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Roll many boards and summarize the distribution",
	Long: `Roll many boards for a rain band and report the spread of the drawn
percentage, the wet slot count, and how often each slot was wet.

Examples:
  weatherslots simulate -n 10000 --min 20 --max 60
  weatherslots simulate -n 500 --json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateRuns <= 0 {
			return fmt.Errorf("runs must be positive, got %d", simulateRuns)
		}
		gen := weather.NewGenerator(nil)
		results := make([]weather.Result, simulateRuns)
		for i := range results {
			results[i] = gen.Generate(simulateMin, simulateMax)
		}
		summary, err := summarize(results)
		if err != nil {
			return err
		}
		if simulateJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		summary.print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateRuns, "runs", "n", 1000, "Number of boards to roll")
	simulateCmd.Flags().Float64Var(&simulateMin, "min", 0, "Minimum rain percentage")
	simulateCmd.Flags().Float64Var(&simulateMax, "max", 100, "Maximum rain percentage")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Print the summary as JSON")

	rootCmd.AddCommand(simulateCmd)
}

type distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

type simulationSummary struct {
	Runs        int                    `json:"runs"`
	RainPercent distribution           `json:"rain_percent"`
	RainSlots   distribution           `json:"rain_slots"`
	SlotWetRate [weather.Slots]float64 `json:"slot_wet_rate"`
	PresetCount map[string]int         `json:"preset_count"`
}

func summarize(results []weather.Result) (simulationSummary, error) {
	summary := simulationSummary{
		Runs:        len(results),
		PresetCount: make(map[string]int),
	}
	if len(results) == 0 {
		return summary, fmt.Errorf("no results to summarize")
	}

	pct := make(stats.Float64Data, len(results))
	slots := make(stats.Float64Data, len(results))
	var wet [weather.Slots]int
	for i, res := range results {
		pct[i] = float64(res.RainPercent)
		slots[i] = float64(res.RainSlots)
		for slot, preset := range res.Slots {
			if res.IsRainy(slot) {
				wet[slot]++
				summary.PresetCount[preset.ID]++
			}
		}
	}
	for i, n := range wet {
		summary.SlotWetRate[i] = float64(n) / float64(len(results))
	}

	var err error
	if summary.RainPercent, err = describe(pct); err != nil {
		return summary, fmt.Errorf("rain percent: %w", err)
	}
	if summary.RainSlots, err = describe(slots); err != nil {
		return summary, fmt.Errorf("rain slots: %w", err)
	}
	return summary, nil
}

func describe(data stats.Float64Data) (distribution, error) {
	var d distribution
	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return d, err
	}
	if d.StdDev, err = stats.StandardDeviation(data); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, err
	}
	if d.P50, err = stats.Percentile(data, 50); err != nil {
		return d, err
	}
	if d.P90, err = stats.Percentile(data, 90); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, err
	}
	return d, nil
}

func (s simulationSummary) print(w io.Writer) {
	fmt.Fprintf(w, "runs: %d\n", s.Runs)
	for _, row := range []struct {
		name string
		d    distribution
	}{
		{"rain %", s.RainPercent},
		{"wet slots", s.RainSlots},
	} {
		fmt.Fprintf(w, "%-10s mean %6.2f  sd %6.2f  min %4.0f  p50 %4.0f  p90 %4.0f  max %4.0f\n",
			row.name, row.d.Mean, row.d.StdDev, row.d.Min, row.d.P50, row.d.P90, row.d.Max)
	}
	fmt.Fprintln(w, "slot wet rate:")
	for i, rate := range s.SlotWetRate {
		fmt.Fprintf(w, "  slot %d  %5.1f%%\n", i+1, rate*100)
	}
	for _, p := range weather.RainPresets() {
		fmt.Fprintf(w, "  %-4s %d\n", p.ID, s.PresetCount[p.ID])
	}
}
