package reveal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProfileDelays_StrictlyIncreasing(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		rng     *deterministicRNG
	}{
		{
			name:    "slow with alternating extreme jitter",
			profile: SlowProfile,
			rng:     &deterministicRNG{values: []int{2000, 0}},
		},
		{
			name:    "slow with max jitter first",
			profile: SlowProfile,
			rng:     &deterministicRNG{values: []int{2000, 0, 0, 0, 0, 0, 0, 0, 0}},
		},
		{
			name:    "fast with alternating extreme jitter",
			profile: FastProfile,
			rng:     &deterministicRNG{values: []int{120, 0}},
		},
		{
			name:    "zero jitter",
			profile: Profile{Name: "flat", BaseStepMs: 100},
			rng:     &deterministicRNG{values: []int{0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delays := tt.profile.Delays(tt.rng)
			if len(delays) != 9 {
				t.Fatalf("got %d delays, want 9", len(delays))
			}
			gap := tt.profile.MinGap()
			for i := 1; i < len(delays); i++ {
				if delays[i]-delays[i-1] < gap {
					t.Fatalf("delay[%d]=%v less than %v after delay[%d]=%v", i, delays[i], gap, i-1, delays[i-1])
				}
			}
		})
	}
}

func TestProfileDelays_SlowSchedule(t *testing.T) {
	// Slot 1 draws the top of the jitter band, slot 2 the bottom.
	rng := &deterministicRNG{values: []int{2000, 0}}
	delays := SlowProfile.Delays(rng)

	if delays[0] != 4000*time.Millisecond {
		t.Fatalf("delay[0] = %v, want 4s", delays[0])
	}
	// 2000+1000 = 3s would overtake slot 1, so it lands half a step after it.
	if delays[1] != 4500*time.Millisecond {
		t.Fatalf("delay[1] = %v, want 4.5s", delays[1])
	}
}

func TestProfileMinGap(t *testing.T) {
	tests := []struct {
		profile Profile
		want    time.Duration
	}{
		{SlowProfile, 500 * time.Millisecond},
		{FastProfile, 175 * time.Millisecond},
		{Profile{Name: "tiny", BaseStepMs: 1}, time.Millisecond},
	}
	for _, tt := range tests {
		if got := tt.profile.MinGap(); got != tt.want {
			t.Fatalf("%s MinGap() = %v, want %v", tt.profile.Name, got, tt.want)
		}
	}
}

func TestProfileDelays_SlowKeepsHalfStepApart(t *testing.T) {
	for seed := 0; seed < 500; seed++ {
		rng := &deterministicRNG{values: []int{seed * 7919, seed * 104729, seed}}
		delays := SlowProfile.Delays(rng)
		for i := 1; i < len(delays); i++ {
			if gap := delays[i] - delays[i-1]; gap < 500*time.Millisecond {
				t.Fatalf("seed %d: slots %d and %d only %v apart", seed, i, i+1, gap)
			}
		}
	}
}

func TestProfileDelays_FastWithinBand(t *testing.T) {
	for run := 0; run < 200; run++ {
		delays := FastProfile.Delays(&deterministicRNG{values: []int{run}})
		for i, d := range delays {
			step := time.Duration(350*(i+1)) * time.Millisecond
			if d < step || d > step+120*time.Millisecond {
				t.Fatalf("slot %d delay %v outside [%v, %v]", i+1, d, step, step+120*time.Millisecond)
			}
		}
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		ok      bool
	}{
		{name: "slow", profile: SlowProfile, ok: true},
		{name: "fast", profile: FastProfile, ok: true},
		{name: "missing name", profile: Profile{BaseStepMs: 100}},
		{name: "zero step", profile: Profile{Name: "x"}},
		{name: "negative jitter", profile: Profile{Name: "x", BaseStepMs: 10, JitterMs: [2]int{-1, 5}}},
		{name: "inverted jitter", profile: Profile{Name: "x", BaseStepMs: 10, JitterMs: [2]int{50, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestDefaultProfiles(t *testing.T) {
	ps := DefaultProfiles()

	slow, err := ps.Lookup("slow")
	if err != nil {
		t.Fatalf("lookup slow: %v", err)
	}
	if slow.BaseStepMs != 1000 || slow.JitterMs != [2]int{1000, 3000} {
		t.Fatalf("unexpected slow profile: %+v", slow)
	}

	fast, err := ps.Lookup("fast")
	if err != nil {
		t.Fatalf("lookup fast: %v", err)
	}
	if fast.BaseStepMs != 350 || fast.JitterMs != [2]int{0, 120} {
		t.Fatalf("unexpected fast profile: %+v", fast)
	}

	if _, err := ps.Lookup("glacial"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}

	all := ps.All()
	if len(all) != 2 || all[0].Name != "fast" || all[1].Name != "slow" {
		t.Fatalf("All() = %+v, want [fast slow]", all)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `profiles:
  - name: broadcast
    base_step_ms: 600
    jitter_ms: [100, 400]
  - name: fast
    base_step_ms: 200
    jitter_ms: [0, 50]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	ps, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}

	b, err := ps.Lookup("broadcast")
	if err != nil {
		t.Fatalf("lookup broadcast: %v", err)
	}
	if b.BaseStepMs != 600 || b.JitterMs != [2]int{100, 400} {
		t.Fatalf("unexpected broadcast profile: %+v", b)
	}

	fast, _ := ps.Lookup("fast")
	if fast.BaseStepMs != 200 {
		t.Fatalf("expected file to override fast profile, got %+v", fast)
	}
	if _, err := ps.Lookup("slow"); err != nil {
		t.Fatalf("built-in slow profile missing: %v", err)
	}
}

func TestLoadProfiles_Errors(t *testing.T) {
	if ps, err := LoadProfiles(""); err != nil || ps == nil {
		t.Fatalf("empty path should yield defaults, got %v", err)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  - name: bad\n    base_step_ms: 0\n"), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if _, err := LoadProfiles(path); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
