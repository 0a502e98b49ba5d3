// Package preset loads engine parameters from JSON preset files and can
// watch a preset file for live changes.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkoerner/pluck/pluck"
)

// File is the JSON schema for presets. Pointer fields distinguish "absent"
// from zero; absent fields keep their defaults.
type File struct {
	Damping          *float32 `json:"damping"`
	Brightness       *float32 `json:"brightness"`
	AttackSeconds    *float64 `json:"attack_s"`
	DecaySeconds     *float64 `json:"decay_s"`
	SustainLevel     *float32 `json:"sustain"`
	ReleaseSeconds   *float64 `json:"release_s"`
	HarmonicsEnabled *bool    `json:"harmonics_enabled"`
	OutputGain       *float32 `json:"output_gain"`
	NoiseSeed        *int64   `json:"noise_seed"`
	StealPolicy      string   `json:"steal_policy"`
	BodyIRWavPath    string   `json:"body_ir_wav_path"`
}

// LoadJSON loads a preset JSON file and applies it on top of default
// params. A relative body IR path is resolved against the preset location.
func LoadJSON(path string) (*pluck.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := pluck.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}

	if p.BodyIRWavPath != "" && !filepath.IsAbs(p.BodyIRWavPath) {
		base := filepath.Dir(path)
		p.BodyIRWavPath = filepath.Clean(filepath.Join(base, p.BodyIRWavPath))
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *pluck.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.Damping != nil {
		if *f.Damping <= 0 || *f.Damping > 1 {
			return fmt.Errorf("damping must be in (0,1]")
		}
		dst.Damping = *f.Damping
	}
	if f.Brightness != nil {
		if *f.Brightness < 0 || *f.Brightness > 1 {
			return fmt.Errorf("brightness must be in [0,1]")
		}
		dst.Brightness = *f.Brightness
	}
	if f.AttackSeconds != nil {
		if *f.AttackSeconds < 0 {
			return fmt.Errorf("attack_s must be >= 0")
		}
		dst.AttackSeconds = *f.AttackSeconds
	}
	if f.DecaySeconds != nil {
		if *f.DecaySeconds < 0 {
			return fmt.Errorf("decay_s must be >= 0")
		}
		dst.DecaySeconds = *f.DecaySeconds
	}
	if f.SustainLevel != nil {
		if *f.SustainLevel < 0 || *f.SustainLevel > 1 {
			return fmt.Errorf("sustain must be in [0,1]")
		}
		dst.SustainLevel = *f.SustainLevel
	}
	if f.ReleaseSeconds != nil {
		if *f.ReleaseSeconds < 0 {
			return fmt.Errorf("release_s must be >= 0")
		}
		dst.ReleaseSeconds = *f.ReleaseSeconds
	}
	if f.HarmonicsEnabled != nil {
		dst.HarmonicsEnabled = *f.HarmonicsEnabled
	}
	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.NoiseSeed != nil {
		dst.NoiseSeed = *f.NoiseSeed
	}
	if f.StealPolicy != "" {
		switch pluck.StealPolicy(f.StealPolicy) {
		case pluck.StealOldest, pluck.StealQuietest:
			dst.StealPolicy = pluck.StealPolicy(f.StealPolicy)
		default:
			return fmt.Errorf("unknown steal_policy %q", f.StealPolicy)
		}
	}
	if f.BodyIRWavPath != "" {
		dst.BodyIRWavPath = strings.TrimSpace(f.BodyIRWavPath)
	}
	return nil
}
