package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/pnrandom"
	"github.com/zsiec/ccsds-pipeline/internal/rs"
	"github.com/zsiec/ccsds-pipeline/internal/tmframe"
)

// PipelineConfig is the small set of pipeline-wide parameters a Profile
// document doesn't carry per-APID (spec §6, Transfer Frame length F,
// interleave depth I, FECF on/off, idle emission, LFSR seed).
type PipelineConfig struct {
	FrameLen    int    `yaml:"frame_len"`
	SCID        int    `yaml:"scid"`
	VCID        int    `yaml:"vcid"`
	FECF        bool   `yaml:"fecf"`
	IdleEnabled bool   `yaml:"idle_enabled"`
	IdleByte    string `yaml:"idle_byte,omitempty"` // hex byte, e.g. "00"
	InterleaveI int    `yaml:"interleave_depth"`
	LFSRSeedHex string `yaml:"lfsr_seed,omitempty"` // hex uint16, e.g. "7FFF"
}

// Validate checks PipelineConfig's cross-field constraints before it is
// used to build the transmit/receive stage chains.
func (c PipelineConfig) Validate() error {
	if c.InterleaveI <= 0 {
		return errs.Configuration("profile", fmt.Sprintf("interleave_depth must be positive, got %d", c.InterleaveI))
	}
	if c.FrameLen-tmframe.HeaderLen <= 0 {
		return errs.Configuration("profile", fmt.Sprintf("frame_len %d leaves no room for a Transfer Frame header", c.FrameLen))
	}
	// The whole Transfer Frame (header + TFDF + FECF), not just the
	// TFDF, is what the RS interleaver-encoder demultiplexes (spec §4.4:
	// "each K*depth-byte Transfer Frame"; the canonical F=1115, I=5
	// example is exactly 223*5).
	if c.FrameLen%(rs.K*c.InterleaveI) != 0 {
		return errs.Configuration("profile", fmt.Sprintf(
			"frame_len %d is not a multiple of %d RS(255,223) message bytes at interleave depth %d",
			c.FrameLen, rs.K*c.InterleaveI, c.InterleaveI))
	}
	if _, err := c.idleByte(); err != nil {
		return err
	}
	if _, err := c.lfsrSeed(); err != nil {
		return err
	}
	return nil
}

func (c PipelineConfig) idleByte() (byte, error) {
	if c.IdleByte == "" {
		return 0, nil
	}
	b, err := parseHex(c.IdleByte)
	if err != nil || len(b) != 1 {
		return 0, errs.Configuration("profile", fmt.Sprintf("invalid idle_byte %q", c.IdleByte))
	}
	return b[0], nil
}

func (c PipelineConfig) lfsrSeed() (uint16, error) {
	if c.LFSRSeedHex == "" {
		return pnrandom.DefaultSeed, nil
	}
	b, err := parseHex(c.LFSRSeedHex)
	if err != nil || len(b) != 2 {
		return 0, errs.Configuration("profile", fmt.Sprintf("invalid lfsr_seed %q", c.LFSRSeedHex))
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// TMFrameConfig builds the internal/tmframe.Config this PipelineConfig
// describes.
func (c PipelineConfig) TMFrameConfig() (tmframe.Config, error) {
	idle, err := c.idleByte()
	if err != nil {
		return tmframe.Config{}, err
	}
	cfg := tmframe.Config{
		FrameLen:    c.FrameLen,
		SCID:        uint16(c.SCID),
		VCID:        byte(c.VCID),
		FECF:        c.FECF,
		IdleEnabled: c.IdleEnabled,
		IdleByte:    idle,
	}
	if err := cfg.Validate(); err != nil {
		return tmframe.Config{}, err
	}
	return cfg, nil
}

// LFSRSeed resolves this config's randomizer seed, defaulting to
// pnrandom.DefaultSeed.
func (c PipelineConfig) LFSRSeed() uint16 {
	seed, _ := c.lfsrSeed()
	return seed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// LoadProfiles reads a YAML document holding a list of Profiles under
// top-level key "profiles", validating every entry (ConfigurationError on
// the first failure), mirroring the teacher's fail-fast posture on
// startup configuration.
func LoadProfiles(path string) ([]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration("profile", fmt.Sprintf("reading %q: %v", path, err))
	}
	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Configuration("profile", fmt.Sprintf("parsing %q: %v", path, err))
	}
	for _, p := range doc.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Profiles, nil
}

// LoadPipelineConfig reads a YAML document holding one PipelineConfig
// under top-level key "pipeline".
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, errs.Configuration("profile", fmt.Sprintf("reading %q: %v", path, err))
	}
	var doc struct {
		Pipeline PipelineConfig `yaml:"pipeline"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return PipelineConfig{}, errs.Configuration("profile", fmt.Sprintf("parsing %q: %v", path, err))
	}
	if err := doc.Pipeline.Validate(); err != nil {
		return PipelineConfig{}, err
	}
	return doc.Pipeline, nil
}

// ByAPID indexes a profile slice for spp.ConfigLookup-style receive-side
// lookups.
func ByAPID(profiles []Profile) map[uint16]Profile {
	out := make(map[uint16]Profile, len(profiles))
	for _, p := range profiles {
		out[uint16(p.APID)] = p
	}
	return out
}
