// Package profile loads and validates per-APID Space Packet profiles and
// the pipeline-wide configuration from YAML (spec §6 "Profile
// configuration", spec §9 "tagged variants... configuration-time
// validation"). It is the only package that bridges a user-facing
// configuration document to internal/spp.EncodeParams and
// internal/tmframe.Config, keeping both of those packages free of any
// YAML or CLI concern.
package profile

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/spp"
)

// APID is a Space Packet Application Process Identifier that unmarshals
// from either a YAML integer or a "0xNNN" hex string (spec §6 profile
// table: "apid | 0..2047 (integer or \"0xNNN\")").
type APID uint16

// UnmarshalYAML accepts either a bare integer or a "0x"-prefixed hex
// string scalar node, per yaml.v3's Node-based Unmarshaler interface.
func (a *APID) UnmarshalYAML(value *yaml.Node) error {
	var asInt int
	if err := value.Decode(&asInt); err == nil {
		*a = APID(asInt)
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return err
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(asString, "0x"), "0X")
	v, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return fmt.Errorf("profile: apid %q is neither an integer nor a hex string: %w", asString, err)
	}
	*a = APID(v)
	return nil
}

// SecHdrConfig is the secondary-header section of a Profile.
type SecHdrConfig struct {
	Mode string `yaml:"mode"` // "none" | "ns8" | "sec_us32" | "fixed"
	Hex  string `yaml:"hex,omitempty"`
}

// BodyConfig is the user-content section of a Profile.
type BodyConfig struct {
	Mode       string `yaml:"mode"` // "ascii" | "pattern" | "file"
	Text       string `yaml:"text,omitempty"`
	Path       string `yaml:"path,omitempty"`
	Pattern16  bool   `yaml:"pattern16,omitempty"`
	ExtraBytes int    `yaml:"extra_bytes,omitempty"`
	PadByte    string `yaml:"pad_byte,omitempty"` // hex byte, e.g. "00"
}

// Profile is one per-APID Space Packet profile (spec §6 table).
type Profile struct {
	Name         string       `yaml:"name"`
	APID         APID         `yaml:"apid"`
	Type         string       `yaml:"type"` // "TM" | "TC"
	SecHdr       SecHdrConfig `yaml:"sec_hdr"`
	Body         BodyConfig   `yaml:"body"`
	UseMIC       bool         `yaml:"use_mic"`
	DataFieldLen int          `yaml:"data_field_len"`
	// MICPolicy overrides the receiver's MIC detection policy ("auto" |
	// "on" | "off"). Empty defaults to "auto" when use_mic is set, "off"
	// otherwise (spec §7 MIC detection policy).
	MICPolicy string `yaml:"mic_policy,omitempty"`
}

// packetType resolves the "TM"/"TC" string to spp.PacketType.
func (p Profile) packetType() (spp.PacketType, error) {
	switch strings.ToUpper(p.Type) {
	case "TM":
		return spp.TypeTM, nil
	case "TC":
		return spp.TypeTC, nil
	default:
		return 0, errs.Configuration("profile", fmt.Sprintf("profile %q: unknown type %q", p.Name, p.Type))
	}
}

func (p Profile) secHdrMode() (spp.SecHdrMode, error) {
	switch p.SecHdr.Mode {
	case "", "none":
		return spp.SecHdrNone, nil
	case "ns8":
		return spp.SecHdrNS8, nil
	case "sec_us32":
		return spp.SecHdrSecUS32, nil
	case "fixed":
		return spp.SecHdrFixed, nil
	default:
		return "", errs.Configuration("profile", fmt.Sprintf("profile %q: unknown sec_hdr.mode %q", p.Name, p.SecHdr.Mode))
	}
}

func (p Profile) padByte() (byte, error) {
	if p.Body.PadByte == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(p.Body.PadByte, "0x"), 16, 8)
	if err != nil {
		return 0, errs.Configuration("profile", fmt.Sprintf("profile %q: invalid pad_byte %q", p.Name, p.Body.PadByte))
	}
	return byte(v), nil
}

// Validate checks cross-field consistency a single Profile must satisfy
// before it can be used (spec §7 ConfigurationError: "data_field_len
// smaller than sec_hdr + MIC").
func (p Profile) Validate() error {
	if p.APID > spp.MaxAPID {
		return errs.Configuration("profile", fmt.Sprintf("profile %q: apid 0x%04X exceeds 11-bit range", p.Name, p.APID))
	}
	if _, err := p.packetType(); err != nil {
		return err
	}
	mode, err := p.secHdrMode()
	if err != nil {
		return err
	}
	secLen, err := spp.SecondaryHeaderLen(mode, fixedBytes(p.SecHdr.Hex))
	if err != nil {
		return err
	}
	micLen := 0
	if p.UseMIC {
		micLen = 4
	}
	if p.DataFieldLen < secLen+micLen {
		return errs.Configuration("profile", fmt.Sprintf(
			"profile %q: data_field_len %d smaller than sec_hdr_len %d + mic %d", p.Name, p.DataFieldLen, secLen, micLen))
	}
	switch p.Body.Mode {
	case "ascii", "pattern", "file":
	default:
		return errs.Configuration("profile", fmt.Sprintf("profile %q: unknown body.mode %q", p.Name, p.Body.Mode))
	}
	if _, err := p.padByte(); err != nil {
		return err
	}
	switch p.MICPolicy {
	case "", "auto", "on", "off":
	default:
		return errs.Configuration("profile", fmt.Sprintf("profile %q: unknown mic_policy %q", p.Name, p.MICPolicy))
	}
	return nil
}

func fixedBytes(hexStr string) []byte {
	b, err := parseHex(hexStr)
	if err != nil {
		return nil
	}
	return b
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("profile: odd-length hex string %q", s)
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("profile: invalid hex byte in %q: %w", s, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
