package profile

import (
	"fmt"
	"os"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// userBytes resolves the profile's body.mode into the raw user content
// that precedes any padding or MIC (spec §6 body.mode table).
func (p Profile) userBytes() ([]byte, error) {
	switch p.Body.Mode {
	case "ascii":
		return []byte(p.Body.Text), nil
	case "pattern":
		return patternBytes(p.Body.ExtraBytes), nil
	case "file":
		data, err := os.ReadFile(p.Body.Path)
		if err != nil {
			return nil, errs.Configuration("profile", fmt.Sprintf("profile %q: reading body.path %q: %v", p.Name, p.Body.Path, err))
		}
		return data, nil
	default:
		return nil, errs.Configuration("profile", fmt.Sprintf("profile %q: unknown body.mode %q", p.Name, p.Body.Mode))
	}
}

// patternBytes builds the 0x00..0x0F repeating byte pattern spec §8
// scenario 2 calls "pattern16", extended by extra bytes beyond 16 if the
// profile requests a longer body.
func patternBytes(extra int) []byte {
	n := 16 + extra
	if n < 0 {
		n = 0
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 16)
	}
	return out
}
