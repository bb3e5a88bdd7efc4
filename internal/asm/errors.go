package asm

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

func errShortCADU(n int) error {
	return errs.Malformed("asm", fmt.Sprintf("CADU of %d bytes shorter than ASM", n))
}

func errBadSync(got []byte) error {
	return errs.Malformed("asm", fmt.Sprintf("sync mismatch: got % X, want % X", got, Marker))
}
