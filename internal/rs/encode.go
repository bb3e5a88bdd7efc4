package rs

import "fmt"

// Encode computes the 32 parity bytes for a 223-byte message and returns
// the 255-byte systematic codeword msg||parity (spec §4.4 step 2): the
// parity is the remainder of dividing x^32*msg(x) by the generator
// polynomial, computed in place via synthetic division over GF(256).
func Encode(msg []byte) ([]byte, error) {
	if len(msg) != K {
		return nil, fmt.Errorf("rs: message must be %d bytes, got %d", K, len(msg))
	}

	codeword := make([]byte, N)
	copy(codeword, msg)

	for i := 0; i < K; i++ {
		coef := codeword[i]
		if coef == 0 {
			continue
		}
		for j, g := range genPoly {
			codeword[i+j] ^= gfMul(g, coef)
		}
	}
	// The loop above overwrote codeword[:K] with the synthetic-division
	// scratch values; only codeword[K:] (the remainder) is meaningful.
	// Restore the original message bytes for the systematic codeword.
	copy(codeword, msg)
	return codeword, nil
}
