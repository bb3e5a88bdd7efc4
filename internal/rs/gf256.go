// Package rs implements the CCSDS RS(255,223) encoder/decoder over
// GF(256) with round-robin symbol interleaving of configurable depth I
// (spec §4.4). The field arithmetic follows the classic
// alpha_to/index_of table construction `doismellburning-samoyed`
// configures for its own RS(255,223) entry (prim poly 0x11d, first
// consecutive root alpha^1, primitive element alpha, 32 parity bytes):
// first consecutive root alpha^1, primitive element alpha, 32 roots.
package rs

const (
	// N is the RS(255,223) codeword length.
	N = 255
	// K is the message length; NPAR = N-K = 32 parity bytes.
	K = 223
	// NPAR is the number of parity/check symbols (spec §4.4).
	NPAR = N - K
	// primPoly is the GF(256) field generator polynomial, x^8+x^4+x^3+x^2+1.
	primPoly = 0x11D
)

// gf holds the precomputed exp/log tables for GF(256) and the RS
// generator polynomial built from them, all computed once at package
// init (spec §9: "built at startup").
var (
	expTable [2 * N]byte // alpha_to, doubled to avoid modular wraparound in multiply
	logTable [N + 1]byte // index_of; logTable[0] is unused (log of 0 undefined)
	genPoly  [NPAR + 1]byte
)

func init() {
	// Build alpha_to / index_of exactly as fx25_init.go's init_rs_char
	// does: sr starts at 1, each step doubles it (alpha multiply) and
	// reduces by primPoly whenever the symbol overflows 8 bits.
	sr := 1
	for i := 0; i < N; i++ {
		expTable[i] = byte(sr)
		logTable[sr] = byte(i)
		sr <<= 1
		if sr&0x100 != 0 {
			sr ^= primPoly
		}
		sr &= N
	}
	for i := N; i < 2*N; i++ {
		expTable[i] = expTable[i-N]
	}

	// g(x) = product over i=1..32 of (x - alpha^i), spec §3/§4.4. Since
	// GF(256) has characteristic 2, subtraction is XOR, so this is
	// (x + alpha^i) in the usual RS generator construction. genPoly is
	// stored highest-degree-first: genPoly[0]==1 is the x^NPAR
	// coefficient, genPoly[NPAR] is the constant term.
	gen := make([]byte, 1, NPAR+1)
	gen[0] = 1
	for i := 1; i <= NPAR; i++ {
		root := expTable[i] // alpha^i, first consecutive root alpha^1
		next := make([]byte, len(gen)+1)
		for j, c := range gen {
			next[j] ^= c
			next[j+1] ^= gfMul(c, root)
		}
		gen = next
	}
	copy(genPoly[:], gen)
}

func gfAdd(a, b byte) byte { return a ^ b }

// gfMul multiplies two GF(256) elements via the log/antilog tables.
func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

// gfInv returns the multiplicative inverse of a nonzero GF(256) element.
func gfInv(a byte) byte {
	return expTable[(N-int(logTable[a]))%N]
}

// gfPow returns alpha^p (p may be negative; reduced mod N).
func gfPow(p int) byte {
	p %= N
	if p < 0 {
		p += N
	}
	return expTable[p]
}

// gfDiv divides a by b (b must be nonzero).
func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	return expTable[(int(logTable[a])-int(logTable[b])+N)%N]
}
