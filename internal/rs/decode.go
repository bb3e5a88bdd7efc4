package rs

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// maxErrors is the largest number of symbol errors a single RS(255,223)
// codeword can correct: NPAR/2 = 16, per spec §4.4/§8.
const maxErrors = NPAR / 2

// Decode corrects up to maxErrors symbol errors in a 255-byte codeword
// and returns the recovered 223-byte message, the number of symbols
// corrected, and an error if the codeword could not be validated as
// correctable (spec §8: "with 17 errors decoding may fail but never
// silently produce M").
//
// The algorithm is classic syndrome decoding: compute syndromes S_1..S_32
// (roots alpha^1..alpha^32, matching internal/rs's generator
// convention), solve for the error-locator polynomial via
// Peterson-Gorenstein-Zierler Gaussian elimination (trying decreasing
// assumed error counts until a non-singular system is found), locate
// roots by Chien search, and recover magnitudes via Forney's algorithm.
func Decode(codeword []byte) ([]byte, int, error) {
	if len(codeword) != N {
		return nil, 0, fmt.Errorf("rs: codeword must be %d bytes, got %d", N, len(codeword))
	}

	syn := syndromes(codeword)
	if allZero(syn) {
		msg := make([]byte, K)
		copy(msg, codeword[:K])
		return msg, 0, nil
	}

	for v := maxErrors; v >= 1; v-- {
		sigma, ok := solveLocator(syn, v)
		if !ok {
			continue
		}

		positions, locators := chienSearch(sigma)
		if len(positions) != v {
			// The assumed error count didn't yield a locator with
			// exactly v roots in range: not the right order, try fewer.
			continue
		}

		omega := errorEvaluator(syn, sigma, v)
		deriv := polyDerivative(sigma)

		corrected := append([]byte(nil), codeword...)
		spurious := false
		for i, pos := range positions {
			x := locators[i]
			xInv := gfInv(x)
			num := polyEvalAsc(omega, xInv)
			den := polyEvalAsc(deriv, xInv)
			if den == 0 {
				// A zero derivative at a supposed root means this
				// candidate locator is spurious; abandon this v.
				spurious = true
				break
			}
			corrected[pos] ^= gfDiv(num, den)
		}
		if spurious {
			continue
		}

		if allZero(syndromes(corrected)) {
			msg := make([]byte, K)
			copy(msg, corrected[:K])
			return msg, v, nil
		}
	}

	return nil, 0, errs.Integrity("rs", fmt.Sprintf("uncorrectable codeword (more than %d symbol errors)", maxErrors))
}

// syndromes computes S_1..S_32 = c(alpha^1)..c(alpha^32) for codeword c,
// treating codeword[0] as the highest-degree coefficient (spec §4.4's
// systematic msg||parity layout evaluated MSB-first).
func syndromes(codeword []byte) []byte {
	syn := make([]byte, NPAR)
	for i := 0; i < NPAR; i++ {
		syn[i] = polyEvalHorner(codeword, gfPow(i+1))
	}
	return syn
}

func polyEvalHorner(poly []byte, x byte) byte {
	var result byte
	for _, c := range poly {
		result = gfMul(result, x) ^ c
	}
	return result
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// solveLocator attempts to solve the v x v Peterson linear system
// sum_j sigma_j * S_{i+v-j} = S_{i+v} (1-indexed) for sigma_1..sigma_v,
// returning the ascending-power error-locator polynomial
// [1, sigma_1, ..., sigma_v] and whether the system was non-singular.
func solveLocator(syn []byte, v int) ([]byte, bool) {
	a := make([][]byte, v)
	for i := range a {
		a[i] = make([]byte, v+1) // augmented column v holds the RHS
		for j := 0; j < v; j++ {
			a[i][j] = syn[i+v-j-1]
		}
		a[i][v] = syn[i+v]
	}

	if !gaussEliminate(a, v) {
		return nil, false
	}

	sigma := make([]byte, v+1)
	sigma[0] = 1
	for i := 0; i < v; i++ {
		sigma[i+1] = a[i][v]
	}
	return sigma, true
}

// gaussEliminate solves the v x v system in augmented matrix a in place
// (GF(256) arithmetic), leaving the solution in column v of each row.
// Returns false if a is singular.
func gaussEliminate(a [][]byte, v int) bool {
	for col := 0; col < v; col++ {
		pivot := -1
		for row := col; row < v; row++ {
			if a[row][col] != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return false
		}
		a[col], a[pivot] = a[pivot], a[col]

		inv := gfInv(a[col][col])
		for j := col; j <= v; j++ {
			a[col][j] = gfMul(a[col][j], inv)
		}

		for row := 0; row < v; row++ {
			if row == col || a[row][col] == 0 {
				continue
			}
			factor := a[row][col]
			for j := col; j <= v; j++ {
				a[row][j] ^= gfMul(factor, a[col][j])
			}
		}
	}
	return true
}

// chienSearch finds the roots of sigma (ascending-power error-locator
// polynomial) among alpha^{-0}..alpha^{-(N-1)}: a root at alpha^{-L}
// means a codeword error at array index N-1-L. Returns the corrected
// array positions and their corresponding locator values X_l = alpha^L.
func chienSearch(sigma []byte) (positions []int, locators []byte) {
	for l := 0; l < N; l++ {
		x := gfPow(-l)
		if polyEvalAsc(sigma, x) == 0 {
			positions = append(positions, N-1-l)
			locators = append(locators, gfPow(l))
		}
	}
	return positions, locators
}

// errorEvaluator computes Omega(x) = S(x)*sigma(x) mod x^v, the error
// evaluator polynomial Forney's formula consumes.
func errorEvaluator(syn, sigma []byte, v int) []byte {
	product := polyMulAsc(syn, sigma)
	if len(product) > v {
		product = product[:v]
	}
	return product
}

func polyMulAsc(p, q []byte) []byte {
	out := make([]byte, len(p)+len(q)-1)
	for i, pc := range p {
		if pc == 0 {
			continue
		}
		for j, qc := range q {
			out[i+j] ^= gfMul(pc, qc)
		}
	}
	return out
}

// polyDerivative returns the formal derivative of an ascending-power
// polynomial over GF(2^8): term j*x^(j-1) survives only when j is odd
// (characteristic 2 kills even multiples).
func polyDerivative(p []byte) []byte {
	if len(p) <= 1 {
		return nil
	}
	d := make([]byte, len(p)-1)
	for j := 1; j < len(p); j++ {
		if j%2 == 1 {
			d[j-1] = p[j]
		}
	}
	return d
}

func polyEvalAsc(p []byte, x byte) byte {
	var result byte
	xPow := byte(1)
	for _, c := range p {
		result ^= gfMul(c, xPow)
		xPow = gfMul(xPow, x)
	}
	return result
}

// DecodeInterleaved de-interleaves an N*depth-byte codeblock into depth
// independent codewords, decodes each, and re-concatenates the message
// bytes back into their original K*depth-byte frame order (the inverse of EncodeInterleaved), per spec §4.4/§8's
// interleave-inversion property. It returns the total number of symbols
// corrected across all sub-codewords.
func DecodeInterleaved(codeblock []byte, depth int) ([]byte, int, error) {
	codewords, err := Demultiplex(codeblock, depth)
	if err != nil {
		return nil, 0, err
	}

	messages := make([][]byte, depth)
	totalCorrected := 0
	for j, cw := range codewords {
		msg, corrected, err := Decode(cw)
		if err != nil {
			return nil, totalCorrected, fmt.Errorf("rs: sub-codeword %d: %w", j, err)
		}
		messages[j] = msg
		totalCorrected += corrected
	}

	frame := make([]byte, K*depth)
	for n := 0; n < K; n++ {
		for j := 0; j < depth; j++ {
			frame[n*depth+j] = messages[j][n]
		}
	}
	return frame, totalCorrected, nil
}
