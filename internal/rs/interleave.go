package rs

import "fmt"

// Demux splits a frame of exactly K*depth bytes into depth sub-sequences
// of K bytes each, round-robin: sub[j][n] = frame[n*depth+j] (spec §4.4
// step 1).
func Demux(frame []byte, depth int) ([][]byte, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("rs: interleave depth must be positive, got %d", depth)
	}
	if len(frame) != K*depth {
		return nil, fmt.Errorf("rs: frame must be %d bytes for depth %d, got %d", K*depth, depth, len(frame))
	}
	subs := make([][]byte, depth)
	for j := range subs {
		subs[j] = make([]byte, K)
	}
	for n := 0; n < K; n++ {
		for j := 0; j < depth; j++ {
			subs[j][n] = frame[n*depth+j]
		}
	}
	return subs, nil
}

// Mux interleaves depth RS codewords of N bytes each into a single
// N*depth-byte codeblock: out[n*depth+j] = codeword[j][n] (spec §4.4
// step 3), the exact inverse of Demux at the N-symbol width.
func Mux(codewords [][]byte, depth int) ([]byte, error) {
	if len(codewords) != depth {
		return nil, fmt.Errorf("rs: expected %d codewords, got %d", depth, len(codewords))
	}
	out := make([]byte, N*depth)
	for j, cw := range codewords {
		if len(cw) != N {
			return nil, fmt.Errorf("rs: codeword %d must be %d bytes, got %d", j, N, len(cw))
		}
		for n := 0; n < N; n++ {
			out[n*depth+j] = cw[n]
		}
	}
	return out, nil
}

// Demultiplex splits an N*depth-byte interleaved codeblock back into
// depth independent N-byte codewords, the inverse of Mux, used on the
// receive side before per-codeword RS decode.
func Demultiplex(codeblock []byte, depth int) ([][]byte, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("rs: interleave depth must be positive, got %d", depth)
	}
	if len(codeblock) != N*depth {
		return nil, fmt.Errorf("rs: codeblock must be %d bytes for depth %d, got %d", N*depth, depth, len(codeblock))
	}
	codewords := make([][]byte, depth)
	for j := range codewords {
		codewords[j] = make([]byte, N)
	}
	for n := 0; n < N; n++ {
		for j := 0; j < depth; j++ {
			codewords[j][n] = codeblock[n*depth+j]
		}
	}
	return codewords, nil
}

// EncodeInterleaved runs the full encoder stage (spec §4.4): demux a
// K*depth-byte Transfer Frame into depth sub-messages, RS-encode each,
// and re-multiplex into an N*depth-byte codeblock.
func EncodeInterleaved(frame []byte, depth int) ([]byte, error) {
	subs, err := Demux(frame, depth)
	if err != nil {
		return nil, err
	}
	codewords := make([][]byte, depth)
	for j, sub := range subs {
		cw, err := Encode(sub)
		if err != nil {
			return nil, fmt.Errorf("rs: encoding sub-codeword %d: %w", j, err)
		}
		codewords[j] = cw
	}
	return Mux(codewords, depth)
}
