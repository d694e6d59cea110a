// Package shuffle provides the deterministic deck ordering. The same seed
// string must always produce the same permutation, across processes and
// restarts, so both session members see an identical deck. The generator
// is therefore fully specified here instead of borrowing a library PRNG
// whose stream could change between versions.
package shuffle

import "hash/fnv"

// Source is a deterministic pseudo-random stream keyed by a string seed:
// an xorshift64* generator seeded with the FNV-1a hash of the seed.
type Source struct {
	state uint64
}

func NewSource(seed string) *Source {
	h := fnv.New64a()
	h.Write([]byte(seed))

	state := h.Sum64()
	if state == 0 {
		// xorshift state must be non-zero.
		state = 0x9E3779B97F4A7C15
	}

	return &Source{state: state}
}

func (s *Source) next() uint64 {
	x := s.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	s.state = x
	return x * 0x2545F4914F6CDD1D
}

// Float64 returns the next draw in [0, 1).
func (s *Source) Float64() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

// Deterministic returns a seeded Fisher-Yates permutation of items. The
// input slice is not modified.
func Deterministic[T any](items []T, seed string) []T {
	rng := NewSource(seed)

	shuffled := make([]T, len(items))
	copy(shuffled, items)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}
