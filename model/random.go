package model

import (
	"math/rand/v2"
	"slices"
)

// RandomStream is the single source of randomness shared by a model and all of its agents
type RandomStream interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// pcgIncrement derives the second PCG word from the seed
const pcgIncrement = 0x9e3779b97f4a7c15

// Stream is a seedable PCG-backed RandomStream whose state can be captured and restored
type Stream struct {
	src *rand.PCG
	rnd *rand.Rand
}

// NewStream creates a stream from a seed
func NewStream(seed uint64) *Stream {
	src := rand.NewPCG(seed, seed^pcgIncrement)
	return &Stream{
		src: src,
		rnd: rand.New(src),
	}
}

func (s *Stream) Float64() float64 {
	return s.rnd.Float64()
}

func (s *Stream) IntN(n int) int {
	return s.rnd.IntN(n)
}

func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	s.rnd.Shuffle(n, swap)
}

// MarshalBinary captures the generator state
func (s *Stream) MarshalBinary() ([]byte, error) {
	return s.src.MarshalBinary()
}

// UnmarshalBinary restores a state produced by MarshalBinary
func (s *Stream) UnmarshalBinary(data []byte) error {
	return s.src.UnmarshalBinary(data)
}

// Bernoulli draws one trial succeeding with probability p
func Bernoulli(r RandomStream, p float64) bool {
	return r.Float64() < p
}

// Choose picks one element uniformly; items must not be empty
func Choose[T any](r RandomStream, items []T) T {
	return items[r.IntN(len(items))]
}

// Sample draws k distinct elements uniformly without replacement.
// k is clamped to len(items); the input slice is not modified.
func Sample[T any](r RandomStream, items []T, k int) []T {
	k = min(k, len(items))
	if k <= 0 {
		return nil
	}

	// partial Fisher-Yates over a copy
	pool := slices.Clone(items)
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
