package game

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// RandomSource abstracts the uniform random generator used by the draw
// pipeline. The default source is crypto-backed; seeded sources exist for
// tests and distribution simulation.
type RandomSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	// top 53 bits give a uniform double in [0, 1)
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// DefaultRandomSource returns the crypto-backed source.
func DefaultRandomSource() RandomSource { return cryptoSource{} }

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource returns a reproducible source for tests and simulations.
func NewSeededSource(seed int64) RandomSource {
	return &seededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// intn returns a uniform index in [0, n). n must be > 0.
func intn(rng RandomSource, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
