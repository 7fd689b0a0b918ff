// Package randutil derives the *rand.Rand instances owned by game tables.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a PCG-backed generator seeded deterministically from seed.
// Equal seeds always produce equal card sequences, which is what the
// engine tests rely on.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+goldenRatio64)))
}

// NewUnseeded returns a generator seeded from the wall clock. Each table
// gets its own so that tables never contend on a shared source.
func NewUnseeded() *rand.Rand {
	return New(time.Now().UnixNano())
}

// Seed returns a fresh seed drawn from r, used to fan one configured seed
// out to many tables.
func Seed(r *rand.Rand) int64 {
	return r.Int64()
}

func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
