// Package random provides seed generation helpers for reproducible draws.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand creates a math/rand generator from the given seed.
// If seed is 0, a crypto-random seed is drawn instead.
func NewRand(seed int64) (*rand.Rand, error) {
	if seed == 0 {
		generated, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = generated
	}
	return rand.New(rand.NewSource(seed)), nil
}
