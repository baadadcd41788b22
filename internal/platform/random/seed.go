// Package random provides cryptographic seed generation helpers.
//
// Seeds initialise the deterministic dice roller; a recorded seed replays the
// exact same combat rolls.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// SeedFunc produces a new seed. Tests swap it for a fixed sequence.
type SeedFunc func() (int64, error)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Sequence returns a SeedFunc that yields start, start+1, ... which keeps
// replayed sessions reproducible without sharing a single rand.Rand.
func Sequence(start int64) SeedFunc {
	next := start
	return func() (int64, error) {
		seed := next
		next++
		return seed, nil
	}
}
