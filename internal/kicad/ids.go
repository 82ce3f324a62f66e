package kicad

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// IDSource hands out the tstamp identifiers of a footprint.
type IDSource interface {
	NewID() (uuid.UUID, error)
}

// SeededIDs derives version 4 UUIDs from a ChaCha8 stream, so equal seeds
// give byte-identical footprints. It is not safe for concurrent use.
type SeededIDs struct {
	rng *rand.ChaCha8
}

// NewSeededIDs seeds the stream from the xxhash of name.
func NewSeededIDs(name string) *SeededIDs {
	var seed [32]byte
	d := xxhash.New()
	for i := range 4 {
		// Chain the digest so each word depends on the previous ones.
		_, _ = d.WriteString(name)
		binary.LittleEndian.PutUint64(seed[i*8:], d.Sum64())
	}
	return &SeededIDs{rng: rand.NewChaCha8(seed)}
}

// NewID returns the next identifier of the stream.
func (s *SeededIDs) NewID() (uuid.UUID, error) {
	return uuid.NewRandomFromReader(s.rng)
}

// RandomIDs draws identifiers from the system random source.
type RandomIDs struct{}

// NewID returns a fresh random UUID.
func (RandomIDs) NewID() (uuid.UUID, error) {
	return uuid.NewRandom()
}
