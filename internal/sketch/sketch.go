// Package sketch implements a MinHash signature for estimating the Jaccard
// similarity of two value sets with memory independent of their size.
//
// Values are hashed with xxhash64, reduced modulo the Mersenne prime 2^61-1,
// then passed through num_hashes universal permutations (a*x + b) mod p whose
// coefficients come from a fixed seed, so every process builds the same
// hash family and serialized sketches stay comparable across runs.
package sketch

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/koustreak/dschema/internal/errs"
)

const (
	// FormatVersion is the first byte of every serialized sketch.
	FormatVersion byte = 1

	// FamilyXXHashUniversal identifies xxhash64 followed by universal
	// permutations modulo 2^61-1.
	FamilyXXHashUniversal byte = 1

	// DefaultNumHashes is the signature length used when none is configured.
	DefaultNumHashes = 128

	// MaxNumHashes bounds the signature length accepted from the wire.
	MaxNumHashes = 1 << 16

	headerSize = 6

	mersennePrime uint64 = (1 << 61) - 1
	familySeed    uint64 = 0x6d696e6861736831 // "minhash1"
	emptySlot            = math.MaxUint64
)

// Sketch is a MinHash signature. It is not safe for concurrent Update calls.
type Sketch struct {
	mins []uint64
	a    []uint64
	b    []uint64
}

// New returns an empty sketch with numHashes slots. It panics if numHashes
// is outside [1, MaxNumHashes].
func New(numHashes int) *Sketch {
	if numHashes < 1 || numHashes > MaxNumHashes {
		panic("sketch: numHashes out of range")
	}
	s := &Sketch{mins: make([]uint64, numHashes)}
	for i := range s.mins {
		s.mins[i] = emptySlot
	}
	s.a, s.b = permutations(numHashes)
	return s
}

// NewDefault returns an empty sketch with DefaultNumHashes slots.
func NewDefault() *Sketch {
	return New(DefaultNumHashes)
}

// NumHashes is the signature length.
func (s *Sketch) NumHashes() int { return len(s.mins) }

// IsEmpty reports whether no value has been added.
func (s *Sketch) IsEmpty() bool {
	return s.mins[0] == emptySlot
}

// Update adds a value. Adding the same value again leaves the sketch
// unchanged, and the result does not depend on insertion order.
func (s *Sketch) Update(value string) {
	s.update(reduce(xxhash.Sum64String(value)))
}

// UpdateBytes adds a value given as raw bytes. It is equivalent to
// Update(string(value)).
func (s *Sketch) UpdateBytes(value []byte) {
	s.update(reduce(xxhash.Sum64(value)))
}

func (s *Sketch) update(x uint64) {
	for i := range s.mins {
		h := addMod(mulMod(s.a[i], x), s.b[i])
		if h < s.mins[i] {
			s.mins[i] = h
		}
	}
}

// Similarity estimates the Jaccard similarity of the two value sets as the
// fraction of equal slots. Two empty sketches are identical (1.0).
func (s *Sketch) Similarity(other *Sketch) (float64, error) {
	if err := s.compatible(other); err != nil {
		return 0, err
	}
	equal := 0
	for i, m := range s.mins {
		if m == other.mins[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(s.mins)), nil
}

// Merge folds other into s so that s describes the union of both sets.
func (s *Sketch) Merge(other *Sketch) error {
	if err := s.compatible(other); err != nil {
		return err
	}
	for i, m := range other.mins {
		if m < s.mins[i] {
			s.mins[i] = m
		}
	}
	return nil
}

// Cardinality estimates the number of distinct values added.
func (s *Sketch) Cardinality() float64 {
	if s.IsEmpty() {
		return 0
	}
	var sum float64
	for _, m := range s.mins {
		sum += float64(m) / float64(mersennePrime)
	}
	est := float64(len(s.mins))/sum - 1
	if est < 1 {
		return 1
	}
	return est
}

// Serialize encodes the sketch as
// [version:1][num_hashes:4 big-endian][family:1][num_hashes x 8-byte big-endian minima].
func (s *Sketch) Serialize() []byte {
	buf := make([]byte, headerSize+8*len(s.mins))
	buf[0] = FormatVersion
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(s.mins)))
	buf[5] = FamilyXXHashUniversal
	for i, m := range s.mins {
		binary.BigEndian.PutUint64(buf[headerSize+8*i:], m)
	}
	return buf
}

// Deserialize decodes bytes produced by Serialize. An unknown version or
// hash family is a sketch_mismatch error; truncated input is invalid_input.
func Deserialize(data []byte) (*Sketch, error) {
	if len(data) < headerSize {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sketch too short: %d bytes", len(data))
	}
	if data[0] != FormatVersion {
		return nil, errs.Newf(errs.ErrKindSketchMismatch, "unsupported sketch format version %d", data[0])
	}
	if data[5] != FamilyXXHashUniversal {
		return nil, errs.Newf(errs.ErrKindSketchMismatch, "unsupported hash family %d", data[5])
	}
	n := binary.BigEndian.Uint32(data[1:5])
	if n < 1 || n > MaxNumHashes {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "sketch num_hashes %d out of range", n)
	}
	if len(data) != headerSize+8*int(n) {
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"sketch length %d does not match num_hashes %d", len(data), n)
	}

	s := New(int(n))
	for i := range s.mins {
		s.mins[i] = binary.BigEndian.Uint64(data[headerSize+8*i:])
	}
	return s, nil
}

// CompareSerialized deserializes both inputs and returns their similarity.
func CompareSerialized(left, right []byte) (float64, error) {
	a, err := Deserialize(left)
	if err != nil {
		return 0, err
	}
	b, err := Deserialize(right)
	if err != nil {
		return 0, err
	}
	return a.Similarity(b)
}

func (s *Sketch) compatible(other *Sketch) error {
	if other == nil {
		return errs.New(errs.ErrKindInvalidInput, "nil sketch")
	}
	if len(s.mins) != len(other.mins) {
		return errs.Newf(errs.ErrKindSketchMismatch,
			"num_hashes differ: %d vs %d", len(s.mins), len(other.mins))
	}
	return nil
}

// permutations derives the (a, b) coefficients from the fixed family seed.
// a is drawn from [1, p) and b from [0, p).
func permutations(n int) (a, b []uint64) {
	a = make([]uint64, n)
	b = make([]uint64, n)
	state := familySeed
	for i := 0; i < n; i++ {
		a[i] = 1 + splitmix64(&state)%(mersennePrime-1)
		b[i] = splitmix64(&state) % mersennePrime
	}
	return a, b
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// reduce maps a 64-bit hash into [0, p).
func reduce(h uint64) uint64 {
	r := (h & mersennePrime) + (h >> 61)
	if r >= mersennePrime {
		r -= mersennePrime
	}
	return r
}

// mulMod returns a*x mod p for a, x < p.
func mulMod(a, x uint64) uint64 {
	hi, lo := bits.Mul64(a, x)
	r := (lo & mersennePrime) + (lo>>61 | hi<<3)
	if r >= mersennePrime {
		r -= mersennePrime
	}
	if r >= mersennePrime {
		r -= mersennePrime
	}
	return r
}

func addMod(x, y uint64) uint64 {
	r := x + y
	if r >= mersennePrime {
		r -= mersennePrime
	}
	return r
}
