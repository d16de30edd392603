// Package set provides the sparse, growable bitsets the middle-end uses
// for dedup/visited/liveness tracking: a generic, key-offset Bits[K] for
// id-keyed sets (liveness gen/kill/in/out) and a plain
// Bitmap for the dominator pass's per-block reachable-from sets.
package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Key is any integer-like id type a Bits[K] set can hold.
	Key interface {
		~int | ~int64
	}

	// Bits is a sparse set of K, offset by base so a set of ids starting
	// well above zero (instruction/interval ids) doesn't waste words on
	// the unused low range.
	Bits[K Key] struct {
		base K
		b    []uint64
		b0   [2]uint64
	}
)

// MakeBits returns an empty Bits whose members are all >= base.
func MakeBits[K Key](base K) Bits[K] {
	s := Bits[K]{
		base: base,
	}

	s.b = s.b0[:]

	return s
}

// Copy returns an independent copy of s.
func (s Bits[K]) Copy() Bits[K] {
	c := MakeBits(s.base)

	c.grow(len(s.b))
	copy(c.b, s.b)

	return c
}

// Set adds k to the set, growing backing storage as needed.
func (s *Bits[K]) Set(k K) {
	i, j := s.ij(k)

	s.grow(i)

	s.b[i] |= 1 << j
}

// IsSet reports whether k is a member of s.
func (s Bits[K]) IsSet(k K) bool {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

// Merge adds every member of x into s (set union).
func (s *Bits[K]) Merge(x Bits[K]) {
	if s.base != x.base {
		panic(s)
	}

	s.grow(len(x.b))

	for i, x := range x.b {
		s.b[i] |= x
	}
}

// Substract removes every member of x from s (set difference).
func (s Bits[K]) Substract(x Bits[K]) {
	if s.base != x.base {
		panic(s)
	}

	n := len(s.b)
	if m := len(x.b); m < n {
		n = m
	}

	for i, x := range x.b[:n] {
		s.b[i] &^= x
	}
}

// Size returns the number of members currently set.
func (s Bits[K]) Size() (r int) {
	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

// Range calls f for every member of s in ascending order, stopping early
// if f returns false.
func (s Bits[K]) Range(f func(k K) bool) {
	for i, x := range s.b {
		if x == 0 {
			continue
		}

		for j := bits.TrailingZeros64(x); j < bits.Len64(x); j++ {
			if (x & (1 << j)) == 0 {
				continue
			}

			if !f(s.base + K(i*64+j)) {
				return
			}
		}
	}
}

// TlogAppend renders s as a tlog array of its members, for structured
// dump support (spec 6).
func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bits[K]) ij(k K) (i int, j int) {
	p := int(k - s.base)
	i, j = p/64, p%64

	return i, j
}

func (s *Bits[K]) grow(i int) {
	if s.b == nil {
		s.b = s.b0[:]
	}

	for i >= cap(s.b) {
		s.b = append(s.b[:cap(s.b)], 0)
	}

	s.b = s.b[:cap(s.b)]
}
