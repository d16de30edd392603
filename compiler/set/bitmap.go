package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

// Bitmap is a dense, zero-based bitset, used for the dominator pass's
// per-block reachable-from sets (compiler/dom).
type Bitmap struct {
	b  []uint64
	b0 [1]uint64
}

// MakeBitmap returns an empty Bitmap sized to hold at least len bits.
func MakeBitmap(len int) Bitmap {
	s := Bitmap{}
	s.b = s.b0[:]

	len = (len + 63) / 64

	if len > cap(s.b) {
		s.b = make([]uint64, len)
	}

	return s
}

// Set adds bit i to the set, growing backing storage as needed.
func (s *Bitmap) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

// IsSet reports whether bit i is a member of s.
func (s *Bitmap) IsSet(i int) bool {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return (s.b[i] & (1 << j)) != 0
}

// Or merges x into s in place (set union).
func (s *Bitmap) Or(x Bitmap) {
	s.grow(len(x.b))

	for i, x := range x.b {
		s.b[i] |= x
	}
}

// Size returns the number of bits currently set.
func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

// TlogAppend renders s as a tlog array of its set bit positions, for
// structured dump support (spec 6).
func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	for i, x := range s.b {
		if x == 0 {
			continue
		}

		for j := 0; j < 64; j++ {
			if x&(1<<j) == 0 {
				continue
			}

			b = e.AppendInt(b, i*64+j)
		}
	}

	b = e.AppendBreak(b)

	return b
}

func (s *Bitmap) ij(pos int) (i int, j int) {
	i, j = pos/64, pos%64

	return i, j
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
