// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package nibble implements bit-level address manipulation over 4-bit
// nibbles: splitting raw byte keys into nibbles, taking common prefixes,
// and slicing — the addressing scheme the rest of the tree navigates by.
package nibble

// Path is an ordered sequence of nibbles, one per byte, each in [0,16),
// most-significant-nibble first. The empty Path addresses the root.
type Path []byte

// FromKey splits a raw byte key into its nibble representation. A key of
// L bytes yields 2L nibbles.
func FromKey(key []byte) Path {
	p := make(Path, len(key)*2)
	for i, b := range key {
		p[i*2] = b >> 4
		p[i*2+1] = b & 0x0f
	}
	return p
}

// Append returns a new Path with nibble n appended.
func (p Path) Append(n byte) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = n & 0x0f
	return out
}

// Slice returns p[start:end]. It shares the backing array with p.
func (p Path) Slice(start, end int) Path {
	return p[start:end]
}

// At returns the nibble at index i.
func (p Path) At(i int) byte {
	return p[i]
}

// Len returns the number of nibbles in p.
func (p Path) Len() int {
	return len(p)
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// CommonPrefixLen returns the length of the longest common prefix of a
// and b, in nibbles.
func CommonPrefixLen(a, b Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Compare orders paths lexicographically over their nibble sequence,
// which is equivalent to lexicographic order over the original byte keys
// since nibbles are most-significant-nibble first.
func (p Path) Compare(other Path) int {
	n := len(p)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if p[i] != other[i] {
			if p[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts before other.
func (p Path) Less(other Path) bool {
	return p.Compare(other) < 0
}

// Bytes packs p into its storage encoding: two nibbles per byte,
// most-significant-nibble first. If p has an odd nibble count, the
// trailing nibble occupies the high half of the last byte and the low
// half is zero; Len (tracked separately by callers) disambiguates.
func (p Path) Bytes() []byte {
	out := make([]byte, (len(p)+1)/2)
	for i, n := range p {
		if i%2 == 0 {
			out[i/2] = n << 4
		} else {
			out[i/2] |= n
		}
	}
	return out
}

// ToKey reassembles p into the original byte key. It panics if p does not
// hold an even number of nibbles, since a raw key is always a whole
// number of bytes.
func (p Path) ToKey() []byte {
	if len(p)%2 != 0 {
		panic("nibble: odd-length path is not a whole key")
	}
	return p.Bytes()
}

// FromPacked rebuilds a Path from its packed two-nibbles-per-byte storage
// encoding and an explicit nibble count.
func FromPacked(packed []byte, nibbleCount int) Path {
	p := make(Path, nibbleCount)
	for i := 0; i < nibbleCount; i++ {
		b := packed[i/2]
		if i%2 == 0 {
			p[i] = b >> 4
		} else {
			p[i] = b & 0x0f
		}
	}
	return p
}
