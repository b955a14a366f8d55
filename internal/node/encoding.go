// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"encoding/binary"
	"errors"
)

// ErrMalformed is returned when a stored node blob cannot be decoded. It
// always indicates corruption: the tree never writes a blob it can't
// later read back.
var ErrMalformed = errors.New("node: malformed encoding")

// Encode serializes n per §6.2, extended with one field: a 16-bit
// occupied-child bitmap, then for each present child (ascending slot
// order) its version, hash, is_leaf bit and a length-prefixed skip-nibble
// span (the nibbles §6.2's plain (version, hash, is_leaf) triple cannot
// express on its own — see Child.Skip), then a value-presence byte and,
// if present, the length-prefixed key and value.
func Encode(n *Node) []byte {
	buf := make([]byte, 2, 2+16*41+1+8+len(n.Key)+len(n.Value))

	var bitmap uint16
	for i, c := range n.Children {
		if c != nil {
			bitmap |= 1 << uint(i)
		}
	}
	binary.BigEndian.PutUint16(buf[0:2], bitmap)

	for _, c := range n.Children {
		if c == nil {
			continue
		}
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], c.Version)
		buf = append(buf, tmp[:]...)
		buf = append(buf, c.Hash[:]...)
		if c.IsLeaf {
			buf = append(buf, 0x01)
		} else {
			buf = append(buf, 0x00)
		}
		buf = append(buf, byte(len(c.Skip)))
		buf = append(buf, c.Skip...)
	}

	if n.HasValue {
		buf = append(buf, 0x01)
		buf = appendLenPrefixed(buf, n.Key)
		buf = appendLenPrefixed(buf, n.Value)
	} else {
		buf = append(buf, 0x00)
	}

	return buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(data)))
	buf = append(buf, tmp[:]...)
	return append(buf, data...)
}

func readLenPrefixed(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, ErrMalformed
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(len(buf)) < uint64(n) {
		return nil, nil, ErrMalformed
	}
	return buf[:n], buf[n:], nil
}

// Decode deserializes a blob produced by Encode.
func Decode(buf []byte) (*Node, error) {
	if len(buf) < 2 {
		return nil, ErrMalformed
	}
	bitmap := binary.BigEndian.Uint16(buf[:2])
	buf = buf[2:]

	n := new(Node)
	for i := 0; i < 16; i++ {
		if bitmap&(1<<uint(i)) == 0 {
			continue
		}
		if len(buf) < 8+32+1+1 {
			return nil, ErrMalformed
		}
		c := &Child{
			Version: binary.BigEndian.Uint64(buf[:8]),
		}
		copy(c.Hash[:], buf[8:40])
		c.IsLeaf = buf[40] != 0
		skipLen := int(buf[41])
		buf = buf[42:]
		if len(buf) < skipLen {
			return nil, ErrMalformed
		}
		if skipLen > 0 {
			c.Skip = append([]byte(nil), buf[:skipLen]...)
		}
		buf = buf[skipLen:]
		n.Children[i] = c
	}

	if len(buf) < 1 {
		return nil, ErrMalformed
	}
	hasValue := buf[0]
	buf = buf[1:]
	switch hasValue {
	case 0x00:
		n.HasValue = false
	case 0x01:
		n.HasValue = true
		key, rest, err := readLenPrefixed(buf)
		if err != nil {
			return nil, err
		}
		value, rest2, err := readLenPrefixed(rest)
		if err != nil {
			return nil, err
		}
		n.Key = append([]byte(nil), key...)
		n.Value = append([]byte(nil), value...)
		buf = rest2
	default:
		return nil, ErrMalformed
	}

	if len(buf) != 0 {
		return nil, ErrMalformed
	}
	return n, nil
}
