// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store implements the tree's two persisted collections (§3.3,
// §6.2): NODES, mapping (version, nibble-path) to a serialized node, and
// ORPHANS, the log of nodes no longer referenced by any version newer
// than a stated threshold. Both are layered over a kv.Store — the host
// key/value engine itself stays an external collaborator.
package store

import (
	"encoding/binary"
	"errors"

	"github.com/rmtree/rmt/nibble"
)

// ErrMalformedKey is returned when a raw kv key cannot be decoded back
// into its (version, path) or (v_orph, v_orig, path) components.
var ErrMalformedKey = errors.New("store: malformed key")

// Bucket prefixes namespacing the two collections within a shared
// backend, so one kv.Store instance addresses the whole tree.
var (
	nodesBucket   = []byte{'N'}
	orphansBucket = []byte{'O'}
)

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// encodeNodeKey builds NODES[ v:u64_be ‖ path_len:u16_be ‖ path_bytes ].
func encodeNodeKey(v uint64, p nibble.Path) []byte {
	key := make([]byte, 0, 1+8+2+(len(p)+1)/2)
	key = append(key, nodesBucket...)
	key = append(key, encodeU64(v)...)
	key = appendPath(key, p)
	return key
}

// nodeVersionPrefix is the key prefix shared by every node stored at
// exactly version v, used to scan NODES[v] in ascending path order.
func nodeVersionPrefix(v uint64) []byte {
	key := make([]byte, 0, 1+8)
	key = append(key, nodesBucket...)
	key = append(key, encodeU64(v)...)
	return key
}

// encodeOrphanKey builds
// ORPHANS[ v_orph:u64_be ‖ v_orig:u64_be ‖ path_len:u16_be ‖ path_bytes ].
func encodeOrphanKey(vOrph, vOrig uint64, p nibble.Path) []byte {
	key := make([]byte, 0, 1+8+8+2+(len(p)+1)/2)
	key = append(key, orphansBucket...)
	key = append(key, encodeU64(vOrph)...)
	key = append(key, encodeU64(vOrig)...)
	key = appendPath(key, p)
	return key
}

func appendPath(key []byte, p nibble.Path) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(p.Len()))
	key = append(key, lenBuf[:]...)
	return append(key, p.Bytes()...)
}

func decodeOrphanKey(key []byte) (vOrph, vOrig uint64, p nibble.Path, err error) {
	if len(key) < 1+8+8+2 || key[0] != orphansBucket[0] {
		return 0, 0, nil, ErrMalformedKey
	}
	key = key[1:]
	vOrph = binary.BigEndian.Uint64(key[:8])
	vOrig = binary.BigEndian.Uint64(key[8:16])
	nibbleCount := int(binary.BigEndian.Uint16(key[16:18]))
	packed := key[18:]
	if len(packed) != (nibbleCount+1)/2 {
		return 0, 0, nil, ErrMalformedKey
	}
	return vOrph, vOrig, nibble.FromPacked(packed, nibbleCount), nil
}

func decodeNodeKey(key []byte) (v uint64, p nibble.Path, err error) {
	if len(key) < 1+8+2 || key[0] != nodesBucket[0] {
		return 0, nil, ErrMalformedKey
	}
	key = key[1:]
	v = binary.BigEndian.Uint64(key[:8])
	nibbleCount := int(binary.BigEndian.Uint16(key[8:10]))
	packed := key[10:]
	if len(packed) != (nibbleCount+1)/2 {
		return 0, nil, ErrMalformedKey
	}
	return v, nibble.FromPacked(packed, nibbleCount), nil
}
