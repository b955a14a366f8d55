// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import (
	"errors"
	"fmt"

	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/nibble"
	"github.com/rmtree/rmt/proof"
	"github.com/rmtree/rmt/store"
)

// Sentinel error kinds, per §7. Callers use errors.Is against these.
var (
	// ErrEmptyKey: a key of zero length entered an operation.
	ErrEmptyKey = errors.New("rmt: empty key")
	// ErrNodeNotFound: an internal inconsistency — a node a live
	// version's structure says must exist is missing from the store.
	// This violates invariant S2 and is always fatal.
	ErrNodeNotFound = errors.New("rmt: node not found (store inconsistency)")
	// ErrMalformedNode: a stored node blob failed to deserialize.
	// Always indicates corruption.
	ErrMalformedNode = errors.New("rmt: malformed node")
	// ErrKeyTooLong: a key exceeded the tree's configured MaxKeyLen.
	// Mirrors §4.3's "BatchTooLarge is implementation-defined and
	// optional" — this is the per-key analogue for embedders with a
	// fixed-width key shape who'd rather fail fast than recurse deep.
	ErrKeyTooLong = errors.New("rmt: key exceeds MaxKeyLen")
	// ErrProofInvalid re-exports proof.ErrInvalid, the verifier's
	// ordinary "rejected" outcome, not an internal error.
	ErrProofInvalid = proof.ErrInvalid
)

// BackendError wraps an underlying kv.Store I/O failure. The tree never
// retries or recovers from these locally; they propagate to the caller.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("rmt: backend error during %s: %v", e.Op, e.Err) }
func (e *BackendError) Unwrap() error  { return e.Err }

func wrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// classifyNodeErr maps a store-layer read error (which only knows about
// ErrNotFound / ErrMalformed) into the public error kinds. "not found" is
// promoted to the fatal ErrNodeNotFound only by callers that already know
// (from a parent's child descriptor) that a node must exist at this path.
func classifyNodeErr(path nibble.Path, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: at path %x", ErrNodeNotFound, path.Bytes())
	case errors.Is(err, inode.ErrMalformed):
		return fmt.Errorf("%w: at path %x", ErrMalformedNode, path.Bytes())
	default:
		return wrapBackend("get node", err)
	}
}
