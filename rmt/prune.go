// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import "github.com/rmtree/rmt/store"

// prune deletes every NODES entry recorded as orphaned at or before
// upTo, together with the orphan records themselves, in a single batch
// (§4.7). It never touches a node still reachable from any version
// newer than upTo — those were never logged as orphans in the first
// place, since Apply only orphans a node the instant its own rewrite
// supersedes it.
func prune(st *store.Store, upTo uint64) (int, error) {
	orphans, err := st.OrphansUpTo(upTo)
	if err != nil {
		return 0, wrapBackend("list orphans", err)
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	b := st.NewBatch()
	for _, o := range orphans {
		if err := b.DeleteNode(o.OriginalVersion, o.Path); err != nil {
			return 0, wrapBackend("delete node", err)
		}
		if err := b.DeleteOrphan(o.OrphanedSince, o.OriginalVersion, o.Path); err != nil {
			return 0, wrapBackend("delete orphan", err)
		}
	}
	if err := b.Commit(); err != nil {
		return 0, wrapBackend("commit prune batch", err)
	}
	return len(orphans), nil
}
