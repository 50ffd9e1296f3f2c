package locking

import (
	"context"
	"sort"
)

// AccountLockCoordinator serializes balance mutation across postings that share accounts.
type AccountLockCoordinator interface {
	// Acquire blocks until every account in accountIDs is locked or ctx ends.
	// Locks are taken one by one in ascending id order so overlapping postings
	// can never wait on each other in a cycle. The returned release func
	// unlocks everything and is safe to call more than once.
	Acquire(ctx context.Context, accountIDs []string) (release func(), err error)
}

// OrderedIDs returns the distinct ids sorted ascending, the global lock order.
func OrderedIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
