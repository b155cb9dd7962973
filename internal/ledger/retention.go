package ledger

import (
	"context"
	"fmt"
	"sort"
)

// HistoryCap is how many records a history log retains. Older records are
// compacted out after each append; the legacy behavior of wiping a full log
// is gone.
const HistoryCap = 100

// EnforceCap drops the oldest records from the collection until at most limit
// remain. Age is the normalized timestamp; unparsable timestamps count as
// oldest and go first. Ties fall back to insertion order.
func (l *Ledger) EnforceCap(ctx context.Context, collection string, limit int) error {
	src, ok := sourceFor(collection)
	if !ok {
		return fmt.Errorf("enforce cap: unknown log collection %q", collection)
	}

	recs, err := l.store.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("enforce cap %s: %w", collection, err)
	}
	if len(recs) <= limit {
		return nil
	}

	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return parseTimestamp(recs[idx[a]], src.timeKeys).
			Before(parseTimestamp(recs[idx[b]], src.timeKeys))
	})

	for _, i := range idx[:len(recs)-limit] {
		if err := l.store.Delete(ctx, collection, recs[i].ID); err != nil {
			return fmt.Errorf("enforce cap %s: drop %s: %w", collection, recs[i].ID, err)
		}
	}
	return nil
}

func sourceFor(collection string) (source, bool) {
	for _, src := range sources {
		if src.collection == collection {
			return src, true
		}
	}
	return source{}, false
}
