package pipeline

import (
	"context"
	"time"

	"ghwatch/internal/storage"
	logx "ghwatch/pkg/logx"
)

// Gate ensures each logical notification is surfaced at most once.
//
// It keeps an explicit delivered key-set rather than a rolling
// watermark: the key-set tolerates the feed returning stale or
// out-of-order timestamps, and its growth is bounded externally by
// the scheduled prune. Keys are checked and recorded before the send,
// so a failing sink cannot cause a duplicate on the next cycle.
//
// When a store is configured the ledger survives restarts; store
// errors degrade to the in-memory set and are logged, never fatal.
type Gate struct {
	log   logx.Logger
	seen  map[string]time.Time
	store storage.Store // optional
}

func NewGate(store storage.Store, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{
		log:   log,
		seen:  make(map[string]time.Time),
		store: store,
	}
}

// ActivityKey identifies one (thread, activity) delivery.
func ActivityKey(t Thread, a Activity) string {
	return t.ID + "|" + string(a.Event) + "|" + a.CreatedAt.UTC().Format(time.RFC3339Nano)
}

// ThreadKey identifies one thread-level fallback delivery.
func ThreadKey(t Thread) string {
	return t.ID + "|thread|" + t.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// AllowActivity reports whether this (thread, activity) has not been
// delivered before, recording it as delivered when new.
func (g *Gate) AllowActivity(ctx context.Context, t Thread, a Activity) bool {
	return g.allow(ctx, ActivityKey(t, a), a.CreatedAt)
}

// AllowThread reports whether this thread-level update has not been
// delivered before, recording it as delivered when new.
func (g *Gate) AllowThread(ctx context.Context, t Thread) bool {
	return g.allow(ctx, ThreadKey(t), t.UpdatedAt)
}

func (g *Gate) allow(ctx context.Context, key string, at time.Time) bool {
	if _, ok := g.seen[key]; ok {
		return false
	}
	if g.store != nil {
		has, err := g.store.HasDelivered(ctx, key)
		if err != nil {
			g.log.Warn("ledger lookup failed; using in-memory set only", logx.Err(err))
		} else if has {
			g.seen[key] = at
			return false
		}
	}

	g.seen[key] = at
	if g.store != nil {
		if err := g.store.PutDelivered(ctx, key, at); err != nil {
			g.log.Warn("ledger write failed", logx.Err(err))
		}
	}
	return true
}

// Prune drops in-memory keys recorded before the cutoff and prunes
// the backing store. Returns the number of entries removed from the
// in-memory set.
func (g *Gate) Prune(ctx context.Context, cutoff time.Time) int {
	removed := 0
	for k, at := range g.seen {
		if at.Before(cutoff) {
			delete(g.seen, k)
			removed++
		}
	}
	if g.store != nil {
		if _, err := g.store.PruneDeliveredBefore(ctx, cutoff); err != nil {
			g.log.Warn("ledger prune failed", logx.Err(err))
		}
	}
	return removed
}

// Size returns the number of keys in the in-memory set.
func (g *Gate) Size() int { return len(g.seen) }
