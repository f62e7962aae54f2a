package pipeline

import (
	"context"
	"testing"
	"time"

	logx "ghwatch/pkg/logx"
)

func TestGateAllowsOncePerKey(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	th := sampleThread("1", true)
	act := Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(0)}

	if !g.AllowActivity(context.Background(), th, act) {
		t.Fatalf("first delivery must be allowed")
	}
	if g.AllowActivity(context.Background(), th, act) {
		t.Fatalf("replay must be suppressed")
	}
}

func TestGateAllowsStrictlyNewerActivity(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	th := sampleThread("1", true)

	if !g.AllowActivity(context.Background(), th, Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(0)}) {
		t.Fatalf("first delivery must be allowed")
	}
	// Same event kind, later timestamp: a distinct logical update.
	if !g.AllowActivity(context.Background(), th, Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(5)}) {
		t.Fatalf("newer activity must be allowed")
	}
	if g.Size() != 2 {
		t.Fatalf("expected 2 recorded keys, got %d", g.Size())
	}
}

func TestGateThreadKeysIndependentOfActivityKeys(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	th := sampleThread("1", true)
	act := Activity{Event: EventCommented, Actor: "alice", CreatedAt: th.UpdatedAt}

	if !g.AllowActivity(context.Background(), th, act) {
		t.Fatalf("activity delivery must be allowed")
	}
	if !g.AllowThread(context.Background(), th) {
		t.Fatalf("thread fallback key must not collide with activity key")
	}
	if g.AllowThread(context.Background(), th) {
		t.Fatalf("thread replay must be suppressed")
	}
}

func TestGatePruneDropsOldKeys(t *testing.T) {
	g := NewGate(nil, logx.Nop())
	th := sampleThread("1", true)

	g.AllowActivity(context.Background(), th, Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(0)})
	g.AllowActivity(context.Background(), th, Activity{Event: EventReviewed, Actor: "carol", CreatedAt: at(30), Review: &ReviewDetail{State: ReviewApproved}})

	removed := g.Prune(context.Background(), at(10))
	if removed != 1 {
		t.Fatalf("expected 1 pruned key, got %d", removed)
	}
	if g.Size() != 1 {
		t.Fatalf("expected 1 remaining key, got %d", g.Size())
	}
}

type memStore struct {
	keys map[string]time.Time
}

func newMemStore() *memStore { return &memStore{keys: make(map[string]time.Time)} }

func (s *memStore) PutDelivered(ctx context.Context, key string, at time.Time) error {
	s.keys[key] = at
	return nil
}

func (s *memStore) HasDelivered(ctx context.Context, key string) (bool, error) {
	_, ok := s.keys[key]
	return ok, nil
}

func (s *memStore) PruneDeliveredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, at := range s.keys {
		if at.Before(cutoff) {
			delete(s.keys, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Close() error { return nil }

func TestGateConsultsStoreAcrossRestarts(t *testing.T) {
	store := newMemStore()
	th := sampleThread("1", true)
	act := Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(0)}

	g1 := NewGate(store, logx.Nop())
	if !g1.AllowActivity(context.Background(), th, act) {
		t.Fatalf("first delivery must be allowed")
	}

	// A fresh gate with an empty in-memory set must still suppress.
	g2 := NewGate(store, logx.Nop())
	if g2.AllowActivity(context.Background(), th, act) {
		t.Fatalf("persisted key must suppress after restart")
	}
}
