package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "ghwatch/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " None "} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if s != nil {
			t.Fatalf("Open(%q) must return a nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFileStorePutHasPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s := openTestStore(t, path)
	defer s.Close()

	ctx := context.Background()
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	if err := s.PutDelivered(ctx, "t1|commented|a", old); err != nil {
		t.Fatalf("PutDelivered: %v", err)
	}
	if err := s.PutDelivered(ctx, "t1|merged|b", recent); err != nil {
		t.Fatalf("PutDelivered: %v", err)
	}
	// Duplicate put is a no-op.
	if err := s.PutDelivered(ctx, "t1|commented|a", recent); err != nil {
		t.Fatalf("duplicate PutDelivered: %v", err)
	}

	for _, key := range []string{"t1|commented|a", "t1|merged|b"} {
		has, err := s.HasDelivered(ctx, key)
		if err != nil || !has {
			t.Fatalf("HasDelivered(%q) = %v, %v", key, has, err)
		}
	}
	if has, _ := s.HasDelivered(ctx, "t2|closed|c"); has {
		t.Fatalf("unexpected hit for unknown key")
	}

	removed, err := s.PruneDeliveredBefore(ctx, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PruneDeliveredBefore: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if has, _ := s.HasDelivered(ctx, "t1|commented|a"); has {
		t.Fatalf("pruned key must be gone")
	}
	if has, _ := s.HasDelivered(ctx, "t1|merged|b"); !has {
		t.Fatalf("recent key must survive prune")
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s := openTestStore(t, path)
	if err := s.PutDelivered(ctx, "t1|commented|a", time.Now()); err != nil {
		t.Fatalf("PutDelivered: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openTestStore(t, path)
	defer s2.Close()
	has, err := s2.HasDelivered(ctx, "t1|commented|a")
	if err != nil {
		t.Fatalf("HasDelivered: %v", err)
	}
	if !has {
		t.Fatalf("journal replay must restore delivered keys")
	}
}

func TestFileStoreSkipsTornJournalLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	journal := filepath.Join(dir, "ledger.delivered.journal.jsonl")

	body := `{"key":"good","at":1724000000000}` + "\n" + `{"key":"torn`
	if err := os.WriteFile(journal, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := openTestStore(t, path)
	defer s.Close()

	if has, _ := s.HasDelivered(context.Background(), "good"); !has {
		t.Fatalf("intact journal line must be replayed")
	}
	if has, _ := s.HasDelivered(context.Background(), "torn"); has {
		t.Fatalf("torn journal line must be skipped")
	}
}
