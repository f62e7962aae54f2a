package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "ghwatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.delivered.snapshot.json (periodic snapshot)
//   - <prefix>.delivered.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	journalPath  string

	delivered map[string]int64 // unix milli

	writes int
}

type deliveredRecord struct {
	Key string `json:"key"`
	At  int64  `json:"at"`
}

const compactEvery = 500

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".delivered.snapshot.json"
	journalPath := prefix + ".delivered.journal.jsonl"

	delivered := map[string]int64{}
	_ = loadSnapshot(snapPath, delivered)
	_ = replayJournal(journalPath, delivered)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		journalPath:  journalPath,
		delivered:    delivered,
	}, nil
}

func loadSnapshot(path string, into map[string]int64) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, v := range m {
		into[k] = v
	}
	return nil
}

func replayJournal(path string, into map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec deliveredRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Skip torn writes at the tail.
			continue
		}
		if rec.Key != "" {
			into[rec.Key] = rec.At
		}
	}
	return sc.Err()
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) PutDelivered(ctx context.Context, key string, at time.Time) error {
	_ = ctx
	if key == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return errors.New("journal closed")
	}
	if _, ok := s.delivered[key]; ok {
		return nil
	}
	s.delivered[key] = at.UnixMilli()

	enc := json.NewEncoder(s.journalFile)
	if err := enc.Encode(deliveredRecord{Key: key, At: at.UnixMilli()}); err != nil {
		return err
	}

	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Warn("ledger compaction failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) HasDelivered(ctx context.Context, key string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.delivered[key]
	return ok, nil
}

func (s *fileStore) PruneDeliveredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	ms := cutoff.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, at := range s.delivered {
		if at < ms {
			delete(s.delivered, k)
			removed++
		}
	}
	if removed > 0 {
		if err := s.compactLocked(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// compactLocked writes the in-memory map as a fresh snapshot and
// truncates the journal. Caller holds mu.
func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	b, err := json.Marshal(s.delivered)
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}

	if s.journalFile != nil {
		if err := s.journalFile.Truncate(0); err != nil {
			return err
		}
		if _, err := s.journalFile.Seek(0, 0); err != nil {
			return err
		}
	}
	return nil
}
