package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "ghwatch/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "file": dependency-free file backend (jsonl + snapshot)
//
// If Driver is empty or "none", storage is disabled and the delivery
// ledger lives in memory only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the delivery gate.
type Store interface {
	PutDelivered(ctx context.Context, key string, at time.Time) error
	HasDelivered(ctx context.Context, key string) (bool, error)
	// PruneDeliveredBefore deletes ledger entries recorded before the
	// cutoff and returns how many were removed.
	PruneDeliveredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
