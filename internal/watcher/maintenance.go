package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	logx "ghwatch/pkg/logx"
)

const defaultLedgerRetention = 720 * time.Hour // 30 days

// MaintenanceConfig holds the background upkeep schedules. Specs use
// the standard 5-field cron syntax or descriptors like "@every 24h".
type MaintenanceConfig struct {
	LedgerPrune        string
	LedgerRetention    time.Duration
	WorkflowCacheReset string
}

// StartMaintenance registers the upkeep schedules. The cron entries
// only enqueue work; the tasks themselves run in the poll loop's
// inter-cycle gap, so they never race a running cycle over the gate
// or the workflow-pass cache.
//
// Returns a stop function (nil error) or a spec parse error.
func (s *Service) StartMaintenance(cfg MaintenanceConfig) (stop func(), err error) {
	retention := cfg.LedgerRetention
	if retention <= 0 {
		retention = defaultLedgerRetention
	}

	c := cron.New()

	if cfg.LedgerPrune != "" {
		_, err := c.AddFunc(cfg.LedgerPrune, func() {
			s.enqueueUpkeep("ledger-prune", func(ctx context.Context) {
				cutoff := time.Now().Add(-retention)
				removed := s.pipe.Gate().Prune(ctx, cutoff)
				s.log.Info("delivery ledger pruned",
					logx.Int("removed", removed),
					logx.Time("cutoff", cutoff),
					logx.Int("remaining", s.pipe.Gate().Size()))
			})
		})
		if err != nil {
			return nil, fmt.Errorf("maintenance.ledger_prune: %w", err)
		}
	}

	if cfg.WorkflowCacheReset != "" {
		_, err := c.AddFunc(cfg.WorkflowCacheReset, func() {
			s.enqueueUpkeep("workflow-cache-reset", func(ctx context.Context) {
				_ = ctx
				n := s.pipe.Workflow().CacheSize()
				s.pipe.Workflow().Reset()
				s.log.Info("workflow-pass cache reset", logx.Int("entries", n))
			})
		})
		if err != nil {
			return nil, fmt.Errorf("maintenance.workflow_cache_reset: %w", err)
		}
	}

	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
