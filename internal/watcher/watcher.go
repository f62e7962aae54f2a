package watcher

import (
	"context"
	"runtime/debug"
	"time"

	"ghwatch/internal/pipeline"
	logx "ghwatch/pkg/logx"
)

const (
	defaultPollInterval = 60 * time.Second
	minPollInterval     = 10 * time.Second
)

type Config struct {
	// DefaultInterval is used when the feed advises no poll interval.
	DefaultInterval time.Duration
}

// Service drives the poll loop: one cycle at a time, never
// overlapping, sleeping the feed-advised interval between cycles.
// A failing cycle is logged and the loop stays on schedule; only
// context cancellation stops it.
type Service struct {
	pipe *pipeline.Pipeline
	log  logx.Logger
	cfg  Config

	// keepalive is poked after every completed cycle (systemd
	// watchdog when running under systemd).
	keepalive func()

	// maintenance requests queued by the cron scheduler; drained by
	// the loop between cycles so cache upkeep never races a cycle.
	upkeep chan upkeepTask
}

type upkeepTask func(ctx context.Context)

func New(pipe *pipeline.Pipeline, cfg Config, log logx.Logger) *Service {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = defaultPollInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		pipe:   pipe,
		log:    log,
		cfg:    cfg,
		upkeep: make(chan upkeepTask, 8),
	}
}

// SetKeepalive installs the post-cycle liveness callback.
func (s *Service) SetKeepalive(fn func()) { s.keepalive = fn }

// Run polls until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		interval := s.runOnce(ctx)
		if s.keepalive != nil {
			s.keepalive()
		}

		s.drainUpkeep(ctx)

		delay := interval
		if delay <= 0 {
			delay = s.cfg.DefaultInterval
		}
		if delay < minPollInterval {
			delay = minPollInterval
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce executes one cycle with panic containment, returning the
// feed-advised interval (zero when unknown).
func (s *Service) runOnce(ctx context.Context) (interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("poll cycle panicked",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	interval, err := s.pipe.RunCycle(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Error("poll cycle failed", logx.Err(err))
	}
	return interval
}

// enqueueUpkeep queues a maintenance task for the next inter-cycle
// gap. Dropped (with a log line) when the queue is full.
func (s *Service) enqueueUpkeep(name string, fn upkeepTask) {
	select {
	case s.upkeep <- fn:
	default:
		s.log.Warn("maintenance task dropped (queue full)", logx.String("task", name))
	}
}

func (s *Service) drainUpkeep(ctx context.Context) {
	for {
		select {
		case fn := <-s.upkeep:
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("maintenance task panicked", logx.Any("panic", r))
					}
				}()
				fn(ctx)
			}()
		default:
			return
		}
	}
}
