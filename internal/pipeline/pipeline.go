package pipeline

import (
	"context"
	"sync"
	"time"

	"ghwatch/internal/github"
	logx "ghwatch/pkg/logx"
)

// Feed is the notifications feed collaborator.
type Feed interface {
	ListNotifications(ctx context.Context, since time.Time) ([]github.RawThread, time.Duration, error)
}

// Identity resolves the authenticated viewer's login.
type Identity interface {
	Viewer(ctx context.Context) (string, error)
}

// ReadMarker marks a thread read upstream. Calls are fire-and-forget;
// failures are logged and never affect delivery decisions.
type ReadMarker interface {
	MarkThreadRead(ctx context.Context, threadID string) error
}

// Sink receives rendered alerts.
type Sink interface {
	Deliver(ctx context.Context, a Alert) error
}

// Options is the per-cycle configuration snapshot. It is swapped
// atomically on config reload and read once at the start of a cycle.
type Options struct {
	SkipThreads     []ThreadPredicate
	SkipActivities  []ActivityPredicate
	MarkSkippedRead bool
	CollapseMerged  bool
	Format          FormatConfig
}

// Pipeline runs one poll cycle: filter, enrich, reduce, collapse,
// gate, format, deliver. Cycles are strictly single-flight; the
// watcher never starts a cycle before the previous one returned, so
// the gate and workflow cache need no locking against cycles.
type Pipeline struct {
	log      logx.Logger
	feed     Feed
	identity Identity
	marker   ReadMarker
	enricher *Enricher
	workflow *WorkflowPassFilter
	gate     *Gate
	sink     Sink

	mu   sync.Mutex
	opts Options

	// since is the feed cursor: the maximum updatedAt seen so far.
	// The cursor is inclusive, so overlap across polls is expected;
	// the gate absorbs it.
	since time.Time
}

type Deps struct {
	Feed     Feed
	Identity Identity
	Marker   ReadMarker
	Enricher *Enricher
	Workflow *WorkflowPassFilter
	Gate     *Gate
	Sink     Sink
	Log      logx.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{
		log:      log,
		feed:     deps.Feed,
		identity: deps.Identity,
		marker:   deps.Marker,
		enricher: deps.Enricher,
		workflow: deps.Workflow,
		gate:     deps.Gate,
		sink:     deps.Sink,
		opts:     opts,
	}
}

// SetOptions swaps the configuration used by subsequent cycles.
func (p *Pipeline) SetOptions(opts Options) {
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
}

func (p *Pipeline) options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// Gate exposes the delivery gate for maintenance (pruning).
func (p *Pipeline) Gate() *Gate { return p.gate }

// Workflow exposes the workflow-pass filter for maintenance (reset).
func (p *Pipeline) Workflow() *WorkflowPassFilter { return p.workflow }

// RunCycle executes one full poll cycle and returns the feed-advised
// poll interval (zero when the feed gave none). Per-thread failures
// are contained; only a feed list failure aborts the cycle.
func (p *Pipeline) RunCycle(ctx context.Context) (time.Duration, error) {
	opts := p.options()
	start := time.Now()

	viewer := ""
	if p.identity != nil {
		v, err := p.identity.Viewer(ctx)
		if err != nil {
			p.log.Warn("viewer lookup failed; self-activity will not be filtered", logx.Err(err))
		} else {
			viewer = v
		}
	}

	raw, interval, err := p.feed.ListNotifications(ctx, p.since)
	if err != nil {
		return interval, err
	}

	threads := make([]Thread, 0, len(raw))
	maxUpdated := p.since
	for _, r := range raw {
		t := NewThread(r)
		if t.UpdatedAt.After(maxUpdated) {
			maxUpdated = t.UpdatedAt
		}
		threads = append(threads, t)
	}

	kept, skipped := FilterThreads(threads, opts.SkipThreads, p.log)
	if opts.MarkSkippedRead && p.marker != nil {
		for _, t := range skipped {
			if err := p.marker.MarkThreadRead(ctx, t.ID); err != nil {
				p.log.Warn("mark-as-read failed",
					logx.String("thread", t.ID),
					logx.Err(err))
			}
		}
	}

	delivered := 0
	for i := range kept {
		t := &kept[i]

		p.enricher.Enrich(ctx, t)
		enriched := len(t.Activities) > 0

		acts := FilterActivities(*t, t.Activities, viewer, opts.SkipActivities, p.log)
		acts = Reduce(acts)
		if opts.CollapseMerged {
			acts = CollapseMerge(acts)
		}
		t.Activities = acts

		// The thread-level fallback covers threads enrichment could not
		// explain. When enrichment found activities and filtering
		// dropped every one (the viewer's own, or rule-matched), there
		// is nothing the user wants to hear about.
		if enriched && len(t.Activities) == 0 {
			continue
		}

		if p.workflow != nil && p.workflow.ShouldSkip(ctx, *t) {
			p.log.Debug("suppressed: branch has since passed",
				logx.String("thread", t.ID),
				logx.String("title", t.Subject.Title))
			continue
		}

		delivered += p.deliver(ctx, *t, opts, viewer)
	}

	p.since = maxUpdated

	p.log.Info("poll cycle done",
		logx.Int("threads", len(threads)),
		logx.Int("kept", len(kept)),
		logx.Int("skipped", len(skipped)),
		logx.Int("delivered", delivered),
		logx.Duration("took", time.Since(start)))

	return interval, nil
}

// deliver sends one alert per gated activity, or a thread-level
// fallback when enrichment produced none. Returns how many alerts
// reached the sink.
func (p *Pipeline) deliver(ctx context.Context, t Thread, opts Options, viewer string) int {
	n := 0
	if len(t.Activities) == 0 {
		if !p.gate.AllowThread(ctx, t) {
			return 0
		}
		alert := FormatThread(t, opts.Format)
		if alert == nil {
			return 0
		}
		if err := p.sink.Deliver(ctx, *alert); err != nil {
			p.log.Warn("alert delivery failed", logx.String("thread", t.ID), logx.Err(err))
			return 0
		}
		return 1
	}

	for _, a := range t.Activities {
		if !p.gate.AllowActivity(ctx, t, a) {
			continue
		}
		alert := FormatActivity(t, a, opts.Format, viewer)
		if alert == nil {
			continue
		}
		if err := p.sink.Deliver(ctx, *alert); err != nil {
			p.log.Warn("alert delivery failed",
				logx.String("thread", t.ID),
				logx.String("event", string(a.Event)),
				logx.Err(err))
			continue
		}
		n++
	}
	return n
}
