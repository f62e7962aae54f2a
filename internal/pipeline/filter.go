package pipeline

import (
	logx "ghwatch/pkg/logx"
)

// ThreadPredicate reports whether a thread should be skipped.
// Predicates see a read-only view and must not keep references to it
// beyond the call.
type ThreadPredicate func(t ThreadView) bool

// ActivityPredicate reports whether an activity should be dropped.
type ActivityPredicate func(t ThreadView, a ActivityView) bool

// FilterThreads partitions threads into kept and skipped.
//
// Read threads are dropped from both sets. A thread is skipped when
// any predicate returns true. A panicking predicate is recovered,
// logged, and treated as "keep" so user filters can never abort a
// poll cycle.
func FilterThreads(threads []Thread, preds []ThreadPredicate, log logx.Logger) (kept, skipped []Thread) {
	for _, t := range threads {
		if !t.Unread {
			continue
		}
		if anyThreadMatch(t.View(), preds, log) {
			skipped = append(skipped, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, skipped
}

func anyThreadMatch(v ThreadView, preds []ThreadPredicate, log logx.Logger) bool {
	for i, p := range preds {
		if p == nil {
			continue
		}
		if safeThreadPred(p, v, i, log) {
			return true
		}
	}
	return false
}

func safeThreadPred(p ThreadPredicate, v ThreadView, idx int, log logx.Logger) (skip bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("thread skip predicate panicked; keeping thread",
				logx.Int("predicate", idx),
				logx.String("thread", v.ID),
				logx.Any("panic", r))
			skip = false
		}
	}()
	return p(v)
}

// FilterActivities drops the viewer's own activity, then applies the
// skip predicates in order. A panicking predicate is recovered and
// treated as "keep".
func FilterActivities(t Thread, acts []Activity, viewer string, preds []ActivityPredicate, log logx.Logger) []Activity {
	tv := t.View()
	out := make([]Activity, 0, len(acts))
	for _, a := range acts {
		if viewer != "" && a.Actor == viewer {
			continue
		}
		if anyActivityMatch(tv, a.View(), preds, log) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func anyActivityMatch(tv ThreadView, av ActivityView, preds []ActivityPredicate, log logx.Logger) bool {
	for i, p := range preds {
		if p == nil {
			continue
		}
		if safeActivityPred(p, tv, av, i, log) {
			return true
		}
	}
	return false
}

func safeActivityPred(p ActivityPredicate, tv ThreadView, av ActivityView, idx int, log logx.Logger) (drop bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("activity skip predicate panicked; keeping activity",
				logx.Int("predicate", idx),
				logx.String("thread", tv.ID),
				logx.String("event", string(av.Event)),
				logx.Any("panic", r))
			drop = false
		}
	}()
	return p(tv, av)
}
