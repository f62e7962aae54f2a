package pipeline

import "sort"

// Reduce collapses repeated activities into one record per group.
//
// Group keys:
//   - (actor, event) by default
//   - (committer-or-author name, committed) for commit pushes, since
//     commits carry no actor login
//   - (actor, reviewed, state) for reviews, so an approval is never
//     merged with a comment-only review
//
// Within a group the last occurrence's payload wins and Count is the
// sum of folded occurrences. Output order is by each group's last
// occurrence index in the input. Reduce is pure and idempotent:
// running it on its own output changes nothing.
func Reduce(in []Activity) []Activity {
	type group struct {
		rep     Activity
		count   int
		lastIdx int
	}

	groups := make(map[string]*group, len(in))
	keys := make([]string, 0, len(in))

	for i, a := range in {
		k := groupKey(a)
		g, ok := groups[k]
		if !ok {
			groups[k] = &group{rep: a, count: a.Occurrences(), lastIdx: i}
			keys = append(keys, k)
			continue
		}
		g.rep = a
		g.count += a.Occurrences()
		g.lastIdx = i
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return groups[keys[i]].lastIdx < groups[keys[j]].lastIdx
	})

	out := make([]Activity, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		a := g.rep
		a.Count = g.count
		out = append(out, a)
	}
	return out
}

func groupKey(a Activity) string {
	switch a.Event {
	case EventCommitted:
		return "committed|" + a.CommitName()
	case EventReviewed:
		return "reviewed|" + a.Actor + "|" + a.ReviewState()
	default:
		return string(a.Event) + "|" + a.Actor
	}
}
