package pipeline

// CollapseMerge folds everything preceding the first merged event
// into that event's PreMergeCount and drops the preceding activities.
// A flurry of reviews and comments followed by a merge reads better
// as one "merged (+n earlier)" alert than as n+1 separate ones.
//
// No-op when the list has no merged event or the merge is already
// first. The input slice is not mutated.
func CollapseMerge(in []Activity) []Activity {
	idx := -1
	for i, a := range in {
		if a.Event == EventMerged {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return in
	}

	folded := 0
	for _, a := range in[:idx] {
		folded += a.Occurrences()
	}

	merge := in[idx]
	merge.PreMergeCount += folded

	out := make([]Activity, 0, len(in)-idx)
	out = append(out, merge)
	out = append(out, in[idx+1:]...)
	return out
}
