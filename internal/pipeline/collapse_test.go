package pipeline

import "testing"

func TestCollapseMergeNoMergeEvent(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "alice", CreatedAt: at(0)},
		{Event: EventReviewed, Actor: "carol", CreatedAt: at(1), Review: &ReviewDetail{State: ReviewApproved}},
	}
	out := CollapseMerge(in)
	if len(out) != 2 {
		t.Fatalf("expected no-op, got %d activities", len(out))
	}
}

func TestCollapseMergeAlreadyFirst(t *testing.T) {
	in := []Activity{
		{Event: EventMerged, Actor: "dave", CreatedAt: at(0)},
		{Event: EventCommented, Actor: "alice", CreatedAt: at(1)},
	}
	out := CollapseMerge(in)
	if len(out) != 2 || out[0].PreMergeCount != 0 {
		t.Fatalf("expected no-op when merge is first, got %+v", out)
	}
}

func TestCollapseMergeFoldsPreceding(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "bob", CreatedAt: at(0), Count: 1},
		{Event: EventReviewed, Actor: "carol", CreatedAt: at(5), Count: 1, Review: &ReviewDetail{State: ReviewApproved}},
		{Event: EventMerged, Actor: "dave", CreatedAt: at(10)},
		{Event: EventCommented, Actor: "eve", CreatedAt: at(15)},
	}

	out := CollapseMerge(in)
	if len(out) != 2 {
		t.Fatalf("expected [merged, trailing comment], got %d activities", len(out))
	}
	if out[0].Event != EventMerged || out[0].PreMergeCount != 2 {
		t.Fatalf("expected merge with preMergeCount=2, got %+v", out[0])
	}
	if out[1].Actor != "eve" {
		t.Fatalf("expected trailing activity untouched, got %+v", out[1])
	}
	// Input must be untouched.
	if len(in) != 4 || in[2].PreMergeCount != 0 {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestCollapseMergeCountsFoldedOccurrences(t *testing.T) {
	// Reduced activities carry counts; the fold sums occurrences,
	// not records.
	in := []Activity{
		{Event: EventCommented, Actor: "bob", CreatedAt: at(0), Count: 3},
		{Event: EventMerged, Actor: "dave", CreatedAt: at(10)},
	}
	out := CollapseMerge(in)
	if len(out) != 1 || out[0].PreMergeCount != 3 {
		t.Fatalf("expected preMergeCount=3, got %+v", out)
	}
}
