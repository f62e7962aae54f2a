package pipeline

import (
	"testing"
	"time"
)

func at(min int) time.Time {
	return time.Date(2026, 8, 24, 10, min, 0, 0, time.UTC)
}

func TestReduceMergesSameActorEvent(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "alice", CreatedAt: at(0), Body: "first"},
		{Event: EventCommented, Actor: "alice", CreatedAt: at(5), Body: "second"},
	}

	out := Reduce(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(out))
	}
	a := out[0]
	if a.Count != 2 {
		t.Fatalf("expected count=2, got %d", a.Count)
	}
	if !a.CreatedAt.Equal(at(5)) {
		t.Fatalf("expected later timestamp to win, got %v", a.CreatedAt)
	}
	if a.Body != "second" {
		t.Fatalf("expected last payload to win, got %q", a.Body)
	}
}

func TestReduceNeverMergesDifferentReviewStates(t *testing.T) {
	in := []Activity{
		{Event: EventReviewed, Actor: "carol", CreatedAt: at(0), Review: &ReviewDetail{State: ReviewCommented}},
		{Event: EventReviewed, Actor: "carol", CreatedAt: at(1), Review: &ReviewDetail{State: ReviewApproved}},
	}

	out := Reduce(in)
	if len(out) != 2 {
		t.Fatalf("expected approval and comment review kept apart, got %d activities", len(out))
	}
	for _, a := range out {
		if a.Count != 1 {
			t.Fatalf("expected count=1 per group, got %d", a.Count)
		}
	}
}

func TestReduceGroupsCommitsByCommitterName(t *testing.T) {
	in := []Activity{
		{Event: EventCommitted, CreatedAt: at(0), Commit: &CommitDetail{Committer: "bob"}},
		{Event: EventCommitted, CreatedAt: at(1), Commit: &CommitDetail{Committer: "bob"}},
		{Event: EventCommitted, CreatedAt: at(2), Commit: &CommitDetail{Author: "eve"}},
	}

	out := Reduce(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	if out[0].Count != 2 || out[0].CommitName() != "bob" {
		t.Fatalf("unexpected first group: count=%d name=%q", out[0].Count, out[0].CommitName())
	}
	if out[1].Count != 1 || out[1].CommitName() != "eve" {
		t.Fatalf("unexpected second group: count=%d name=%q", out[1].Count, out[1].CommitName())
	}
}

func TestReduceOrdersByLastOccurrence(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "alice", CreatedAt: at(0)},
		{Event: EventCommented, Actor: "bob", CreatedAt: at(1)},
		{Event: EventCommented, Actor: "alice", CreatedAt: at(2)},
	}

	out := Reduce(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	// bob's group last produced activity at index 1, alice's at index
	// 2, so bob comes first.
	if out[0].Actor != "bob" || out[1].Actor != "alice" {
		t.Fatalf("expected [bob alice], got [%s %s]", out[0].Actor, out[1].Actor)
	}
	if out[1].Count != 2 {
		t.Fatalf("expected alice count=2, got %d", out[1].Count)
	}
}

func TestReduceIsIdempotent(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "alice", CreatedAt: at(0)},
		{Event: EventCommented, Actor: "alice", CreatedAt: at(1)},
		{Event: EventReviewed, Actor: "carol", CreatedAt: at(2), Review: &ReviewDetail{State: ReviewApproved}},
		{Event: EventCommitted, CreatedAt: at(3), Commit: &CommitDetail{Committer: "bob"}},
	}

	once := Reduce(in)
	twice := Reduce(once)

	if len(once) != len(twice) {
		t.Fatalf("length changed on second reduce: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Count != twice[i].Count ||
			once[i].Actor != twice[i].Actor ||
			once[i].Event != twice[i].Event ||
			!once[i].CreatedAt.Equal(twice[i].CreatedAt) {
			t.Fatalf("activity %d changed on second reduce: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	in := []Activity{
		{Event: EventCommented, Actor: "alice", CreatedAt: at(0)},
		{Event: EventCommented, Actor: "alice", CreatedAt: at(1)},
	}
	_ = Reduce(in)
	if in[0].Count != 0 || in[1].Count != 0 {
		t.Fatalf("input mutated: %+v", in)
	}
}
