package pipeline

import (
	"context"
	"errors"
	"testing"

	logx "ghwatch/pkg/logx"
)

func TestBranchFromTitle(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"CI workflow run failed for 'main' branch", "main"},
		{"Build workflow run failed for 'feature/retry-budget' branch", "feature/retry-budget"},
		{"CI workflow run failed for main branch", "main"},
		{"CI workflow run failed", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := BranchFromTitle(c.title); got != c.want {
			t.Fatalf("BranchFromTitle(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

type fakeRuns struct {
	conclusion string
	err        error
	calls      int
}

func (f *fakeRuns) LatestRunConclusion(ctx context.Context, repo, branch string) (string, error) {
	f.calls++
	return f.conclusion, f.err
}

func ciThread(id, title string) Thread {
	th := sampleThread(id, true)
	th.Subject.Kind = SubjectWorkflowRun
	th.Subject.Title = title
	return th
}

func TestWorkflowFilterSkipsWhenBranchPassed(t *testing.T) {
	runs := &fakeRuns{conclusion: "success"}
	f := NewWorkflowPassFilter(runs, logx.Nop())

	th := ciThread("1", "CI workflow run failed for 'main' branch")
	if !f.ShouldSkip(context.Background(), th) {
		t.Fatalf("expected skip when latest run succeeded")
	}

	// Second lookup for the same (repo, branch) hits the cache.
	if !f.ShouldSkip(context.Background(), th) {
		t.Fatalf("expected cached skip")
	}
	if runs.calls != 1 {
		t.Fatalf("expected 1 feed call, got %d", runs.calls)
	}
}

func TestWorkflowFilterKeepsWhenStillFailing(t *testing.T) {
	runs := &fakeRuns{conclusion: "failure"}
	f := NewWorkflowPassFilter(runs, logx.Nop())

	th := ciThread("1", "CI workflow run failed for 'main' branch")
	if f.ShouldSkip(context.Background(), th) {
		t.Fatalf("failing branch must not be suppressed")
	}
	if f.CacheSize() != 1 {
		t.Fatalf("negative result must be cached too, got %d entries", f.CacheSize())
	}
}

func TestWorkflowFilterNeverSkipsNonCI(t *testing.T) {
	runs := &fakeRuns{conclusion: "success"}
	f := NewWorkflowPassFilter(runs, logx.Nop())

	th := sampleThread("1", true) // pull request subject
	if f.ShouldSkip(context.Background(), th) {
		t.Fatalf("non-CI subjects must never be suppressed")
	}
	if runs.calls != 0 {
		t.Fatalf("non-CI subjects must not trigger feed calls")
	}
}

func TestWorkflowFilterErrorNeverSkips(t *testing.T) {
	runs := &fakeRuns{err: errors.New("rate limited")}
	f := NewWorkflowPassFilter(runs, logx.Nop())

	th := ciThread("1", "CI workflow run failed for 'main' branch")
	if f.ShouldSkip(context.Background(), th) {
		t.Fatalf("lookup errors must not suppress")
	}
	if f.CacheSize() != 0 {
		t.Fatalf("errors must not be cached")
	}
}

func TestWorkflowFilterReset(t *testing.T) {
	runs := &fakeRuns{conclusion: "success"}
	f := NewWorkflowPassFilter(runs, logx.Nop())

	th := ciThread("1", "CI workflow run failed for 'main' branch")
	f.ShouldSkip(context.Background(), th)
	f.Reset()
	f.ShouldSkip(context.Background(), th)

	if runs.calls != 2 {
		t.Fatalf("expected fresh lookup after reset, got %d calls", runs.calls)
	}
}
