package pipeline

import (
	"context"
	"regexp"

	logx "ghwatch/pkg/logx"
)

// RunChecker is the external collaborator answering "what did the
// latest completed workflow run on this branch conclude?".
type RunChecker interface {
	LatestRunConclusion(ctx context.Context, repo, branch string) (string, error)
}

// WorkflowPassFilter suppresses CI notifications whose branch has
// since passed: the failure that triggered the notification is stale.
//
// The (repo, branch) cache is populated lazily on first lookup and
// kept for the process lifetime (a scheduled Reset can be configured
// to trade staleness for extra feed calls). It is unlocked: lookups
// happen on the single-flight poll loop and Reset runs in the
// inter-cycle gap, so no two accessors ever overlap.
type WorkflowPassFilter struct {
	runs RunChecker
	log  logx.Logger

	cache map[string]bool // repo|branch -> latest completed run succeeded
}

func NewWorkflowPassFilter(runs RunChecker, log logx.Logger) *WorkflowPassFilter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &WorkflowPassFilter{
		runs:  runs,
		log:   log,
		cache: make(map[string]bool),
	}
}

// branchRe pulls the branch name out of CI notification subject
// titles, e.g. `CI workflow run failed for 'main' branch`. The
// unquoted form some feeds emit is accepted as a fallback.
var (
	branchQuotedRe = regexp.MustCompile(`for '([^']+)' branch`)
	branchBareRe   = regexp.MustCompile(`for ([^\s']+) branch`)
)

// BranchFromTitle extracts a branch name from a CI subject title, or
// "" when none is recognizable.
func BranchFromTitle(title string) string {
	if m := branchQuotedRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	if m := branchBareRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return ""
}

// ShouldSkip reports whether a CI notification should be suppressed
// because the branch's latest completed run succeeded. Non-CI
// subjects, titles without an extractable branch, and lookup errors
// never skip.
func (f *WorkflowPassFilter) ShouldSkip(ctx context.Context, t Thread) bool {
	if t.Subject.Kind != SubjectWorkflowRun && t.Subject.Kind != SubjectCheckSuite {
		return false
	}
	branch := BranchFromTitle(t.Subject.Title)
	if branch == "" {
		return false
	}

	key := t.Repo.FullName + "|" + branch
	if passed, ok := f.cache[key]; ok {
		return passed
	}

	conclusion, err := f.runs.LatestRunConclusion(ctx, t.Repo.FullName, branch)
	if err != nil {
		f.log.Warn("workflow run lookup failed; not suppressing",
			logx.String("repo", t.Repo.FullName),
			logx.String("branch", branch),
			logx.Err(err))
		return false
	}

	passed := conclusion == "success"
	f.cache[key] = passed
	return passed
}

// Reset clears the cache so subsequent lookups hit the feed again.
func (f *WorkflowPassFilter) Reset() {
	f.cache = make(map[string]bool)
}

// CacheSize returns the number of cached (repo, branch) entries.
func (f *WorkflowPassFilter) CacheSize() int { return len(f.cache) }
