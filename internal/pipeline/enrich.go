package pipeline

import (
	"context"
	"regexp"
	"strconv"

	"ghwatch/internal/github"
	logx "ghwatch/pkg/logx"
)

// TimelineLister is the external collaborator that fetches raw
// timeline events for one issue or pull request.
type TimelineLister interface {
	ListTimeline(ctx context.Context, repo string, number, perPage int) ([]github.TimelineEvent, error)
}

const defaultTimelinePageSize = 50

// Enricher fills Thread.Activities for Issue and PullRequest threads.
type Enricher struct {
	timeline TimelineLister
	pageSize int
	log      logx.Logger
}

func NewEnricher(timeline TimelineLister, pageSize int, log logx.Logger) *Enricher {
	if pageSize <= 0 {
		pageSize = defaultTimelinePageSize
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Enricher{timeline: timeline, pageSize: pageSize, log: log}
}

// issueNumberRe matches the trailing issue/PR number on a subject API
// locator, e.g. .../repos/o/r/issues/42 or .../repos/o/r/pulls/42.
var issueNumberRe = regexp.MustCompile(`/(?:issues|pulls)/(\d+)$`)

// IssueNumber extracts the numeric identifier from a subject API
// locator. Returns 0 when the locator has no recognizable number.
func IssueNumber(subjectURL string) int {
	m := issueNumberRe.FindStringSubmatch(subjectURL)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Enrich fetches and shapes the activity list for one thread in
// place. Non-Issue/PullRequest subjects and locators without a number
// are a no-op. A fetch failure is logged and leaves the thread with
// zero activities; the caller falls back to a thread-level alert.
func (e *Enricher) Enrich(ctx context.Context, t *Thread) {
	if t.Subject.Kind != SubjectIssue && t.Subject.Kind != SubjectPullRequest {
		return
	}
	num := IssueNumber(t.Subject.URL)
	if num == 0 {
		return
	}

	events, err := e.timeline.ListTimeline(ctx, t.Repo.FullName, num, e.pageSize)
	if err != nil {
		e.log.Warn("timeline fetch failed; thread falls back to thread-level alert",
			logx.String("repo", t.Repo.FullName),
			logx.Int("number", num),
			logx.Err(err))
		return
	}
	t.Activities = ShapeTimeline(events)
}

// ShapeTimeline converts raw timeline events (oldest first) into
// activities, dropping unknown kinds. The feed emits a synthetic
// "closed" right after "merged" for merged PRs; that trailing closed
// is suppressed so a merge is not double-reported.
func ShapeTimeline(events []github.TimelineEvent) []Activity {
	acts := make([]Activity, 0, len(events))
	for _, ev := range events {
		a, ok := shapeEvent(ev)
		if !ok {
			continue
		}
		if a.Event == EventClosed && len(acts) > 0 && acts[len(acts)-1].Event == EventMerged {
			continue
		}
		acts = append(acts, a)
	}
	return acts
}

func shapeEvent(ev github.TimelineEvent) (Activity, bool) {
	a := Activity{CreatedAt: ev.When(), Actor: ev.Who()}

	switch ev.Event {
	case "committed":
		a.Event = EventCommitted
		c := CommitDetail{}
		if ev.Author != nil {
			c.Author = ev.Author.Name
		}
		if ev.Committer != nil {
			c.Committer = ev.Committer.Name
		}
		a.Commit = &c
	case "reviewed":
		a.Event = EventReviewed
		a.Review = &ReviewDetail{State: ev.State}
		a.Body = ev.Body
	case "commented":
		a.Event = EventCommented
		a.Body = ev.Body
	case "line-commented":
		a.Event = EventLineCommented
		a.Body = ev.Body
	case "assigned":
		a.Event = EventAssigned
		a.Assign = assignDetail(ev)
	case "unassigned":
		a.Event = EventUnassigned
		a.Assign = assignDetail(ev)
	case "review_requested":
		a.Event = EventReviewRequested
		a.ReviewRequest = reviewRequestDetail(ev)
	case "review_request_removed":
		a.Event = EventReviewRequestRemoved
		a.ReviewRequest = reviewRequestDetail(ev)
	case "closed":
		a.Event = EventClosed
	case "reopened":
		a.Event = EventReopened
	case "merged":
		a.Event = EventMerged
	default:
		return Activity{}, false
	}
	return a, true
}

func assignDetail(ev github.TimelineEvent) *AssignDetail {
	d := &AssignDetail{}
	if ev.Assignee != nil {
		d.Assignee = ev.Assignee.Login
	}
	return d
}

func reviewRequestDetail(ev github.TimelineEvent) *ReviewRequestDetail {
	d := &ReviewRequestDetail{}
	if ev.RequestedReviewer != nil {
		d.Reviewer = ev.RequestedReviewer.Login
	}
	if ev.RequestedTeam != nil {
		d.Team = ev.RequestedTeam.Name
	}
	return d
}
