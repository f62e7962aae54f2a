package pipeline

import "time"

// Event is the normalized timeline event kind.
type Event string

const (
	EventCommented            Event = "commented"
	EventLineCommented        Event = "line-commented"
	EventReviewed             Event = "reviewed"
	EventReviewRequested      Event = "review-requested"
	EventReviewRequestRemoved Event = "review-request-removed"
	EventAssigned             Event = "assigned"
	EventUnassigned           Event = "unassigned"
	EventCommitted            Event = "committed"
	EventClosed               Event = "closed"
	EventReopened             Event = "reopened"
	EventMerged               Event = "merged"
)

// Review states as reported by the feed.
const (
	ReviewApproved         = "approved"
	ReviewChangesRequested = "changes_requested"
	ReviewCommented        = "commented"
	ReviewDismissed        = "dismissed"
)

type ReviewDetail struct {
	State string
}

type AssignDetail struct {
	Assignee string
}

type ReviewRequestDetail struct {
	Reviewer string
	Team     string
}

type CommitDetail struct {
	Author    string
	Committer string
}

// Activity is one timeline event inside a thread. The Event tag says
// which of the detail pointers is populated; all others are nil.
//
// Count is the number of occurrences reduction folded into this
// record; PreMergeCount is the number of activities a merge absorbed.
type Activity struct {
	Event     Event
	CreatedAt time.Time
	Actor     string

	Review        *ReviewDetail
	Assign        *AssignDetail
	ReviewRequest *ReviewRequestDetail
	Commit        *CommitDetail
	Body          string

	Count         int
	PreMergeCount int
}

// Occurrences returns Count treating the zero value as a single
// occurrence, so freshly enriched activities count as one.
func (a Activity) Occurrences() int {
	if a.Count <= 0 {
		return 1
	}
	return a.Count
}

// CommitName returns the best display name for a commit-push event:
// committer first, author as fallback.
func (a Activity) CommitName() string {
	if a.Commit == nil {
		return ""
	}
	if a.Commit.Committer != "" {
		return a.Commit.Committer
	}
	return a.Commit.Author
}

// ReviewState returns the review state, or "" for non-review events.
func (a Activity) ReviewState() string {
	if a.Review == nil {
		return ""
	}
	return a.Review.State
}

// ActivityView is the read-only projection handed to skip predicates.
type ActivityView struct {
	Event       Event
	CreatedAt   time.Time
	Actor       string
	ReviewState string
	Body        string
	Count       int
}

func (a Activity) View() ActivityView {
	return ActivityView{
		Event:       a.Event,
		CreatedAt:   a.CreatedAt,
		Actor:       a.Actor,
		ReviewState: a.ReviewState(),
		Body:        a.Body,
		Count:       a.Occurrences(),
	}
}
