package github

import "time"

// RawThread is one notification thread as returned by
// GET /notifications.
type RawThread struct {
	ID         string     `json:"id"`
	Reason     string     `json:"reason"`
	Unread     bool       `json:"unread"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Subject    RawSubject `json:"subject"`
	Repository RawRepo    `json:"repository"`
}

type RawSubject struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	LatestCommentURL string `json:"latest_comment_url"`
	Type             string `json:"type"`
}

type RawRepo struct {
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	Private  bool    `json:"private"`
	HTMLURL  string  `json:"html_url"`
	Owner    UserRef `json:"owner"`
}

type UserRef struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type TeamRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CommitIdent is the author/committer identity on "committed"
// timeline events. These carry a name and date but no login.
type CommitIdent struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// TimelineEvent is one raw event from
// GET /repos/{repo}/issues/{n}/timeline.
//
// The populated fields depend on Event: reviews carry User, State,
// SubmittedAt and Body; commits carry Author/Committer; comments carry
// User, CreatedAt and Body; and so on. Unknown event strings are
// dropped during shaping.
type TimelineEvent struct {
	Event       string     `json:"event"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	Actor *UserRef `json:"actor"`
	User  *UserRef `json:"user"`

	State string `json:"state"`
	Body  string `json:"body"`

	Author    *CommitIdent `json:"author"`
	Committer *CommitIdent `json:"committer"`

	Assignee          *UserRef `json:"assignee"`
	RequestedReviewer *UserRef `json:"requested_reviewer"`
	RequestedTeam     *TeamRef `json:"requested_team"`
}

// When returns the best event timestamp: created_at, falling back to
// submitted_at (reviews) and the committer date (commits).
func (e TimelineEvent) When() time.Time {
	if !e.CreatedAt.IsZero() {
		return e.CreatedAt
	}
	if e.SubmittedAt != nil && !e.SubmittedAt.IsZero() {
		return *e.SubmittedAt
	}
	if e.Committer != nil && !e.Committer.Date.IsZero() {
		return e.Committer.Date
	}
	if e.Author != nil && !e.Author.Date.IsZero() {
		return e.Author.Date
	}
	return time.Time{}
}

// Who returns the acting login for the event, if any.
func (e TimelineEvent) Who() string {
	if e.Actor != nil && e.Actor.Login != "" {
		return e.Actor.Login
	}
	if e.User != nil {
		return e.User.Login
	}
	return ""
}

// workflowRunsResponse is the shape of
// GET /repos/{repo}/actions/runs.
type workflowRunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

type WorkflowRun struct {
	ID         int64     `json:"id"`
	HeadBranch string    `json:"head_branch"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type viewerResponse struct {
	Login string `json:"login"`
}
