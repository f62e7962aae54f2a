package pipeline

import (
	"regexp"
	"strings"
	"time"

	"ghwatch/internal/github"
)

// Subject kinds as reported by the notifications feed.
const (
	SubjectIssue       = "Issue"
	SubjectPullRequest = "PullRequest"
	SubjectDiscussion  = "Discussion"
	SubjectRelease     = "Release"
	SubjectCheckSuite  = "CheckSuite"
	SubjectWorkflowRun = "WorkflowRun"
	SubjectCommit      = "Commit"
)

type Subject struct {
	Kind    string
	Title   string
	URL     string // API locator
	HTMLURL string
}

type Repository struct {
	FullName string // owner/name
	Name     string
	Owner    string
	Private  bool
	HTMLURL  string
}

// Thread is one notification subject. Identity is ID; UpdatedAt is the
// freshness watermark across polls. Activities is empty until
// enrichment runs.
type Thread struct {
	ID         string
	Reason     string
	Subject    Subject
	Repo       Repository
	Unread     bool
	UpdatedAt  time.Time
	Activities []Activity
}

// NewThread maps a raw feed record into the pipeline model.
func NewThread(raw github.RawThread) Thread {
	return Thread{
		ID:     raw.ID,
		Reason: raw.Reason,
		Subject: Subject{
			Kind:    raw.Subject.Type,
			Title:   raw.Subject.Title,
			URL:     raw.Subject.URL,
			HTMLURL: subjectHTMLURL(raw),
		},
		Repo: Repository{
			FullName: raw.Repository.FullName,
			Name:     raw.Repository.Name,
			Owner:    raw.Repository.Owner.Login,
			Private:  raw.Repository.Private,
			HTMLURL:  raw.Repository.HTMLURL,
		},
		Unread:    raw.Unread,
		UpdatedAt: raw.UpdatedAt,
	}
}

var subjectLocatorRe = regexp.MustCompile(`/(issues|pulls)/(\d+)$`)

// subjectHTMLURL derives the page a human can open from the subject's
// API locator. The feed hands out api.github.com JSON endpoints only,
// so tapping one in a sink would render raw JSON; issue and PR
// locators are rewritten onto the repository's html URL and everything
// else falls back to the repository page.
func subjectHTMLURL(raw github.RawThread) string {
	repo := raw.Repository.HTMLURL
	if repo == "" && raw.Repository.FullName != "" {
		repo = "https://github.com/" + raw.Repository.FullName
	}
	repo = strings.TrimRight(repo, "/")

	if m := subjectLocatorRe.FindStringSubmatch(raw.Subject.URL); m != nil && repo != "" {
		kind := m[1]
		if kind == "pulls" {
			kind = "pull"
		}
		return repo + "/" + kind + "/" + m[2]
	}
	return repo
}

// ThreadView is the read-only projection handed to skip predicates.
// It carries scalar copies only; predicates cannot reach the mutable
// activities slice through it.
type ThreadView struct {
	ID        string
	Reason    string
	Subject   Subject
	Repo      Repository
	Unread    bool
	UpdatedAt time.Time
}

func (t Thread) View() ThreadView {
	return ThreadView{
		ID:        t.ID,
		Reason:    t.Reason,
		Subject:   t.Subject,
		Repo:      t.Repo,
		Unread:    t.Unread,
		UpdatedAt: t.UpdatedAt,
	}
}
