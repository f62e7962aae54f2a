package pipeline

import (
	"fmt"
	"strings"
)

// Alert is one rendered notification handed to the sinks.
type Alert struct {
	Title    string
	Body     string
	URL      string
	ThreadID string
}

// FormatConfig carries the display-name alias maps.
type FormatConfig struct {
	RepoAliases map[string]string // full name -> display name
	UserAliases map[string]string // login -> display name
}

func (c FormatConfig) repoName(r Repository) string {
	if alias, ok := c.RepoAliases[r.FullName]; ok && alias != "" {
		return alias
	}
	if r.Name != "" {
		return r.Name
	}
	// Strip the owner from the full name as a last resort.
	if i := strings.IndexByte(r.FullName, '/'); i >= 0 {
		return r.FullName[i+1:]
	}
	return r.FullName
}

func (c FormatConfig) userName(login string) string {
	if alias, ok := c.UserAliases[login]; ok && alias != "" {
		return alias
	}
	if login == "" {
		return "Someone"
	}
	return login
}

// FormatActivity renders the title/body for one reduced activity.
// Returns nil for event kinds without a template, meaning: suppress.
func FormatActivity(t Thread, a Activity, cfg FormatConfig, viewer string) *Alert {
	title := activityTitle(t, a, cfg, viewer)
	if title == "" {
		return nil
	}

	body := "in " + cfg.repoName(t.Repo)
	if b := strings.TrimSpace(a.Body); b != "" {
		body += ": " + b
	}

	return &Alert{
		Title:    title,
		Body:     body,
		URL:      t.Subject.HTMLURL,
		ThreadID: t.ID,
	}
}

func activityTitle(t Thread, a Activity, cfg FormatConfig, viewer string) string {
	actor := cfg.userName(a.Actor)
	subject := t.Subject.Title
	plural := a.Occurrences() > 1

	switch a.Event {
	case EventCommented:
		if plural {
			return fmt.Sprintf("%s left comments on %q", actor, subject)
		}
		return fmt.Sprintf("%s commented on %q", actor, subject)

	case EventLineCommented:
		if plural {
			return fmt.Sprintf("%s left comments on code in %q", actor, subject)
		}
		return fmt.Sprintf("%s commented on code in %q", actor, subject)

	case EventReviewed:
		switch a.ReviewState() {
		case ReviewApproved:
			return fmt.Sprintf("%s approved %q", actor, subject)
		case ReviewChangesRequested:
			return fmt.Sprintf("%s requested changes on %q", actor, subject)
		case ReviewDismissed:
			return fmt.Sprintf("%s dismissed a review on %q", actor, subject)
		default:
			if plural {
				return fmt.Sprintf("%s left reviews on %q", actor, subject)
			}
			return fmt.Sprintf("%s left a review on %q", actor, subject)
		}

	case EventReviewRequested:
		if a.ReviewRequest != nil {
			if a.ReviewRequest.Team != "" {
				return fmt.Sprintf("%s requested a review from %s on %q", actor, a.ReviewRequest.Team, subject)
			}
			if a.ReviewRequest.Reviewer != "" && a.ReviewRequest.Reviewer == viewer {
				return fmt.Sprintf("%s requested your review on %q", actor, subject)
			}
			if a.ReviewRequest.Reviewer != "" {
				return fmt.Sprintf("%s requested a review from %s on %q", actor, cfg.userName(a.ReviewRequest.Reviewer), subject)
			}
		}
		return fmt.Sprintf("%s requested a review on %q", actor, subject)

	case EventReviewRequestRemoved:
		return fmt.Sprintf("%s removed a review request on %q", actor, subject)

	case EventAssigned:
		if a.Assign != nil && a.Assign.Assignee != "" {
			switch a.Assign.Assignee {
			case a.Actor:
				return fmt.Sprintf("%s assigned themselves to %q", actor, subject)
			case viewer:
				return fmt.Sprintf("%s assigned you to %q", actor, subject)
			default:
				return fmt.Sprintf("%s assigned %s to %q", actor, cfg.userName(a.Assign.Assignee), subject)
			}
		}
		return fmt.Sprintf("%s updated assignees on %q", actor, subject)

	case EventUnassigned:
		if a.Assign != nil && a.Assign.Assignee != "" {
			if a.Assign.Assignee == a.Actor {
				return fmt.Sprintf("%s unassigned themselves from %q", actor, subject)
			}
			return fmt.Sprintf("%s unassigned %s from %q", actor, cfg.userName(a.Assign.Assignee), subject)
		}
		return fmt.Sprintf("%s updated assignees on %q", actor, subject)

	case EventCommitted:
		who := cfg.userName(a.CommitName())
		if plural {
			return fmt.Sprintf("%s pushed commits to %q", who, subject)
		}
		return fmt.Sprintf("%s pushed a commit to %q", who, subject)

	case EventClosed:
		return fmt.Sprintf("%s closed %q", actor, subject)

	case EventReopened:
		return fmt.Sprintf("%s reopened %q", actor, subject)

	case EventMerged:
		if a.PreMergeCount > 0 {
			return fmt.Sprintf("%s merged %q + earlier activities", actor, subject)
		}
		return fmt.Sprintf("%s merged %q", actor, subject)
	}
	return ""
}

// FormatThread renders the fallback alert used when enrichment
// produced no activities. The title derives from (subject kind,
// reason); CI subjects keep their feed title and get the branch in
// the body when one is extractable.
func FormatThread(t Thread, cfg FormatConfig) *Alert {
	repo := cfg.repoName(t.Repo)

	body := "in " + repo
	var title string

	switch t.Subject.Kind {
	case SubjectCheckSuite, SubjectWorkflowRun:
		title = t.Subject.Title
		if branch := BranchFromTitle(t.Subject.Title); branch != "" {
			body += ": " + branch
		}
	case SubjectRelease:
		title = fmt.Sprintf("New release %q", t.Subject.Title)
	case SubjectDiscussion:
		title = fmt.Sprintf("New activity in discussion %q", t.Subject.Title)
	case SubjectCommit:
		title = fmt.Sprintf("New activity on commit %q", t.Subject.Title)
	case SubjectPullRequest:
		switch t.Reason {
		case "review_requested":
			title = fmt.Sprintf("Your review is requested on %q", t.Subject.Title)
		case "author":
			title = fmt.Sprintf("Activity on your pull request %q", t.Subject.Title)
		case "mention":
			title = fmt.Sprintf("You were mentioned on %q", t.Subject.Title)
		default:
			title = fmt.Sprintf("New activity on %q", t.Subject.Title)
		}
	case SubjectIssue:
		switch t.Reason {
		case "author":
			title = fmt.Sprintf("Activity on your issue %q", t.Subject.Title)
		case "mention":
			title = fmt.Sprintf("You were mentioned on %q", t.Subject.Title)
		case "assign":
			title = fmt.Sprintf("You were assigned to %q", t.Subject.Title)
		default:
			title = fmt.Sprintf("New activity on %q", t.Subject.Title)
		}
	default:
		title = fmt.Sprintf("New activity on %q", t.Subject.Title)
	}

	return &Alert{
		Title:    title,
		Body:     body,
		URL:      t.Subject.HTMLURL,
		ThreadID: t.ID,
	}
}
