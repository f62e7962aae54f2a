package pipeline

import (
	"testing"

	"ghwatch/internal/github"
)

func TestNewThreadRewritesSubjectURL(t *testing.T) {
	cases := []struct {
		name     string
		subject  github.RawSubject
		repoHTML string
		fullName string
		want     string
	}{
		{
			name:     "pull request locator",
			subject:  github.RawSubject{Type: "PullRequest", URL: "https://api.github.com/repos/acme/gizmo/pulls/12"},
			repoHTML: "https://github.com/acme/gizmo",
			want:     "https://github.com/acme/gizmo/pull/12",
		},
		{
			name:     "issue locator",
			subject:  github.RawSubject{Type: "Issue", URL: "https://api.github.com/repos/acme/gizmo/issues/42"},
			repoHTML: "https://github.com/acme/gizmo",
			want:     "https://github.com/acme/gizmo/issues/42",
		},
		{
			name:     "repo html missing, derived from full name",
			subject:  github.RawSubject{Type: "PullRequest", URL: "https://api.github.com/repos/acme/gizmo/pulls/12"},
			fullName: "acme/gizmo",
			want:     "https://github.com/acme/gizmo/pull/12",
		},
		{
			name:     "release falls back to repo page",
			subject:  github.RawSubject{Type: "Release", URL: "https://api.github.com/repos/acme/gizmo/releases/100"},
			repoHTML: "https://github.com/acme/gizmo",
			want:     "https://github.com/acme/gizmo",
		},
		{
			name:    "no repo info at all",
			subject: github.RawSubject{Type: "PullRequest", URL: "https://api.github.com/repos/acme/gizmo/pulls/12"},
			want:    "",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			th := NewThread(github.RawThread{
				ID:      "1",
				Subject: c.subject,
				Repository: github.RawRepo{
					FullName: c.fullName,
					HTMLURL:  c.repoHTML,
				},
			})
			if th.Subject.HTMLURL != c.want {
				t.Fatalf("HTMLURL = %q, want %q", th.Subject.HTMLURL, c.want)
			}
		})
	}
}

func TestAlertCarriesBrowserURL(t *testing.T) {
	th := NewThread(github.RawThread{
		ID:     "1",
		Reason: "subscribed",
		Unread: true,
		Subject: github.RawSubject{
			Type:  "PullRequest",
			Title: "Add retry budget",
			URL:   "https://api.github.com/repos/acme/gizmo/pulls/12",
		},
		Repository: github.RawRepo{
			Name:     "gizmo",
			FullName: "acme/gizmo",
			HTMLURL:  "https://github.com/acme/gizmo",
		},
	})

	act := Activity{Event: EventCommented, Actor: "alice", CreatedAt: at(0)}
	alert := FormatActivity(th, act, FormatConfig{}, "")
	if alert == nil {
		t.Fatalf("expected an alert")
	}
	if alert.URL != "https://github.com/acme/gizmo/pull/12" {
		t.Fatalf("alert URL must be the browser page, got %q", alert.URL)
	}

	fallback := FormatThread(th, FormatConfig{})
	if fallback.URL != "https://github.com/acme/gizmo/pull/12" {
		t.Fatalf("fallback alert URL must be the browser page, got %q", fallback.URL)
	}
}
