package config

import (
	"fmt"
	"regexp"
	"strings"

	"ghwatch/internal/pipeline"
)

// CompileThreadRules turns the declarative skip rules into ordered
// predicates. Invalid patterns are a config error, caught at load or
// by the reload validator, never mid-poll.
func CompileThreadRules(rules []ThreadRule) ([]pipeline.ThreadPredicate, error) {
	preds := make([]pipeline.ThreadPredicate, 0, len(rules))
	for i, r := range rules {
		r := r
		var titleRe *regexp.Regexp
		if r.TitlePattern != "" {
			re, err := regexp.Compile(r.TitlePattern)
			if err != nil {
				return nil, fmt.Errorf("skip_threads[%d].title_pattern: %w", i, err)
			}
			titleRe = re
		}
		preds = append(preds, func(t pipeline.ThreadView) bool {
			if r.Repo != "" && !matchRepo(r.Repo, t.Repo.FullName) {
				return false
			}
			if r.Reason != "" && r.Reason != t.Reason {
				return false
			}
			if r.SubjectType != "" && r.SubjectType != t.Subject.Kind {
				return false
			}
			if titleRe != nil && !titleRe.MatchString(t.Subject.Title) {
				return false
			}
			return true
		})
	}
	return preds, nil
}

// CompileActivityRules turns the declarative drop rules into ordered
// predicates.
func CompileActivityRules(rules []ActivityRule) ([]pipeline.ActivityPredicate, error) {
	preds := make([]pipeline.ActivityPredicate, 0, len(rules))
	for i, r := range rules {
		r := r
		var bodyRe *regexp.Regexp
		if r.BodyPattern != "" {
			re, err := regexp.Compile(r.BodyPattern)
			if err != nil {
				return nil, fmt.Errorf("skip_activities[%d].body_pattern: %w", i, err)
			}
			bodyRe = re
		}
		preds = append(preds, func(t pipeline.ThreadView, a pipeline.ActivityView) bool {
			if r.Actor != "" && !matchActor(r.Actor, a.Actor) {
				return false
			}
			if r.Event != "" && r.Event != string(a.Event) {
				return false
			}
			if r.ReviewState != "" && r.ReviewState != a.ReviewState {
				return false
			}
			if bodyRe != nil && !bodyRe.MatchString(a.Body) {
				return false
			}
			return true
		})
	}
	return preds, nil
}

// matchRepo supports exact full names and an "owner/*" wildcard.
func matchRepo(pattern, fullName string) bool {
	if owner, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(fullName, owner+"/")
	}
	return pattern == fullName
}

// matchActor supports exact logins and a "*suffix" match, mainly for
// "*[bot]".
func matchActor(pattern, login string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(login, suffix)
	}
	return pattern == login
}
