package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// SkillTokens splits a comma-separated skill list into trimmed, case-folded
// tokens. Empty tokens are dropped.
func SkillTokens(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	folder := cases.Fold()
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens = append(tokens, folder.String(part))
	}
	return tokens
}

// SplitSkills splits a comma-separated skill list into trimmed values,
// preserving their case.
func SplitSkills(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

// MatchesSkills reports whether any candidate skill equals any requested
// token, ignoring case. With no requested tokens every candidate matches.
func MatchesSkills(candidateSkills []string, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	folder := cases.Fold()
	want := make(map[string]struct{}, len(requested))
	for _, token := range requested {
		want[token] = struct{}{}
	}
	for _, skill := range candidateSkills {
		if _, ok := want[folder.String(strings.TrimSpace(skill))]; ok {
			return true
		}
	}
	return false
}
