package domain

import "strings"

// Candidate is one person returned by a source, normalized so the
// aggregator does not need to know where it came from.
type Candidate struct {
	ID           string
	DisplayName  string
	Skills       []string
	Location     string
	Availability Availability
}

// SkillSummary joins skills for display.
func (c Candidate) SkillSummary() string {
	return strings.Join(c.Skills, ", ")
}

// Merge unions directory and table candidates by ID. The directory record
// wins on a duplicate ID. Directory candidates keep their order and
// unmatched table candidates follow in theirs. Candidates without an ID are
// kept as distinct entries.
func Merge(directory, table []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(directory)+len(table))
	seen := make(map[string]struct{}, len(directory)+len(table))
	for _, group := range [][]Candidate{directory, table} {
		for _, candidate := range group {
			if candidate.ID != "" {
				if _, ok := seen[candidate.ID]; ok {
					continue
				}
				seen[candidate.ID] = struct{}{}
			}
			merged = append(merged, candidate.clone())
		}
	}
	return merged
}

func (c Candidate) clone() Candidate {
	if c.Skills != nil {
		c.Skills = append([]string(nil), c.Skills...)
	}
	return c
}
