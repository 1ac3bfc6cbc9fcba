package domain

import "strings"

// Parameter names recognized in an incoming query.
const (
	ParamSkill        = "Skill"
	ParamLocation     = "Location"
	ParamAvailability = "Availability"
)

// Filter field keys as they appear in store predicates.
const (
	FieldSkills       = "skills"
	FieldLocation     = "location"
	FieldAvailability = "availability"
)

// Parameter is one name/value pair supplied by the caller.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Query is the caller's ordered parameter list. Names may repeat or be
// missing entirely.
type Query []Parameter

// Value returns the first value supplied under name.
func (q Query) Value(name string) (string, bool) {
	for _, p := range q {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Availability is a tri-state flag: unset, available, or unavailable.
type Availability uint8

const (
	AvailabilityUnset Availability = iota
	AvailabilityAvailable
	AvailabilityUnavailable
)

// AvailabilityOf wraps a known boolean.
func AvailabilityOf(available bool) Availability {
	if available {
		return AvailabilityAvailable
	}
	return AvailabilityUnavailable
}

// ParseAvailability maps exactly "true" and "false"; every other input is
// unset rather than false.
func ParseAvailability(raw string) Availability {
	switch raw {
	case "true":
		return AvailabilityAvailable
	case "false":
		return AvailabilityUnavailable
	default:
		return AvailabilityUnset
	}
}

// Bool reports the flag value and whether it is set.
func (a Availability) Bool() (value bool, ok bool) {
	switch a {
	case AvailabilityAvailable:
		return true, true
	case AvailabilityUnavailable:
		return false, true
	default:
		return false, false
	}
}

// IsSet reports whether a value is present.
func (a Availability) IsSet() bool {
	return a == AvailabilityAvailable || a == AvailabilityUnavailable
}

// String returns "true", "false" or "" for unset.
func (a Availability) String() string {
	v, ok := a.Bool()
	if !ok {
		return ""
	}
	if v {
		return "true"
	}
	return "false"
}

// Filter is the canonical search filter. An empty Skills or Location means
// the key is absent.
type Filter struct {
	// Skills is the raw comma-separated list exactly as supplied.
	Skills       string
	Location     string
	Availability Availability
}

// FilterField is one string equality constraint.
type FilterField struct {
	Key   string
	Value string
}

// BuildFilter turns raw parameters into a Filter. It never fails: unknown
// names are ignored and malformed values leave their key absent.
func BuildFilter(query Query) Filter {
	var filter Filter
	if skills, ok := query.Value(ParamSkill); ok && skills != "" {
		filter.Skills = skills
	}
	if location, ok := query.Value(ParamLocation); ok && location != "" {
		filter.Location = location
	}
	if raw, ok := query.Value(ParamAvailability); ok {
		filter.Availability = ParseAvailability(raw)
	}
	return filter
}

// HasSkills reports whether the skills key is present.
func (f Filter) HasSkills() bool {
	return f.Skills != ""
}

// IsEmpty reports whether no key is present.
func (f Filter) IsEmpty() bool {
	return f.Skills == "" && f.Location == "" && !f.Availability.IsSet()
}

// EqualityFields returns the string constraints other than skills and
// availability, in key order.
func (f Filter) EqualityFields() []FilterField {
	var fields []FilterField
	if f.Location != "" {
		fields = append(fields, FilterField{Key: FieldLocation, Value: f.Location})
	}
	return fields
}

// SkillTokens splits the raw skills string on commas, trimming and
// case-folding each token. Empty tokens are dropped.
func (f Filter) SkillTokens() []string {
	return SkillTokens(f.Skills)
}

// String renders the present keys for logs.
func (f Filter) String() string {
	parts := make([]string, 0, 3)
	if f.Skills != "" {
		parts = append(parts, FieldSkills+"="+f.Skills)
	}
	if f.Location != "" {
		parts = append(parts, FieldLocation+"="+f.Location)
	}
	if f.Availability.IsSet() {
		parts = append(parts, FieldAvailability+"="+f.Availability.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
