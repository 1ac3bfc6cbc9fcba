package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query Query
		want  Filter
	}{
		{name: "empty query", query: nil, want: Filter{}},
		{
			name:  "skills copied verbatim",
			query: Query{{Name: ParamSkill, Value: "Go, SQL "}},
			want:  Filter{Skills: "Go, SQL "},
		},
		{
			name:  "empty values omitted",
			query: Query{{Name: ParamSkill, Value: ""}, {Name: ParamLocation, Value: ""}, {Name: ParamAvailability, Value: ""}},
			want:  Filter{},
		},
		{
			name: "all keys",
			query: Query{
				{Name: ParamSkill, Value: "python"},
				{Name: ParamLocation, Value: "Seattle"},
				{Name: ParamAvailability, Value: "true"},
			},
			want: Filter{Skills: "python", Location: "Seattle", Availability: AvailabilityAvailable},
		},
		{
			name:  "availability false",
			query: Query{{Name: ParamAvailability, Value: "false"}},
			want:  Filter{Availability: AvailabilityUnavailable},
		},
		{
			name:  "malformed availability omitted",
			query: Query{{Name: ParamAvailability, Value: "maybe"}},
			want:  Filter{},
		},
		{
			name:  "availability is case sensitive",
			query: Query{{Name: ParamAvailability, Value: "True"}},
			want:  Filter{},
		},
		{
			name:  "unknown names ignored",
			query: Query{{Name: "File", Value: "cv.pdf"}, {Name: "skill", Value: "go"}},
			want:  Filter{},
		},
		{
			name:  "first occurrence wins",
			query: Query{{Name: ParamLocation, Value: "Seattle"}, {Name: ParamLocation, Value: "Lisbon"}},
			want:  Filter{Location: "Seattle"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := BuildFilter(tc.query)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("BuildFilter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildFilterKeyPresenceMatchesParameters(t *testing.T) {
	t.Parallel()

	values := []string{"", "true", "false", "maybe", "Seattle"}
	for _, skill := range values {
		for _, location := range values {
			for _, availability := range append(values, "<absent>") {
				query := Query{
					{Name: ParamSkill, Value: skill},
					{Name: ParamLocation, Value: location},
				}
				if availability != "<absent>" {
					query = append(query, Parameter{Name: ParamAvailability, Value: availability})
				}
				filter := BuildFilter(query)

				if filter.HasSkills() != (skill != "") {
					t.Fatalf("skills present = %v for %q", filter.HasSkills(), skill)
				}
				if (filter.Location != "") != (location != "") {
					t.Fatalf("location present = %q for %q", filter.Location, location)
				}
				value, ok := filter.Availability.Bool()
				switch availability {
				case "true":
					if !ok || !value {
						t.Fatalf("availability = %v/%v, want true", value, ok)
					}
				case "false":
					if !ok || value {
						t.Fatalf("availability = %v/%v, want false", value, ok)
					}
				default:
					if ok {
						t.Fatalf("availability set for %q", availability)
					}
				}
			}
		}
	}
}

func TestFilterEqualityFieldsExcludeSkillsAndAvailability(t *testing.T) {
	t.Parallel()

	filter := Filter{Skills: "go", Location: "Seattle", Availability: AvailabilityAvailable}
	want := []FilterField{{Key: FieldLocation, Value: "Seattle"}}
	if diff := cmp.Diff(want, filter.EqualityFields()); diff != "" {
		t.Fatalf("EqualityFields mismatch (-want +got):\n%s", diff)
	}
	if got := (Filter{Skills: "go"}).EqualityFields(); len(got) != 0 {
		t.Fatalf("EqualityFields = %v, want empty", got)
	}
}

func TestFilterString(t *testing.T) {
	t.Parallel()

	got := Filter{Location: "Seattle", Availability: AvailabilityUnavailable}.String()
	if want := "{location=Seattle availability=false}"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if !(Filter{}).IsEmpty() {
		t.Fatal("expected zero filter to be empty")
	}
}

func TestAvailabilityOf(t *testing.T) {
	t.Parallel()

	if got := AvailabilityOf(true); got != AvailabilityAvailable {
		t.Fatalf("AvailabilityOf(true) = %v", got)
	}
	if got := AvailabilityOf(false); got != AvailabilityUnavailable {
		t.Fatalf("AvailabilityOf(false) = %v", got)
	}
	if AvailabilityUnset.IsSet() {
		t.Fatal("unset availability reports set")
	}
}
