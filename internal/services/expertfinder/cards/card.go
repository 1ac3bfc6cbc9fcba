// Package cards renders search candidates as interactive cards and wraps
// them in the compose-extension response the chat client expects.
package cards

import (
	"github.com/louisbranch/expertfinder/internal/platform/branding"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
)

// Static template content shared by every card.
const (
	Header       = branding.AppName
	ProfilePhoto = "https://pbs.twimg.com/profile_images/3647943215/d7f12830b3c17a5a9e4afcc370e3a37e_400x400.jpeg"

	FactSkills    = "Skills:"
	FactLocation  = "Location:"
	FactAvailable = "Available:"

	AvailableYes     = "Yes"
	AvailableNo      = "No"
	AvailableUnknown = "Unknown"
)

// Fact is one labelled value.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Profile is the photo and name block.
type Profile struct {
	PhotoURL string
	Name     string
}

// Preview is the compact list form of a card.
type Preview struct {
	Title    string
	Subtitle string
}

// Element is an item in the body of a nested card.
type Element struct {
	Type         string `json:"type"`
	ID           string `json:"id,omitempty"`
	Label        string `json:"label,omitempty"`
	Text         string `json:"text,omitempty"`
	IsRequired   bool   `json:"isRequired,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SubCard is the card revealed by a show-card action.
type SubCard struct {
	Type    string    `json:"type"`
	Version string    `json:"version,omitempty"`
	Body    []Element `json:"body"`
	Actions []Action  `json:"actions,omitempty"`
}

// Action is a card button.
type Action struct {
	Type  string   `json:"type"`
	Title string   `json:"title"`
	URL   string   `json:"url,omitempty"`
	Card  *SubCard `json:"card,omitempty"`
}

// Card is the rendered form of one candidate.
type Card struct {
	Header  string
	Profile Profile
	Facts   []Fact
	Actions []Action
	Preview Preview
}

// Render maps a candidate to its card. It never fails: missing fields
// render as empty values and there are always exactly three facts.
func Render(candidate domain.Candidate) Card {
	skills := candidate.SkillSummary()
	return Card{
		Header:  Header,
		Profile: Profile{PhotoURL: ProfilePhoto, Name: candidate.DisplayName},
		Facts: []Fact{
			{Title: FactSkills, Value: skills},
			{Title: FactLocation, Value: candidate.Location},
			{Title: FactAvailable, Value: AvailabilityLabel(candidate.Availability)},
		},
		Actions: templateActions(),
		Preview: Preview{Title: candidate.DisplayName, Subtitle: skills},
	}
}

// RenderAll renders candidates in order.
func RenderAll(candidates []domain.Candidate) []Card {
	rendered := make([]Card, 0, len(candidates))
	for _, candidate := range candidates {
		rendered = append(rendered, Render(candidate))
	}
	return rendered
}

// AvailabilityLabel renders availability; an unset value is "Unknown".
func AvailabilityLabel(availability domain.Availability) string {
	available, ok := availability.Bool()
	switch {
	case !ok:
		return AvailableUnknown
	case available:
		return AvailableYes
	default:
		return AvailableNo
	}
}

// templateActions returns a fresh copy of the action set every card
// carries.
func templateActions() []Action {
	return []Action{
		{
			Type:  "Action.OpenUrl",
			Title: "Action Open URL",
			URL:   "https://adaptivecards.io",
		},
		{
			Type:  "Action.ShowCard",
			Title: "Action Submit",
			Card: &SubCard{
				Type:    "AdaptiveCard",
				Version: "1.5",
				Body: []Element{{
					Type:         "Input.Text",
					ID:           "name",
					Label:        "Please enter your name:",
					IsRequired:   true,
					ErrorMessage: "Name is required",
				}},
				Actions: []Action{{Type: "Action.Submit", Title: "Submit"}},
			},
		},
		{
			Type:  "Action.ShowCard",
			Title: "Action ShowCard",
			Card: &SubCard{
				Type:    "AdaptiveCard",
				Version: "1.0",
				Body:    []Element{{Type: "TextBlock", Text: "This card's action will show another card"}},
				Actions: []Action{{
					Type:  "Action.ShowCard",
					Title: "Action.ShowCard",
					Card: &SubCard{
						Type: "AdaptiveCard",
						Body: []Element{
							{Type: "TextBlock", Text: "**Welcome To New Card**"},
							{Type: "TextBlock", Text: "This is your new card inside another card"},
						},
					},
				}},
			},
		},
	}
}
