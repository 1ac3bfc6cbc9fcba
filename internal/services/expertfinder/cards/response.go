package cards

import "encoding/json"

const (
	contentTypeAdaptive = "application/vnd.microsoft.card.adaptive"
	contentTypeHero     = "application/vnd.microsoft.card.hero"
	adaptiveSchema      = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveVersion     = "1.4"

	typeAuth   = "auth"
	typeResult = "result"

	// SignInTitle labels the sign-in action.
	SignInTitle = "Bot Service OAuth"
)

// Response is the compose-extension reply to a search query.
type Response struct {
	ComposeExtension ComposeExtension `json:"composeExtension"`
}

// ComposeExtension is either a sign-in prompt or a result list.
type ComposeExtension struct {
	Type             string            `json:"type"`
	AttachmentLayout string            `json:"attachmentLayout,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	SuggestedActions *SuggestedActions `json:"suggestedActions,omitempty"`
}

// MarshalJSON writes the attachments array on every result list, empty
// included. Sign-in prompts carry none.
func (c ComposeExtension) MarshalJSON() ([]byte, error) {
	type wire ComposeExtension
	if c.Type != typeResult {
		return json.Marshal(wire(c))
	}
	attachments := c.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	return json.Marshal(struct {
		wire
		Attachments []Attachment `json:"attachments"`
	}{wire: wire(c), Attachments: attachments})
}

// SuggestedActions holds the sign-in action.
type SuggestedActions struct {
	Actions []CardAction `json:"actions"`
}

// CardAction is a suggested action.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Attachment is one card in the result list.
type Attachment struct {
	ContentType string      `json:"contentType"`
	Content     any         `json:"content"`
	Preview     *Attachment `json:"preview,omitempty"`
}

// SignIn builds the response that only asks the user to sign in.
func SignIn(link string) Response {
	return Response{ComposeExtension: ComposeExtension{
		Type: typeAuth,
		SuggestedActions: &SuggestedActions{Actions: []CardAction{{
			Type:  "openUrl",
			Title: SignInTitle,
			Value: link,
		}}},
	}}
}

// Results builds a list-layout response, one attachment per card in order.
func Results(rendered []Card) Response {
	attachments := make([]Attachment, 0, len(rendered))
	for _, card := range rendered {
		attachments = append(attachments, card.Attachment())
	}
	return Response{ComposeExtension: ComposeExtension{
		Type:             typeResult,
		AttachmentLayout: "list",
		Attachments:      attachments,
	}}
}

// IsSignIn reports whether the response is a sign-in prompt.
func (r Response) IsSignIn() bool {
	return r.ComposeExtension.Type == typeAuth
}

type adaptiveCard struct {
	Type    string   `json:"type"`
	Schema  string   `json:"$schema"`
	Version string   `json:"version"`
	Body    []any    `json:"body"`
	Actions []Action `json:"actions"`
}

type textBlock struct {
	Type                string `json:"type"`
	Text                string `json:"text"`
	Wrap                bool   `json:"wrap"`
	Size                string `json:"size,omitempty"`
	Weight              string `json:"weight,omitempty"`
	Separator           bool   `json:"separator,omitempty"`
	Spacing             string `json:"spacing,omitempty"`
	HorizontalAlignment string `json:"horizontalAlignment,omitempty"`
	MaxLines            *int   `json:"maxLines,omitempty"`
}

type image struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Size    string `json:"size"`
	Style   string `json:"style"`
}

type column struct {
	Type                     string `json:"type"`
	Items                    []any  `json:"items"`
	Width                    string `json:"width"`
	Spacing                  string `json:"spacing,omitempty"`
	VerticalContentAlignment string `json:"verticalContentAlignment,omitempty"`
}

type columnSet struct {
	Type    string   `json:"type"`
	Columns []column `json:"columns"`
}

type factSet struct {
	Type  string `json:"type"`
	Facts []Fact `json:"facts"`
}

type heroCard struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Attachment encodes the card as an adaptive card with a hero preview.
func (c Card) Attachment() Attachment {
	unlimited := 0
	content := adaptiveCard{
		Type:    "AdaptiveCard",
		Schema:  adaptiveSchema,
		Version: adaptiveVersion,
		Body: []any{
			textBlock{Type: "TextBlock", Text: c.Header, Wrap: true, Size: "Large", Weight: "Bolder", Separator: true},
			columnSet{Type: "ColumnSet", Columns: []column{
				{
					Type:  "Column",
					Items: []any{image{Type: "Image", URL: c.Profile.PhotoURL, AltText: "profileImage", Size: "Small", Style: "Person"}},
					Width: "auto",
				},
				{
					Type: "Column",
					Items: []any{textBlock{
						Type:                "TextBlock",
						Text:                c.Profile.Name,
						Wrap:                true,
						Size:                "Medium",
						Weight:              "Bolder",
						Spacing:             "None",
						HorizontalAlignment: "Left",
						MaxLines:            &unlimited,
					}},
					Width:                    "stretch",
					Spacing:                  "Medium",
					VerticalContentAlignment: "Center",
				},
			}},
			factSet{Type: "FactSet", Facts: c.Facts},
		},
		Actions: c.Actions,
	}
	return Attachment{
		ContentType: contentTypeAdaptive,
		Content:     content,
		Preview: &Attachment{
			ContentType: contentTypeHero,
			Content:     heroCard{Title: c.Preview.Title, Text: c.Preview.Subtitle},
		},
	}
}
