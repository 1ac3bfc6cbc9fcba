// Package graph implements the directory collaborator over a Microsoft
// Graph style REST API, authenticating with an application credential.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/directory"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const (
	// DefaultScope requests the application's configured Graph permissions.
	DefaultScope = "https://graph.microsoft.com/.default"
	maxListPages = 50
	memberFields = "id,displayName,skills,country,city,officeLocation"
)

// TokenURL returns the tenant's v2.0 token endpoint.
func TokenURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + url.PathEscape(strings.TrimSpace(tenantID)) + "/oauth2/v2.0/token"
}

// Config describes the application credential and endpoint.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// HTTPClient carries token and API requests; a client with the directory
	// call timeout is used when nil.
	HTTPClient *http.Client
}

// Client is an authenticated directory client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client whose requests carry an application token. The
// first token is fetched eagerly so a bad credential fails here instead of
// on the first query.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("directory client id and secret are required")
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, errors.New("directory token url is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.DirectoryCall}
	}

	credential := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	first, err := credential.Token(context.WithValue(ctx, oauth2.HTTPClient, httpClient))
	if err != nil {
		return nil, fmt.Errorf("fetch directory token: %w", err)
	}
	// Refreshes run detached from ctx since the client outlives the request.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	source := oauth2.ReuseTokenSource(first, credential.TokenSource(tokenCtx))
	return &Client{baseURL: baseURL, httpClient: oauth2.NewClient(tokenCtx, source)}, nil
}

// ListMembers returns every user id, following next links.
func (c *Client) ListMembers(ctx context.Context) ([]string, error) {
	next := c.baseURL + "/users?$select=id"
	var ids []string
	for page := 0; next != ""; page++ {
		if page >= maxListPages {
			return nil, fmt.Errorf("member listing exceeded %d pages", maxListPages)
		}
		var payload struct {
			Value []struct {
				ID string `json:"id"`
			} `json:"value"`
			NextLink string `json:"@odata.nextLink"`
		}
		if err := c.getJSON(ctx, next, &payload); err != nil {
			return nil, err
		}
		for _, user := range payload.Value {
			if user.ID != "" {
				ids = append(ids, user.ID)
			}
		}
		next = payload.NextLink
	}
	return ids, nil
}

// GetMember fetches the profile attributes of one user.
func (c *Client) GetMember(ctx context.Context, id string) (directory.Member, error) {
	if strings.TrimSpace(id) == "" {
		return directory.Member{}, directory.ErrNotFound
	}
	endpoint := c.baseURL + "/users/" + url.PathEscape(id) + "?$select=" + memberFields
	var payload struct {
		ID             string   `json:"id"`
		DisplayName    string   `json:"displayName"`
		Skills         []string `json:"skills"`
		Country        string   `json:"country"`
		City           string   `json:"city"`
		OfficeLocation string   `json:"officeLocation"`
		Availability   *bool    `json:"availability"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return directory.Member{}, err
	}
	member := directory.Member{
		ID:          payload.ID,
		DisplayName: payload.DisplayName,
		Skills:      payload.Skills,
		Location:    firstNonEmpty(payload.Country, payload.City, payload.OfficeLocation),
	}
	if payload.Availability != nil {
		member.Availability = domain.AvailabilityOf(*payload.Availability)
	}
	return member, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", directory.ErrUnauthorized, err)
		}
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return directory.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return directory.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
