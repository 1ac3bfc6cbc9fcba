package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/expertfinder/internal/platform/grpc"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/storage/sqlite"
)

const testStateSecret = "0123456789abcdef0123456789abcdef"

var verificationCodePattern = regexp.MustCompile(`id="verification-code">(\d+)<`)

func TestNewRequiresDBPath(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), RuntimeConfig{StoreConnection: "sqlite://records.db", StoreTable: "experts"})
	if err == nil || !strings.Contains(err.Error(), "token database path is required") {
		t.Fatalf("New error = %v, want database path validation", err)
	}
}

func TestNewRequiresStoreConnection(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), RuntimeConfig{DBPath: "tokens.db", StoreTable: "experts"})
	if err == nil || !strings.Contains(err.Error(), "record store connection is required") {
		t.Fatalf("New error = %v, want store connection validation", err)
	}
}

func TestNewRequiresStoreTable(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), RuntimeConfig{DBPath: "tokens.db", StoreConnection: "sqlite://records.db"})
	if err == nil || !strings.Contains(err.Error(), "record store table is required") {
		t.Fatalf("New error = %v, want store table validation", err)
	}
}

func TestNewRejectsMalformedTableConnection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := New(context.Background(), RuntimeConfig{
		DBPath:          filepath.Join(dir, "tokens.db"),
		StoreConnection: "AccountName=missing-endpoint",
		StoreTable:      "experts",
		StateSecret:     testStateSecret,
		HTTPAddr:        "127.0.0.1:0",
	})
	if err == nil || !strings.Contains(err.Error(), "parse record store connection") {
		t.Fatalf("New error = %v, want connection parse failure", err)
	}
}

func TestNewRejectsShortStateSecret(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := New(context.Background(), RuntimeConfig{
		DBPath:          filepath.Join(dir, "tokens.db"),
		StoreConnection: SQLitePrefix + filepath.Join(dir, "tokens.db"),
		StoreTable:      "experts",
		StateSecret:     "short",
		HTTPAddr:        "127.0.0.1:0",
	})
	if err == nil || !strings.Contains(err.Error(), "at least 32 bytes") {
		t.Fatalf("New error = %v, want state secret validation", err)
	}
}

// newProviderFake serves the identity provider token endpoint and a
// one-member directory.
func newProviderFake(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "provider-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"user-token","token_type":"Bearer","expires_in":3600}`))
		case "client_credentials":
			_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		}
	})
	mux.HandleFunc("/v1.0/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{"id":"u1"}]}`))
	})
	mux.HandleFunc("/v1.0/users/u1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","displayName":"Ada","skills":["go","sql"],"city":"Seattle","availability":true}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func seedRecords(t *testing.T, path string, rows ...records.Row) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open record store: %v", err)
	}
	defer store.Close()
	for _, row := range rows {
		if err := store.PutRecord(context.Background(), "experts", row); err != nil {
			t.Fatalf("put record %s: %v", row.ID, err)
		}
	}
}

func startServer(t *testing.T, cfg RuntimeConfig) *Server {
	t.Helper()
	server, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})
	return server
}

func postQuery(t *testing.T, baseURL, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(baseURL+"/v1/query", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("query status = %d, want %d: %s", resp.StatusCode, http.StatusOK, raw)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	extension, ok := decoded["composeExtension"].(map[string]any)
	if !ok {
		t.Fatalf("response missing composeExtension: %v", decoded)
	}
	return extension
}

func TestServeSignInAndSearchFlow(t *testing.T) {
	t.Parallel()

	provider := newProviderFake(t)
	dir := t.TempDir()
	recordsPath := filepath.Join(dir, "records.db")
	seedRecords(t, recordsPath,
		records.Row{ID: "r1", Name: "Cy", Skills: "Go, Rust", Location: "Lisbon", Availability: domain.AvailabilityUnavailable},
		records.Row{ID: "r2", Name: "Di", Skills: "Java", Location: "Lisbon"},
	)

	server := startServer(t, RuntimeConfig{
		HTTPAddr:          "127.0.0.1:0",
		ClientID:          "client",
		ClientSecret:      "secret",
		DirectoryURL:      provider.URL + "/v1.0",
		DirectoryTokenURL: provider.URL + "/token",
		OAuthAuthURL:      provider.URL + "/authorize",
		OAuthTokenURL:     provider.URL + "/token",
		OAuthRedirectURL:  "http://expertfinder.test/oauth/callback",
		StateSecret:       testStateSecret,
		StoreConnection:   SQLitePrefix + recordsPath,
		StoreTable:        "experts",
		DBPath:            filepath.Join(dir, "tokens.db"),
	})
	baseURL := "http://" + server.HTTPAddr()

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, port, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatalf("split health addr: %v", err)
	}
	if err := platformgrpc.Probe(healthCtx, net.JoinHostPort("127.0.0.1", port), HealthService, 5*time.Second, nil); err != nil {
		t.Fatalf("health probe: %v", err)
	}

	query := `{"userId":"user-1","state":"%s","parameters":[{"name":"Skill","value":"go"}]}`

	// No token yet: sign-in prompt carrying the provider authorize URL.
	extension := postQuery(t, baseURL, strings.Replace(query, "%s", "", 1))
	if extension["type"] != "auth" {
		t.Fatalf("type = %v, want auth", extension["type"])
	}
	actions := extension["suggestedActions"].(map[string]any)["actions"].([]any)
	link, err := url.Parse(actions[0].(map[string]any)["value"].(string))
	if err != nil {
		t.Fatalf("parse sign-in link: %v", err)
	}
	if !strings.HasPrefix(link.String(), provider.URL+"/authorize") {
		t.Fatalf("sign-in link = %q, want provider authorize URL", link)
	}
	state := link.Query().Get("state")
	if state == "" {
		t.Fatal("sign-in link has no state")
	}

	// Provider redirects back; the page shows the verification code.
	resp, err := http.Get(baseURL + "/oauth/callback?code=provider-code&state=" + url.QueryEscape(state))
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d, want %d: %s", resp.StatusCode, http.StatusOK, page)
	}
	match := verificationCodePattern.FindSubmatch(page)
	if match == nil {
		t.Fatalf("callback page has no verification code:\n%s", page)
	}

	// The code unlocks both sources.
	extension = postQuery(t, baseURL, strings.Replace(query, "%s", string(match[1]), 1))
	if extension["type"] != "result" {
		t.Fatalf("type = %v, want result", extension["type"])
	}
	attachments := extension["attachments"].([]any)
	var titles []string
	for _, attachment := range attachments {
		preview := attachment.(map[string]any)["preview"].(map[string]any)["content"].(map[string]any)
		titles = append(titles, preview["title"].(string))
	}
	if strings.Join(titles, ",") != "Ada,Cy" {
		t.Fatalf("titles = %v, want [Ada Cy]", titles)
	}

	// The token is now stored; a query without a code still succeeds.
	extension = postQuery(t, baseURL, strings.Replace(query, "%s", "not-a-code", 1))
	if extension["type"] != "result" {
		t.Fatalf("type = %v, want result", extension["type"])
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	server, err := New(context.Background(), RuntimeConfig{
		HTTPAddr:        "127.0.0.1:0",
		OAuthAuthURL:    "https://login.example.test/authorize",
		OAuthTokenURL:   "https://login.example.test/token",
		StateSecret:     testStateSecret,
		StoreConnection: SQLitePrefix,
		StoreTable:      "experts",
		DBPath:          filepath.Join(dir, "tokens.db"),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + server.HTTPAddr() + "/up")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve error = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
