package expertfinder

import (
	"context"
	"errors"
	"flag"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/expertfinder/internal/platform/errors"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/app"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("expertfinder", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8095" {
		t.Fatalf("http_addr = %q, want %q", cfg.HTTPAddr, ":8095")
	}
	if cfg.Port != 8096 {
		t.Fatalf("port = %d, want 8096", cfg.Port)
	}
	if cfg.DirectoryURL != "https://graph.microsoft.com/v1.0" {
		t.Fatalf("directory_url = %q, want %q", cfg.DirectoryURL, "https://graph.microsoft.com/v1.0")
	}
	if cfg.DBPath != "data/expertfinder.db" {
		t.Fatalf("db_path = %q, want %q", cfg.DBPath, "data/expertfinder.db")
	}
	if cfg.DirectoryConcurrency != 8 {
		t.Fatalf("directory_concurrency = %d, want 8", cfg.DirectoryConcurrency)
	}
	if cfg.DirectoryTimeout != 5*time.Second {
		t.Fatalf("directory_timeout = %s, want %s", cfg.DirectoryTimeout, 5*time.Second)
	}
	if cfg.VerificationCodeTTL != 10*time.Minute {
		t.Fatalf("verification_code_ttl = %s, want %s", cfg.VerificationCodeTTL, 10*time.Minute)
	}
	if diff := cmp.Diff([]string{"openid", "profile", "offline_access", "User.Read"}, cfg.OAuthScopes); diff != "" {
		t.Fatalf("oauth scopes mismatch (-want +got):\n%s", diff)
	}
	if cfg.HealthCheck {
		t.Fatal("healthcheck = true, want false")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("EXPERTFINDER_PORT", "9000")
	t.Setenv("EXPERTFINDER_CLIENT_ID", "client")
	t.Setenv("EXPERTFINDER_DIRECTORY_SCOPES", "scope-a,scope-b")

	fs := flag.NewFlagSet("expertfinder", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-http-addr", "127.0.0.1:9100",
		"-store-connection", "sqlite://records.db",
		"-store-table", "experts",
		"-directory-concurrency", "3",
		"-store-timeout", "2s",
		"-healthcheck",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.HTTPAddr != "127.0.0.1:9100" {
		t.Fatalf("http_addr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:9100")
	}
	if cfg.ClientID != "client" {
		t.Fatalf("client_id = %q, want %q", cfg.ClientID, "client")
	}
	if cfg.StoreConnection != "sqlite://records.db" {
		t.Fatalf("store_connection = %q, want %q", cfg.StoreConnection, "sqlite://records.db")
	}
	if cfg.StoreTable != "experts" {
		t.Fatalf("store_table = %q, want %q", cfg.StoreTable, "experts")
	}
	if cfg.DirectoryConcurrency != 3 {
		t.Fatalf("directory_concurrency = %d, want 3", cfg.DirectoryConcurrency)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Fatalf("store_timeout = %s, want %s", cfg.StoreTimeout, 2*time.Second)
	}
	if diff := cmp.Diff([]string{"scope-a", "scope-b"}, cfg.DirectoryScopes); diff != "" {
		t.Fatalf("directory scopes mismatch (-want +got):\n%s", diff)
	}
	if !cfg.HealthCheck {
		t.Fatal("healthcheck = false, want true")
	}
}

func TestParseConfigDerivesTenantEndpoints(t *testing.T) {
	t.Setenv("EXPERTFINDER_TENANT_ID", "contoso")
	t.Setenv("EXPERTFINDER_OAUTH_TOKEN_URL", "https://login.example.test/token")

	fs := flag.NewFlagSet("expertfinder", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if want := "https://login.microsoftonline.com/contoso/oauth2/v2.0/authorize"; cfg.OAuthAuthURL != want {
		t.Fatalf("oauth_auth_url = %q, want %q", cfg.OAuthAuthURL, want)
	}
	if want := "https://login.example.test/token"; cfg.OAuthTokenURL != want {
		t.Fatalf("oauth_token_url = %q, want %q", cfg.OAuthTokenURL, want)
	}
	if want := "https://login.microsoftonline.com/contoso/oauth2/v2.0/token"; cfg.DirectoryTokenURL != want {
		t.Fatalf("directory_token_url = %q, want %q", cfg.DirectoryTokenURL, want)
	}
}

func TestValidateListsMissingSettings(t *testing.T) {
	t.Parallel()

	err := Config{TenantID: "contoso", ClientID: "client"}.Validate()
	if !errors.Is(err, apperrors.New(apperrors.CodeConfigurationInvalid, "")) {
		t.Fatalf("error = %v, want configuration invalid", err)
	}
	for _, key := range []string{
		"EXPERTFINDER_CLIENT_SECRET",
		"EXPERTFINDER_STATE_SECRET",
		"EXPERTFINDER_STORE_CONNECTION",
		"EXPERTFINDER_STORE_TABLE",
	} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error = %q, want mention of %s", err, key)
		}
	}
	if strings.Contains(err.Error(), "EXPERTFINDER_TENANT_ID") {
		t.Fatalf("error = %q, want tenant id accepted", err)
	}
}

func TestRuntimeConfigCopiesSettings(t *testing.T) {
	t.Parallel()

	cfg := Config{
		HTTPAddr:             ":8095",
		Port:                 8096,
		TenantID:             "contoso",
		StoreConnection:      "sqlite://records.db",
		StoreTable:           "experts",
		DirectoryConcurrency: 4,
		StoreTimeout:         time.Second,
		VerificationCodeTTL:  time.Minute,
		HealthCheck:          true,
	}
	want := app.RuntimeConfig{
		HTTPAddr:             ":8095",
		Port:                 8096,
		TenantID:             "contoso",
		StoreConnection:      "sqlite://records.db",
		StoreTable:           "experts",
		DirectoryConcurrency: 4,
		StoreTimeout:         time.Second,
		VerificationCodeTTL:  time.Minute,
	}
	if diff := cmp.Diff(want, cfg.RuntimeConfig()); diff != "" {
		t.Fatalf("runtime config mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFailsFastOnMissingConfiguration(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Config{})
	if apperrors.CodeOf(err) != apperrors.CodeConfigurationInvalid {
		t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeConfigurationInvalid)
	}
}

func TestRunHealthCheckProbesServer(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(app.HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	port := listener.Addr().(*net.TCPAddr).Port
	if err := Run(context.Background(), Config{Port: port, HealthCheck: true}); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
}
