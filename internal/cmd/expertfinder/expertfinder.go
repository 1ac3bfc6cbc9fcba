// Package expertfinder parses expert finder command flags and launches the
// search runtime.
package expertfinder

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/expertfinder/internal/platform/cmd"
	"github.com/louisbranch/expertfinder/internal/platform/config"
	platformgrpc "github.com/louisbranch/expertfinder/internal/platform/grpc"
	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/app"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/directory/graph"
)

const loginBaseURL = "https://login.microsoftonline.com/"

// Config holds expert finder command configuration.
type Config struct {
	HTTPAddr string `env:"EXPERTFINDER_HTTP_ADDR" envDefault:":8095"`
	Port     int    `env:"EXPERTFINDER_PORT"      envDefault:"8096"`

	TenantID          string   `env:"EXPERTFINDER_TENANT_ID"`
	ClientID          string   `env:"EXPERTFINDER_CLIENT_ID"`
	ClientSecret      string   `env:"EXPERTFINDER_CLIENT_SECRET"`
	DirectoryURL      string   `env:"EXPERTFINDER_DIRECTORY_URL"       envDefault:"https://graph.microsoft.com/v1.0"`
	DirectoryTokenURL string   `env:"EXPERTFINDER_DIRECTORY_TOKEN_URL"`
	DirectoryScopes   []string `env:"EXPERTFINDER_DIRECTORY_SCOPES"    envSeparator:","`

	OAuthAuthURL     string   `env:"EXPERTFINDER_OAUTH_AUTH_URL"`
	OAuthTokenURL    string   `env:"EXPERTFINDER_OAUTH_TOKEN_URL"`
	OAuthRedirectURL string   `env:"EXPERTFINDER_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8095/oauth/callback"`
	OAuthScopes      []string `env:"EXPERTFINDER_OAUTH_SCOPES"       envDefault:"openid,profile,offline_access,User.Read" envSeparator:","`
	StateSecret      string   `env:"EXPERTFINDER_STATE_SECRET"`

	StoreConnection string `env:"EXPERTFINDER_STORE_CONNECTION"`
	StoreTable      string `env:"EXPERTFINDER_STORE_TABLE"`
	DBPath          string `env:"EXPERTFINDER_DB_PATH" envDefault:"data/expertfinder.db"`

	DirectoryConcurrency int           `env:"EXPERTFINDER_DIRECTORY_CONCURRENCY" envDefault:"8"`
	DirectoryTimeout     time.Duration `env:"EXPERTFINDER_DIRECTORY_TIMEOUT"     envDefault:"5s"`
	StoreTimeout         time.Duration `env:"EXPERTFINDER_STORE_TIMEOUT"         envDefault:"5s"`
	ExchangeTimeout      time.Duration `env:"EXPERTFINDER_EXCHANGE_TIMEOUT"      envDefault:"5s"`
	VerificationCodeTTL  time.Duration `env:"EXPERTFINDER_VERIFICATION_CODE_TTL" envDefault:"10m"`

	// HealthCheck probes a running instance instead of starting one.
	HealthCheck bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The gRPC health server port")
	fs.StringVar(&cfg.TenantID, "tenant-id", cfg.TenantID, "The directory tenant id")
	fs.StringVar(&cfg.StoreConnection, "store-connection", cfg.StoreConnection, "The record store connection (sqlite://path or table endpoint)")
	fs.StringVar(&cfg.StoreTable, "store-table", cfg.StoreTable, "The record store table name")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The sign-in token database path")
	fs.IntVar(&cfg.DirectoryConcurrency, "directory-concurrency", cfg.DirectoryConcurrency, "The maximum in-flight directory detail requests")
	fs.DurationVar(&cfg.DirectoryTimeout, "directory-timeout", cfg.DirectoryTimeout, "The per-call directory timeout")
	fs.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "The record store query timeout")
	fs.DurationVar(&cfg.ExchangeTimeout, "exchange-timeout", cfg.ExchangeTimeout, "The credential exchange timeout")
	fs.DurationVar(&cfg.VerificationCodeTTL, "verification-code-ttl", cfg.VerificationCodeTTL, "How long a sign-in verification code stays valid")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Probe the local health server and exit")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.applyTenantDefaults()
	return cfg, nil
}

// applyTenantDefaults derives the provider endpoints from the tenant when
// they are not set explicitly.
func (c *Config) applyTenantDefaults() {
	tenant := strings.TrimSpace(c.TenantID)
	if tenant == "" {
		return
	}
	base := loginBaseURL + url.PathEscape(tenant) + "/oauth2/v2.0/"
	if strings.TrimSpace(c.OAuthAuthURL) == "" {
		c.OAuthAuthURL = base + "authorize"
	}
	if strings.TrimSpace(c.OAuthTokenURL) == "" {
		c.OAuthTokenURL = base + "token"
	}
	if strings.TrimSpace(c.DirectoryTokenURL) == "" {
		c.DirectoryTokenURL = graph.TokenURL(tenant)
	}
}

// Validate reports every missing required setting.
func (c Config) Validate() error {
	return config.RequireValues(map[string]string{
		"EXPERTFINDER_TENANT_ID":        c.TenantID,
		"EXPERTFINDER_CLIENT_ID":        c.ClientID,
		"EXPERTFINDER_CLIENT_SECRET":    c.ClientSecret,
		"EXPERTFINDER_STATE_SECRET":     c.StateSecret,
		"EXPERTFINDER_STORE_CONNECTION": c.StoreConnection,
		"EXPERTFINDER_STORE_TABLE":      c.StoreTable,
		"EXPERTFINDER_OAUTH_AUTH_URL":   c.OAuthAuthURL,
		"EXPERTFINDER_OAUTH_TOKEN_URL":  c.OAuthTokenURL,
	})
}

// RuntimeConfig maps the command configuration onto the server runtime.
func (c Config) RuntimeConfig() app.RuntimeConfig {
	return app.RuntimeConfig{
		Port:                 c.Port,
		HTTPAddr:             c.HTTPAddr,
		TenantID:             c.TenantID,
		ClientID:             c.ClientID,
		ClientSecret:         c.ClientSecret,
		DirectoryURL:         c.DirectoryURL,
		DirectoryTokenURL:    c.DirectoryTokenURL,
		DirectoryScopes:      c.DirectoryScopes,
		OAuthAuthURL:         c.OAuthAuthURL,
		OAuthTokenURL:        c.OAuthTokenURL,
		OAuthRedirectURL:     c.OAuthRedirectURL,
		OAuthScopes:          c.OAuthScopes,
		StateSecret:          c.StateSecret,
		StoreConnection:      c.StoreConnection,
		StoreTable:           c.StoreTable,
		DBPath:               c.DBPath,
		DirectoryConcurrency: c.DirectoryConcurrency,
		DirectoryTimeout:     c.DirectoryTimeout,
		StoreTimeout:         c.StoreTimeout,
		ExchangeTimeout:      c.ExchangeTimeout,
		VerificationCodeTTL:  c.VerificationCodeTTL,
	}
}

// Run starts the expert finder runtime, or probes a running one when
// HealthCheck is set.
func Run(ctx context.Context, cfg Config) error {
	if cfg.HealthCheck {
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
		return platformgrpc.Probe(ctx, addr, app.HealthService, timeouts.GRPCDial, log.Printf)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceExpertFinder, func(ctx context.Context) error {
		return app.Run(ctx, cfg.RuntimeConfig())
	})
}
