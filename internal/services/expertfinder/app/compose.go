package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/louisbranch/expertfinder/internal/services/expertfinder/authgate"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/directory"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/directory/graph"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records/tablestore"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/search"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/signin"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/storage/sqlite"
	"golang.org/x/oauth2"
)

// SQLitePrefix marks a record store connection served from a local SQLite
// file instead of the table service.
const SQLitePrefix = "sqlite://"

// components is the wired request pipeline.
type components struct {
	tokens  *sqlite.Store
	records records.Store
	// closeRecords releases the record store when it is not the token store.
	closeRecords func() error
	broker       *signin.Broker
	search       *search.Service
}

func (c *components) close() error {
	var errs []error
	if c.closeRecords != nil {
		errs = append(errs, c.closeRecords())
	}
	if c.tokens != nil {
		errs = append(errs, c.tokens.Close())
	}
	return errors.Join(errs...)
}

func compose(ctx context.Context, cfg RuntimeConfig) (*components, error) {
	tokens, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	built := &components{tokens: tokens}

	recordStore, closeRecords, err := openRecordStore(ctx, cfg, tokens)
	if err != nil {
		_ = built.close()
		return nil, err
	}
	built.records = recordStore
	built.closeRecords = closeRecords

	state, err := signin.NewStateSigner(cfg.StateSecret, 0, nil)
	if err != nil {
		_ = built.close()
		return nil, err
	}
	broker, err := signin.NewBroker(signin.Config{
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
			RedirectURL: cfg.OAuthRedirectURL,
			Scopes:      cfg.OAuthScopes,
		},
		State:   state,
		Store:   tokens,
		CodeTTL: cfg.VerificationCodeTTL,
	})
	if err != nil {
		_ = built.close()
		return nil, err
	}
	built.broker = broker

	clients := authgate.NewClientCache(directoryClientFactory(cfg))
	gate := authgate.New[directory.Directory](broker, clients, authgate.Config{ExchangeTimeout: cfg.ExchangeTimeout})
	built.search = search.NewService(search.Config{
		Gate: gate,
		Directory: directory.NewAdapter(directory.Config{
			Concurrency: cfg.DirectoryConcurrency,
			CallTimeout: cfg.DirectoryTimeout,
		}),
		Records: records.NewAdapter(records.Config{
			Table:        cfg.StoreTable,
			QueryTimeout: cfg.StoreTimeout,
		}),
		Store: recordStore,
	})
	return built, nil
}

// directoryClientFactory builds the shared directory client on first use and
// again after an invalidation.
func directoryClientFactory(cfg RuntimeConfig) func(context.Context) (directory.Directory, error) {
	tokenURL := strings.TrimSpace(cfg.DirectoryTokenURL)
	if tokenURL == "" {
		tokenURL = graph.TokenURL(cfg.TenantID)
	}
	return func(ctx context.Context) (directory.Directory, error) {
		client, err := graph.NewClient(ctx, graph.Config{
			BaseURL:      cfg.DirectoryURL,
			TokenURL:     tokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.DirectoryScopes,
			HTTPClient:   &http.Client{Timeout: cfg.DirectoryTimeout},
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// openRecordStore selects the record backend from the connection string. A
// sqlite connection naming the token database shares its handle.
func openRecordStore(ctx context.Context, cfg RuntimeConfig, tokens *sqlite.Store) (records.Store, func() error, error) {
	connection := strings.TrimSpace(cfg.StoreConnection)
	if path, ok := strings.CutPrefix(connection, SQLitePrefix); ok {
		if path == "" || filepath.Clean(path) == filepath.Clean(cfg.DBPath) {
			return tokens, nil, nil
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open record store: %w", err)
		}
		return store, store.Close, nil
	}

	parsed, err := tablestore.ParseConnection(connection)
	if err != nil {
		return nil, nil, fmt.Errorf("parse record store connection: %w", err)
	}
	return tablestore.New(parsed, &http.Client{Timeout: cfg.StoreTimeout}), nil, nil
}
