// Package seed loads expert records into the local SQLite record store so the
// search service can run without the hosted table service.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	entrypoint "github.com/louisbranch/expertfinder/internal/platform/cmd"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/storage/sqlite"
)

const (
	defaultDBPath = "data/expertfinder.db"
	defaultTable  = "experts"
	sqlitePrefix  = "sqlite://"
)

// Config holds seed command configuration.
type Config struct {
	DBPath  string
	Table   string
	File    string
	Replace bool
	List    bool
	Verbose bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config. The record store path defaults to
// a sqlite:// store connection, then to the token database path.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		DBPath: envOrDefault(lookup, []string{"EXPERTFINDER_DB_PATH"}, defaultDBPath),
		Table:  envOrDefault(lookup, []string{"EXPERTFINDER_STORE_TABLE"}, defaultTable),
	}
	if connection := envOrDefault(lookup, []string{"EXPERTFINDER_STORE_CONNECTION"}, ""); strings.HasPrefix(connection, sqlitePrefix) {
		if path := strings.TrimPrefix(connection, sqlitePrefix); path != "" {
			cfg.DBPath = path
		}
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "record store SQLite path")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "record table name")
	fs.StringVar(&cfg.File, "file", "", "expert JSON file (default: built-in fixtures)")
	fs.BoolVar(&cfg.Replace, "replace", false, "delete existing rows in the table first")
	fs.BoolVar(&cfg.List, "list", false, "list the table contents instead of seeding")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return Config{}, fmt.Errorf("table is required")
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				fmt.Fprintf(errOut, "close store: %v\n", closeErr)
			}
		}()

		if cfg.List {
			return list(ctx, store, cfg.Table, out)
		}
		return load(ctx, store, cfg, out)
	})
}

func load(ctx context.Context, store *sqlite.Store, cfg Config, out io.Writer) error {
	rows, err := readRows(cfg.File)
	if err != nil {
		return err
	}
	if cfg.Replace {
		deleted, err := store.DeleteTable(ctx, cfg.Table)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(out, "deleted %d rows from %s\n", deleted, cfg.Table)
		}
	}
	for _, row := range rows {
		if err := store.PutRecord(ctx, cfg.Table, row); err != nil {
			return fmt.Errorf("seed %s: %w", row.ID, err)
		}
		if cfg.Verbose {
			fmt.Fprintf(out, "seeded %s (%s)\n", row.ID, row.Name)
		}
	}
	fmt.Fprintf(out, "seeded %d experts into %s\n", len(rows), cfg.Table)
	return nil
}

func list(ctx context.Context, store *sqlite.Store, table string, out io.Writer) error {
	rows, err := store.Query(ctx, table, records.SelectAll)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", row.ID, row.Name, row.Skills, row.Location, row.Availability)
	}
	return nil
}

func readRows(path string) ([]records.Row, error) {
	if strings.TrimSpace(path) == "" {
		return DecodeExperts(strings.NewReader(defaultFixture))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open expert file: %w", err)
	}
	defer file.Close()
	return DecodeExperts(file)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
