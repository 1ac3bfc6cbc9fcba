// Package records queries the structured record store with a predicate
// built from the search filter.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/otel"
	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultPartitionKey groups rows written by this service.
const DefaultPartitionKey = "expert"

var (
	// ErrStoreNotConfigured indicates no record store was supplied.
	ErrStoreNotConfigured = errors.New("record store is not configured")
	// ErrTableRequired indicates the adapter has no table name.
	ErrTableRequired = errors.New("record table name is required")
)

// Row is one stored record, already normalized from the backend's shape.
type Row struct {
	PartitionKey string
	// ID is the row key.
	ID string
	Name string
	// Skills is the comma-separated skill list as stored.
	Skills       string
	Location     string
	Availability domain.Availability
}

// Store is the structured record store collaborator.
type Store interface {
	Query(ctx context.Context, table, predicate string) ([]Row, error)
}

// Config tunes an Adapter.
type Config struct {
	Table string
	// QueryTimeout bounds the store query.
	QueryTimeout time.Duration
}

// Adapter queries one table.
type Adapter struct {
	table   string
	timeout time.Duration
}

// NewAdapter builds an Adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = timeouts.StoreQuery
	}
	return &Adapter{table: cfg.Table, timeout: cfg.QueryTimeout}
}

// Query runs the filter's predicate against the table and keeps rows whose
// skills overlap the requested ones. Store errors are returned unchanged in
// meaning; the caller decides how to degrade.
func (a *Adapter) Query(ctx context.Context, store Store, filter domain.Filter) ([]domain.Candidate, error) {
	ctx, span := otel.Tracer().Start(ctx, "records.Query")
	defer span.End()

	if store == nil {
		span.SetStatus(codes.Error, ErrStoreNotConfigured.Error())
		return nil, ErrStoreNotConfigured
	}
	if a.table == "" {
		span.SetStatus(codes.Error, ErrTableRequired.Error())
		return nil, ErrTableRequired
	}

	predicate := BuildPredicate(filter)
	span.SetAttributes(
		attribute.String("expertfinder.records.table", a.table),
		attribute.String("expertfinder.records.predicate", predicate),
	)

	queryCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	rows, err := store.Query(queryCtx, a.table, predicate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query records")
		return nil, fmt.Errorf("query %s: %w", a.table, err)
	}

	tokens := filter.SkillTokens()
	candidates := make([]domain.Candidate, 0, len(rows))
	for _, row := range rows {
		candidate := row.Candidate()
		if !domain.MatchesSkills(candidate.Skills, tokens) {
			continue
		}
		candidates = append(candidates, candidate)
	}
	span.SetAttributes(
		attribute.Int("expertfinder.records.rows", len(rows)),
		attribute.Int("expertfinder.records.matched", len(candidates)),
	)
	return candidates, nil
}

// Candidate converts the row into a search candidate.
func (r Row) Candidate() domain.Candidate {
	return domain.Candidate{
		ID:           r.ID,
		DisplayName:  r.Name,
		Skills:       domain.SplitSkills(r.Skills),
		Location:     r.Location,
		Availability: r.Availability,
	}
}
