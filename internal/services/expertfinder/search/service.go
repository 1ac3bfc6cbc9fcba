// Package search runs one people query end to end: filter, authorize, query
// both sources concurrently, merge and render.
package search

import (
	"context"
	"errors"
	"log"

	"github.com/louisbranch/expertfinder/internal/platform/otel"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/authgate"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/cards"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/directory"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Gate resolves the caller's session.
type Gate interface {
	Resolve(ctx context.Context, userID, verificationCode string) authgate.Session[directory.Directory]
	Invalidate()
}

// DirectoryQuerier queries the people directory.
type DirectoryQuerier interface {
	Query(ctx context.Context, dir directory.Directory, filter domain.Filter) ([]domain.Candidate, error)
}

// RecordQuerier queries the record table.
type RecordQuerier interface {
	Query(ctx context.Context, store records.Store, filter domain.Filter) ([]domain.Candidate, error)
}

// Request is one incoming search query.
type Request struct {
	UserID           string
	VerificationCode string
	Parameters       domain.Query
}

// Result is the response plus what the pipeline observed.
type Result struct {
	Response cards.Response
	// Cards are the rendered candidates behind a result response.
	Cards  []cards.Card
	Filter domain.Filter
	// Degraded lists sources that failed and contributed no candidates.
	Degraded []*SourceUnavailableError
}

// DegradedSources returns the names of degraded sources.
func (r Result) DegradedSources() []string {
	if len(r.Degraded) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Degraded))
	for _, degraded := range r.Degraded {
		names = append(names, degraded.Source)
	}
	return names
}

// Config wires the pipeline collaborators.
type Config struct {
	Gate      Gate
	Directory DirectoryQuerier
	Records   RecordQuerier
	Store     records.Store
	Logf      func(string, ...any)
}

// Service runs searches. It is safe for concurrent use.
type Service struct {
	gate      Gate
	directory DirectoryQuerier
	records   RecordQuerier
	store     records.Store
	logf      func(string, ...any)
}

// NewService builds a search service.
func NewService(cfg Config) *Service {
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Service{
		gate:      cfg.Gate,
		directory: cfg.Directory,
		records:   cfg.Records,
		store:     cfg.Store,
		logf:      cfg.Logf,
	}
}

// Search answers one query. Without a token it returns the sign-in prompt
// and queries no source. Source failures degrade to empty; the only error
// returned is the context's when the caller cancels.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer().Start(ctx, "search.Search")
	defer span.End()

	filter := domain.BuildFilter(req.Parameters)
	span.SetAttributes(
		attribute.Bool("expertfinder.filter.skills", filter.HasSkills()),
		attribute.Bool("expertfinder.filter.empty", filter.IsEmpty()),
	)

	if s.gate == nil {
		span.SetStatus(codes.Error, "gate not configured")
		return Result{Response: cards.SignIn(""), Filter: filter}, nil
	}
	session := s.gate.Resolve(ctx, req.UserID, req.VerificationCode)
	if !session.HasToken {
		return Result{Response: cards.SignIn(session.SignInLink), Filter: filter}, nil
	}

	var (
		fromDirectory, fromRecords []domain.Candidate
		directoryErr, recordsErr   error
	)
	var group errgroup.Group
	group.Go(func() error {
		fromDirectory, directoryErr = s.queryDirectory(ctx, session.Client, filter)
		return nil
	})
	group.Go(func() error {
		fromRecords, recordsErr = s.queryRecords(ctx, filter)
		return nil
	})
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, err
	}

	result := Result{Filter: filter}
	if directoryErr != nil {
		if errors.Is(directoryErr, directory.ErrUnauthorized) {
			s.gate.Invalidate()
		}
		s.logf("search directory %s: %v", filter, directoryErr)
		result.Degraded = append(result.Degraded, &SourceUnavailableError{Source: SourceDirectory, Err: directoryErr})
		fromDirectory = nil
	}
	if recordsErr != nil {
		s.logf("search records %s: %v", filter, recordsErr)
		result.Degraded = append(result.Degraded, &SourceUnavailableError{Source: SourceRecords, Err: recordsErr})
		fromRecords = nil
	}

	merged := domain.Merge(fromDirectory, fromRecords)
	result.Cards = cards.RenderAll(merged)
	result.Response = cards.Results(result.Cards)
	span.SetAttributes(
		attribute.Int("expertfinder.results", len(merged)),
		attribute.Int("expertfinder.degraded", len(result.Degraded)),
	)
	return result, nil
}

func (s *Service) queryDirectory(ctx context.Context, dir directory.Directory, filter domain.Filter) ([]domain.Candidate, error) {
	if s.directory == nil {
		return nil, directory.ErrDirectoryNotConfigured
	}
	return s.directory.Query(ctx, dir, filter)
}

func (s *Service) queryRecords(ctx context.Context, filter domain.Filter) ([]domain.Candidate, error) {
	if s.records == nil {
		return nil, records.ErrStoreNotConfigured
	}
	return s.records.Query(ctx, s.store, filter)
}
