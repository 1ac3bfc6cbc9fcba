// Package directory queries the people directory and turns its members into
// search candidates.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/otel"
	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

var (
	// ErrUnauthorized indicates the directory rejected the client credential.
	ErrUnauthorized = errors.New("directory rejected credentials")
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("directory member not found")
	// ErrDirectoryNotConfigured indicates no directory client was supplied.
	ErrDirectoryNotConfigured = errors.New("directory is not configured")
)

// Member is the profile detail of one directory member.
type Member struct {
	ID           string
	DisplayName  string
	Skills       []string
	Location     string
	Availability domain.Availability
}

// Directory is the people directory collaborator.
type Directory interface {
	ListMembers(ctx context.Context) ([]string, error)
	GetMember(ctx context.Context, id string) (Member, error)
}

// Config tunes the fan-out.
type Config struct {
	// Concurrency caps in-flight detail fetches.
	Concurrency int
	// CallTimeout bounds each detail fetch and the listing call.
	CallTimeout time.Duration
	Logf        func(string, ...any)
}

// Adapter lists members and fetches their details concurrently.
type Adapter struct {
	concurrency int
	callTimeout time.Duration
	logf        func(string, ...any)
}

// NewAdapter builds an Adapter, filling zero values with defaults.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeouts.DirectoryCall
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Adapter{concurrency: cfg.Concurrency, callTimeout: cfg.CallTimeout, logf: cfg.Logf}
}

// Query returns the members whose skills overlap the filter, in listing
// order. A failed detail fetch drops only that member. A failed listing, a
// rejected credential on any fetch, or a cancelled context returns no
// candidates and the error; callers treat that as an empty source.
func (a *Adapter) Query(ctx context.Context, dir Directory, filter domain.Filter) ([]domain.Candidate, error) {
	ctx, span := otel.Tracer().Start(ctx, "directory.Query")
	defer span.End()

	if dir == nil {
		span.SetStatus(codes.Error, ErrDirectoryNotConfigured.Error())
		return nil, ErrDirectoryNotConfigured
	}

	ids, err := a.list(ctx, dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list members")
		return nil, fmt.Errorf("list members: %w", err)
	}
	span.SetAttributes(attribute.Int("expertfinder.directory.members", len(ids)))

	members, dropped, unauthorized := a.fetchAll(ctx, dir, ids)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}
	span.SetAttributes(attribute.Int("expertfinder.directory.dropped", dropped))
	if unauthorized {
		span.SetStatus(codes.Error, "member details unauthorized")
		return nil, fmt.Errorf("member details: %w", ErrUnauthorized)
	}

	tokens := filter.SkillTokens()
	candidates := make([]domain.Candidate, 0, len(members))
	for _, member := range members {
		if member == nil || !domain.MatchesSkills(member.Skills, tokens) {
			continue
		}
		candidates = append(candidates, member.candidate())
	}
	span.SetAttributes(attribute.Int("expertfinder.directory.matched", len(candidates)))
	return candidates, nil
}

func (a *Adapter) list(ctx context.Context, dir Directory) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	return dir.ListMembers(ctx)
}

// fetchAll fills one slot per id. Slots of failed fetches stay nil. The
// last result reports whether any fetch was rejected as unauthorized.
func (a *Adapter) fetchAll(ctx context.Context, dir Directory, ids []string) ([]*Member, int, bool) {
	slots := make([]*Member, len(ids))
	failures := make([]bool, len(ids))
	var unauthorized atomic.Bool

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)
	for i, id := range ids {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			member, err := a.fetch(groupCtx, dir, id)
			if err != nil {
				failures[i] = true
				if errors.Is(err, ErrUnauthorized) {
					unauthorized.Store(true)
				}
				if groupCtx.Err() == nil {
					a.logf("directory detail %s: %v", id, err)
				}
				return nil
			}
			slots[i] = &member
			return nil
		})
	}
	_ = group.Wait()

	dropped := 0
	for _, failed := range failures {
		if failed {
			dropped++
		}
	}
	return slots, dropped, unauthorized.Load()
}

func (a *Adapter) fetch(ctx context.Context, dir Directory, id string) (Member, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	member, err := dir.GetMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if member.ID == "" {
		member.ID = id
	}
	return member, nil
}

func (m Member) candidate() domain.Candidate {
	var skills []string
	if len(m.Skills) > 0 {
		skills = append([]string(nil), m.Skills...)
	}
	return domain.Candidate{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		Skills:       skills,
		Location:     m.Location,
		Availability: m.Availability,
	}
}
