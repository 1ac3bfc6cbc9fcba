// Package authgate decides, once per request, whether the caller holds an
// access token. Without one the request ends in a sign-in prompt and no
// source is queried.
package authgate

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/otel"
	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"go.opentelemetry.io/otel/attribute"
)

// Exchanger is the credential exchange collaborator.
type Exchanger interface {
	// Exchange redeems a verification code for the user's access token. An
	// empty token with a nil error means the user has not signed in.
	Exchange(ctx context.Context, userID, code string) (string, error)
	// SignInLink returns the URL that starts sign-in for the user.
	SignInLink(ctx context.Context, userID string) (string, error)
}

// Session is the outcome of one resolution. Client is only populated when
// HasToken is true.
type Session[C any] struct {
	HasToken   bool
	Token      string
	SignInLink string
	Client     C
}

// Config tunes a Gate.
type Config struct {
	// ExchangeTimeout bounds each call to the exchanger.
	ExchangeTimeout time.Duration
	Logf            func(string, ...any)
}

// Gate resolves sessions and hands out the shared client handle.
type Gate[C any] struct {
	exchanger Exchanger
	clients   *ClientCache[C]
	timeout   time.Duration
	logf      func(string, ...any)
}

// New builds a Gate.
func New[C any](exchanger Exchanger, clients *ClientCache[C], cfg Config) *Gate[C] {
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = timeouts.TokenExchange
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Gate[C]{
		exchanger: exchanger,
		clients:   clients,
		timeout:   cfg.ExchangeTimeout,
		logf:      cfg.Logf,
	}
}

// Resolve exchanges the verification code for a token. Every failure ends
// in a sign-in session; Resolve never returns an error.
func (g *Gate[C]) Resolve(ctx context.Context, userID, verificationCode string) Session[C] {
	ctx, span := otel.Tracer().Start(ctx, "authgate.Resolve")
	defer span.End()

	token, err := g.exchange(ctx, userID, verificationCode)
	if err != nil {
		g.logf("token exchange for %s: %v", userID, err)
		token = ""
	}
	if token == "" {
		span.SetAttributes(attribute.Bool("expertfinder.authenticated", false))
		return Session[C]{SignInLink: g.signInLink(ctx, userID)}
	}

	client, err := g.client(ctx)
	if err != nil {
		g.logf("build directory client: %v", err)
		span.SetAttributes(attribute.Bool("expertfinder.authenticated", false))
		return Session[C]{SignInLink: g.signInLink(ctx, userID)}
	}
	span.SetAttributes(attribute.Bool("expertfinder.authenticated", true))
	return Session[C]{HasToken: true, Token: token, Client: client}
}

// Invalidate drops the cached client so the next resolution rebuilds it.
func (g *Gate[C]) Invalidate() {
	if g == nil || g.clients == nil {
		return
	}
	g.clients.Invalidate()
}

func (g *Gate[C]) exchange(ctx context.Context, userID, code string) (string, error) {
	if g == nil || g.exchanger == nil {
		return "", errors.New("credential exchanger is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.exchanger.Exchange(ctx, userID, NormalizeVerificationCode(code))
}

func (g *Gate[C]) signInLink(ctx context.Context, userID string) string {
	if g == nil || g.exchanger == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	link, err := g.exchanger.SignInLink(ctx, userID)
	if err != nil {
		g.logf("sign-in link for %s: %v", userID, err)
		return ""
	}
	return link
}

func (g *Gate[C]) client(ctx context.Context) (C, error) {
	if g.clients == nil {
		var zero C
		return zero, errors.New("client cache is not configured")
	}
	return g.clients.Get(ctx)
}

// NormalizeVerificationCode keeps the code only when it is a decimal
// integer; anything else becomes empty so stored tokens can still be found.
func NormalizeVerificationCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw
}
