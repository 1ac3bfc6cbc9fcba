package signin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	apperrors "github.com/louisbranch/expertfinder/internal/platform/errors"
	"golang.org/x/oauth2"
)

const (
	verificationCodeDigits = 6
	defaultCodeTTL         = 10 * time.Minute
	defaultTokenTTL        = time.Hour
)

// ErrStoreNotConfigured indicates the broker has no token store.
var ErrStoreNotConfigured = errors.New("sign-in token store is not configured")

// Token is a user's access token and its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// PendingSignIn is a completed OAuth flow waiting for the user to paste its
// verification code back into the chat client.
type PendingSignIn struct {
	UserID    string
	Code      string
	Token     Token
	ExpiresAt time.Time
}

// TokenStore persists pending sign-ins and active tokens.
type TokenStore interface {
	SavePendingSignIn(ctx context.Context, pending PendingSignIn) error
	// RedeemPendingSignIn consumes the pending sign-in matching userID and
	// code, promoting its token to the user's active token.
	RedeemPendingSignIn(ctx context.Context, userID, code string, now time.Time) (Token, bool, error)
	ActiveToken(ctx context.Context, userID string, now time.Time) (Token, bool, error)
	CleanupExpired(ctx context.Context, now time.Time) error
}

// Config wires a Broker.
type Config struct {
	OAuth *oauth2.Config
	State *StateSigner
	Store TokenStore
	// CodeTTL bounds how long a verification code can be redeemed.
	CodeTTL time.Duration
	Clock   func() time.Time
	// NewCode generates verification codes; tests replace it.
	NewCode func() (string, error)
}

// Broker implements the credential exchange collaborator.
type Broker struct {
	oauth   *oauth2.Config
	state   *StateSigner
	store   TokenStore
	codeTTL time.Duration
	clock   func() time.Time
	newCode func() (string, error)
}

// NewBroker validates cfg and builds a Broker.
func NewBroker(cfg Config) (*Broker, error) {
	if cfg.OAuth == nil {
		return nil, apperrors.New(apperrors.CodeConfigurationInvalid, "oauth config is required")
	}
	if cfg.State == nil {
		return nil, apperrors.New(apperrors.CodeConfigurationInvalid, "sign-in state signer is required")
	}
	if cfg.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultCodeTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewCode == nil {
		cfg.NewCode = NewVerificationCode
	}
	return &Broker{
		oauth:   cfg.OAuth,
		state:   cfg.State,
		store:   cfg.Store,
		codeTTL: cfg.CodeTTL,
		clock:   cfg.Clock,
		newCode: cfg.NewCode,
	}, nil
}

// SignInLink returns the provider authorize URL for userID.
func (b *Broker) SignInLink(_ context.Context, userID string) (string, error) {
	state, err := b.state.Sign(userID)
	if err != nil {
		return "", err
	}
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange returns the user's access token. A non-empty code is redeemed
// first; otherwise, or when it matches nothing, the stored active token is
// returned. An empty token means the user must sign in.
func (b *Broker) Exchange(ctx context.Context, userID, code string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil
	}
	now := b.clock().UTC()
	if code != "" {
		token, ok, err := b.store.RedeemPendingSignIn(ctx, userID, code, now)
		if err != nil {
			return "", fmt.Errorf("redeem verification code: %w", err)
		}
		if ok {
			return token.AccessToken, nil
		}
	}
	token, ok, err := b.store.ActiveToken(ctx, userID, now)
	if err != nil {
		return "", fmt.Errorf("load active token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token.AccessToken, nil
}

// CompleteSignIn handles the OAuth callback: it verifies state, exchanges
// the authorization code, and stores the token behind a fresh
// verification code, which it returns for display.
func (b *Broker) CompleteSignIn(ctx context.Context, authorizationCode, state string) (string, error) {
	userID, err := b.state.Verify(state)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(authorizationCode) == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "authorization code is required")
	}

	oauthToken, err := b.oauth.Exchange(ctx, authorizationCode)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "exchange authorization code", err)
	}
	if oauthToken.AccessToken == "" {
		return "", apperrors.New(apperrors.CodeUpstreamUnavailable, "provider returned no access token")
	}

	now := b.clock().UTC()
	expiresAt := oauthToken.Expiry.UTC()
	if oauthToken.Expiry.IsZero() {
		expiresAt = now.Add(defaultTokenTTL)
	}
	code, err := b.newCode()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	err = b.store.SavePendingSignIn(ctx, PendingSignIn{
		UserID:    userID,
		Code:      code,
		Token:     Token{AccessToken: oauthToken.AccessToken, ExpiresAt: expiresAt},
		ExpiresAt: now.Add(b.codeTTL),
	})
	if err != nil {
		return "", fmt.Errorf("save pending sign-in: %w", err)
	}
	return code, nil
}

// StartCleanup purges expired pending sign-ins and tokens every interval
// until ctx is done.
func (b *Broker) StartCleanup(ctx context.Context, interval time.Duration, logf func(string, ...any)) {
	if b == nil || b.store == nil || interval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.store.CleanupExpired(ctx, b.clock().UTC()); err != nil && logf != nil {
					logf("sign-in cleanup: %v", err)
				}
			}
		}
	}()
}

// NewVerificationCode returns a random six digit code.
func NewVerificationCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n.Int64()), nil
}
