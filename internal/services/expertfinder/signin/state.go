package signin

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/expertfinder/internal/platform/errors"
	"github.com/louisbranch/expertfinder/internal/platform/id"
)

const (
	stateIssuer   = "expertfinder"
	stateAudience = "expertfinder-signin"
	minSecretLen  = 32
)

// stateClaims is the signed payload carried through the OAuth round trip.
type stateClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// StateSigner issues and verifies the OAuth state parameter, binding the
// round trip to the chat user who asked to sign in.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner builds a signer. The secret must be at least 32 bytes.
func NewStateSigner(secret string, ttl time.Duration, now func() time.Time) (*StateSigner, error) {
	if len(secret) < minSecretLen {
		return nil, apperrors.New(apperrors.CodeConfigurationInvalid, "sign-in state secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Sign returns a state token for userID.
func (s *StateSigner) Sign(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "user id is required")
	}
	jti, err := id.NewID()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Audience:  jwt.ClaimStrings{stateAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the state signature, audience, and expiry, returning the
// user it was issued for.
func (s *StateSigner) Verify(state string) (string, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return "", apperrors.New(apperrors.CodeSignInStateInvalid, "sign-in state is required")
	}
	var parsed stateClaims
	_, err := jwt.ParseWithClaims(state, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if parsed.Issuer != stateIssuer || !audienceContains(parsed.Audience, stateAudience) {
		return "", apperrors.New(apperrors.CodeSignInStateInvalid, "sign-in state was not issued here")
	}
	if parsed.ExpiresAt == nil || !parsed.ExpiresAt.Time.After(s.now().UTC()) {
		return "", apperrors.New(apperrors.CodeSignInStateExpired, "sign-in state is expired")
	}
	if strings.TrimSpace(parsed.UserID) == "" {
		return "", apperrors.New(apperrors.CodeSignInStateInvalid, "sign-in state has no user")
	}
	return parsed.UserID, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Wrap(apperrors.CodeSignInStateInvalid, "sign-in state signature is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.Wrap(apperrors.CodeSignInStateInvalid, "sign-in state alg is invalid", err)
	}
	return apperrors.Wrap(apperrors.CodeSignInStateInvalid, "sign-in state is invalid", err)
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
