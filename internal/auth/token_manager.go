package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cliphub/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token does not map to an active
	// session. A syntactically valid token hitting this error is a reuse signal:
	// rotation already consumed it.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid indicates a token failed signature or expiry verification.
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// SessionStore persists issued refresh tokens so each device login holds its
// own revocable session.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
	DeleteForUser(ctx context.Context, userID string) error
}

// Session represents a refresh token issued to a user on one device.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Manager issues and rotates signed session tokens backed by a persistent store.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager that signs HS256 tokens with the provided
// secret and persists refresh sessions in the store.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, store SessionStore) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret must not be empty")
	}
	if store == nil {
		return nil, errors.New("auth: session store must not be nil")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue creates a new pair of access and refresh tokens for the provided user
// identifier and records the refresh session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()

	accessToken, accessExpiry, err := m.sign(userID, tokenKindAccess, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExpiry, err := m.sign(userID, tokenKindRefresh, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.Save(ctx, Session{
		RefreshToken: refreshToken,
		UserID:       userID,
		ExpiresAt:    refreshExpiry,
	}); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save session: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// Verify checks the signature and expiry of an access token and returns the
// embedded user id.
func (m *Manager) Verify(tokenString string) (string, error) {
	return m.verify(tokenString, tokenKindAccess)
}

// Refresh exchanges a refresh token for a new session token pair. The token is
// single-use: the backing session row is deleted before the new pair is issued,
// so a replayed token fails with ErrSessionNotFound.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	userID, err := m.verify(refreshToken, tokenKindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if session.UserID != userID {
		return models.SessionTokens{}, ErrTokenInvalid
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.UserID)
}

// Revoke removes the provided refresh token's session, logging out one device.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, refreshToken)
}

// RevokeUser removes every active session for the user, logging out all devices.
func (m *Manager) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.DeleteForUser(ctx, userID)
}

func (m *Manager) sign(userID, kind string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiry := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiry, nil
}

func (m *Manager) verify(tokenString, kind string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", ErrTokenInvalid
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Kind != kind || c.Subject == "" {
		return "", ErrTokenInvalid
	}

	return c.Subject, nil
}
