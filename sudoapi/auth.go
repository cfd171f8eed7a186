package sudoapi

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dardanova/dardanova"
	metrics "github.com/dardanova/dardanova/integrations/prometheus"
	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long a session (and its cookie) stays valid.
const SessionDuration = 7 * 24 * time.Hour

var (
	ErrUserNotFound       = dardanova.ErrUserNotFound
	ErrInvalidCredentials = dardanova.ErrInvalidCredentials
	ErrReauthFailed       = dardanova.ErrReauthFailed
)

// SignIn checks the credentials and opens a new session.
// It returns the user and the signed session token to be stored in the session cookie.
func (s *BaseAPI) SignIn(ctx context.Context, email, password string) (*dardanova.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingRequired
	}

	user, err := s.store.User(ctx, dardanova.UserFilter{Email: &email})
	if err != nil {
		return nil, "", WrapError(err, "Couldn't look up user")
	}
	if user == nil {
		metrics.SignIns.WithLabelValues("unknown_user").Inc()
		return nil, "", ErrUserNotFound
	}

	ok, err := dardanova.CheckPassword(user.Password, password)
	if err != nil {
		// The stored hash is malformed
		slog.WarnContext(ctx, "Couldn't compare password hash", slog.Any("err", err), slog.Int("user_id", user.ID))
		return nil, "", ErrUnknownError
	}
	if !ok {
		metrics.SignIns.WithLabelValues("invalid_credentials").Inc()
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	metrics.SignIns.WithLabelValues("success").Inc()
	return user, token, nil
}

// CreateSession opens a session for uid and returns its signed token.
func (s *BaseAPI) CreateSession(ctx context.Context, uid int) (string, error) {
	sid := dardanova.RandomString(32)
	now := s.now()
	expiresAt := now.Add(SessionDuration)
	if err := s.store.CreateSession(ctx, sid, uid, expiresAt); err != nil {
		slog.WarnContext(ctx, "Failed to create session", slog.Any("err", err))
		return "", WrapError(err, "Failed to create session")
	}
	s.sessionCache.Delete(sid)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sid,
		Subject:   strconv.Itoa(uid),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(s.secret)
	if err != nil {
		return "", WrapError(err, "Failed to sign session")
	}
	return token, nil
}

// parseToken returns the claims of a valid, unexpired session token.
func (s *BaseAPI) parseToken(token string) (*jwt.RegisteredClaims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || claims.ID == "" {
		return nil, false
	}
	return claims, true
}

// SessionUser returns the user owning the session token, or nil if the token is invalid or the session is gone.
func (s *BaseAPI) SessionUser(ctx context.Context, token string) (*dardanova.User, error) {
	claims, ok := s.parseToken(token)
	if !ok {
		return nil, nil
	}

	uid, err := s.sessionCache.Get(ctx, claims.ID)
	if err != nil {
		slog.WarnContext(ctx, "session cache error", slog.Any("err", err))
		return nil, WrapError(err, "Failed to get session")
	}
	if uid <= 0 || claims.Subject != strconv.Itoa(uid) {
		return nil, nil
	}

	user, err := s.userCache.Get(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "user cache error", slog.Any("err", err))
		return nil, WrapError(err, "Failed to get session user")
	}
	if user == nil {
		return nil, nil
	}
	u := *user
	return &u, nil
}

// SignOut removes the session behind token. Invalid tokens are ignored.
func (s *BaseAPI) SignOut(ctx context.Context, token string) error {
	claims, ok := s.parseToken(token)
	if !ok {
		return nil
	}
	if err := s.store.RemoveSession(ctx, claims.ID); err != nil {
		slog.WarnContext(ctx, "Failed to remove session", slog.Any("err", err))
		return WrapError(err, "Failed to remove session")
	}
	s.sessionCache.Delete(claims.ID)
	return nil
}
