package sudoapi

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dardanova/dardanova"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	minDisplayNameLen = 2
	minPasswordLen    = 6
	maxPasswordLen    = 128
)

func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return Statusf(400, "Password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}

// CreateUser registers a new admin account and returns its id.
func (s *BaseAPI) CreateUser(ctx context.Context, email, displayName, password string) (int, error) {
	email = strings.TrimSpace(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return -1, Statusf(400, "Invalid email.")
	}
	if err := validatePassword(password); err != nil {
		return -1, err
	}
	if u, err := s.store.User(ctx, dardanova.UserFilter{Email: &email}); err != nil {
		return -1, WrapError(err, "Couldn't look up user")
	} else if u != nil {
		return -1, Statusf(400, "User matching email already exists!")
	}

	hash, err := dardanova.HashPassword(password)
	if err != nil {
		return -1, WrapError(err, "Couldn't hash password")
	}
	id, err := s.store.CreateUser(ctx, email, displayName, hash)
	if err != nil {
		return -1, WrapError(err, "Couldn't create user")
	}
	return id, nil
}

// UpdateProfile changes the display name and photo of user.
// The changes are mirrored into user on success.
func (s *BaseAPI) UpdateProfile(ctx context.Context, user *dardanova.User, upd dardanova.UserUpdate) error {
	if user == nil {
		return ErrUnauthenticated
	}
	upd.PwdHash = nil
	if upd.DisplayName == nil && upd.PhotoURL == nil {
		return ErrNoUpdates
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if utf8.RuneCountInString(name) < minDisplayNameLen {
			return Statusf(400, "Display name must be at least %d characters", minDisplayNameLen)
		}
		upd.DisplayName = &name
	}

	if err := s.store.UpdateUser(ctx, user.ID, upd); err != nil {
		return WrapError(err, "Couldn't update profile")
	}
	s.userCache.Delete(user.ID)

	if upd.DisplayName != nil {
		user.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		user.PhotoURL = *upd.PhotoURL
	}
	return nil
}

// UpdatePassword changes the password of user after re-authenticating with the current one.
func (s *BaseAPI) UpdatePassword(ctx context.Context, user *dardanova.User, current, newPassword string) error {
	if user == nil {
		return ErrUnauthenticated
	}
	fresh, err := s.store.User(ctx, dardanova.UserFilter{ID: &user.ID})
	if err != nil {
		return WrapError(err, "Couldn't look up user")
	}
	if fresh == nil {
		return ErrUnauthenticated
	}
	ok, err := dardanova.CheckPassword(fresh.Password, current)
	if err != nil {
		return WrapError(err, "Couldn't check password")
	}
	if !ok {
		return ErrReauthFailed
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := dardanova.HashPassword(newPassword)
	if err != nil {
		return WrapError(err, "Couldn't hash password")
	}
	if err := s.store.UpdateUser(ctx, user.ID, dardanova.UserUpdate{PwdHash: &hash}); err != nil {
		return WrapError(err, "Couldn't update password")
	}
	s.userCache.Delete(user.ID)
	user.Password = hash
	return nil
}
