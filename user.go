package dardanova

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an admin account of the site.
type User struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	Password string `json:"-"`
}

// Name returns the display name, falling back to the e-mail address.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// UserFilter is the struct with all filterable fields on the user
type UserFilter struct {
	ID *int `json:"id"`

	// Email is case insensitive
	Email *string `json:"email"`

	// SessionID matches the owner of an unexpired session
	SessionID *string `json:"-"`
}

// UserUpdate is the struct with all updatable fields on the user
type UserUpdate struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`

	PwdHash *string `json:"-"`
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), err
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
