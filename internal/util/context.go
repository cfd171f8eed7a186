package util

import (
	"context"
	"net/http"

	"github.com/dardanova/dardanova"
)

// DNContextType is the string type for all context values
type DNContextType string

const (
	// UserKey is the key to be used for adding the verified session user to context
	UserKey = DNContextType("user")
	// SessionTokenKey holds the raw session token of the verified user
	SessionTokenKey = DNContextType("session_token")
	// PostKey is the key to be used for adding posts to context
	PostKey = DNContextType("post")
	// LangKey holds the resolved locale of the request
	LangKey = DNContextType("lang")
)

// User returns the verified session user from request context
func User(r *http.Request) *dardanova.User {
	return UserContext(r.Context())
}

func UserContext(ctx context.Context) *dardanova.User {
	switch v := ctx.Value(UserKey).(type) {
	case dardanova.User:
		return &v
	case *dardanova.User:
		return v
	default:
		return nil
	}
}

func SessionToken(r *http.Request) string {
	v, _ := r.Context().Value(SessionTokenKey).(string)
	return v
}

// Post returns the post from request context
func Post(r *http.Request) *dardanova.Post {
	switch v := r.Context().Value(PostKey).(type) {
	case dardanova.Post:
		return &v
	case *dardanova.Post:
		return v
	default:
		return nil
	}
}

// Language returns the locale of the request, falling back to the default one
func Language(r *http.Request) dardanova.Locale {
	return LanguageContext(r.Context())
}

func LanguageContext(ctx context.Context) dardanova.Locale {
	if v, ok := ctx.Value(LangKey).(dardanova.Locale); ok && v.Valid() {
		return v
	}
	return dardanova.DefaultLocale
}
