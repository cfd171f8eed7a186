package web

import (
	"cmp"
	"encoding/base64"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dardanova/dardanova/sudoapi"
	"github.com/dardanova/dardanova/sudoapi/flags"
)

const (
	sessionCookie = "auth"
	viewsCookie   = "dn-views"

	// ViewCooldown is how long a client's repeated visits to a post count as one view.
	ViewCooldown = 24 * time.Hour
	// maxViewEntries and maxViewsValue keep the views cookie under the 4096 byte limit of browsers
	maxViewEntries = 50
	maxViewsValue  = 3800
)

func sessionCookieValue(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (rt *Web) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sudoapi.SessionDuration / time.Second),
		HttpOnly: true,
		Secure:   flags.SecureCookies.Value(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (rt *Web) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   flags.SecureCookies.Value(),
		SameSite: http.SameSiteLaxMode,
	})
}

// viewCooldown remembers when a client's view of each post was last counted.
// It is stored client side as base64url encoded JSON of post id -> unix seconds.
type viewCooldown map[string]int64

func readViewCooldown(r *http.Request) viewCooldown {
	c, err := r.Cookie(viewsCookie)
	if err != nil || c.Value == "" {
		return viewCooldown{}
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return viewCooldown{}
	}
	var vc viewCooldown
	if err := json.Unmarshal(data, &vc); err != nil || vc == nil {
		return viewCooldown{}
	}
	return vc
}

// shouldCount reports whether a view of the post at now falls outside the cooldown.
func (vc viewCooldown) shouldCount(id string, now time.Time) bool {
	last, ok := vc[id]
	if !ok {
		return true
	}
	return now.Sub(time.Unix(last, 0)) >= ViewCooldown
}

// mark records a counted view and prunes stale entries.
func (vc viewCooldown) mark(id string, now time.Time) {
	vc[id] = now.Unix()
	for key, last := range vc {
		if now.Sub(time.Unix(last, 0)) >= ViewCooldown {
			delete(vc, key)
		}
	}
	if len(vc) > maxViewEntries {
		vc.dropOldest(len(vc) - maxViewEntries)
	}
}

func (vc viewCooldown) dropOldest(n int) {
	keys := slices.SortedFunc(maps.Keys(vc), func(a, b string) int {
		return cmp.Or(cmp.Compare(vc[a], vc[b]), cmp.Compare(a, b))
	})
	for _, key := range keys[:min(n, len(keys))] {
		delete(vc, key)
	}
}

// encode returns the cookie value, dropping the oldest entries until it fits maxViewsValue.
func (vc viewCooldown) encode() string {
	for {
		data, _ := json.Marshal(vc)
		value := base64.RawURLEncoding.EncodeToString(data)
		if len(value) <= maxViewsValue || len(vc) == 0 {
			return value
		}
		vc.dropOldest(1)
	}
}

func (vc viewCooldown) cookie(now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     viewsCookie,
		Value:    vc.encode(),
		Path:     "/",
		Expires:  now.Add(ViewCooldown),
		HttpOnly: true,
		Secure:   flags.SecureCookies.Value(),
		SameSite: http.SameSiteLaxMode,
	}
}
