package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/internal/util"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const langCookie = "dn-lang"

// paths that are never prefixed with a locale
var unlocalizedPrefixes = []string{"/api", "/static", "/media"}

func hasPathPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// routeGuard runs before routing. It only looks at the presence of the session cookie,
// the session itself is verified by mustBeAdmin.
func (rt *Web) routeGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if hasPathPrefix(p, "/admin") {
			hasCookie := sessionCookieValue(r) != ""
			isLogin := strings.TrimSuffix(p, "/") == "/admin/login"
			switch {
			case !hasCookie && !isLogin:
				http.Redirect(w, r, "/admin/login", http.StatusTemporaryRedirect)
			case hasCookie && isLogin:
				http.Redirect(w, r, "/admin/blogs", http.StatusTemporaryRedirect)
			default:
				next.ServeHTTP(w, r)
			}
			return
		}

		if !needsLocale(p) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := dardanova.ParseLocale(firstSegment(p)); ok {
			next.ServeHTTP(w, r)
			return
		}

		target := localePath(preferredLocale(r), p)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func needsLocale(p string) bool {
	for _, prefix := range unlocalizedPrefixes {
		if hasPathPrefix(p, prefix) {
			return false
		}
	}
	last := p[strings.LastIndex(p, "/")+1:]
	return !strings.Contains(last, ".")
}

// preferredLocale negotiates the locale from the language cookie and the Accept-Language header
func preferredLocale(r *http.Request) dardanova.Locale {
	cookieLang := ""
	if c, err := r.Cookie(langCookie); err == nil {
		cookieLang = c.Value
	}
	return dardanova.MatchLocale(cookieLang, r.Header.Get("Accept-Language"))
}

func (rt *Web) initSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionCookieValue(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := rt.base.SessionUser(r.Context(), token)
		if err != nil || user == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), util.UserKey, user)
		ctx = context.WithValue(ctx, util.SessionTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// initLanguage resolves the locale from the {lang} URL parameter, or negotiates it on routes without one.
// The chosen URL locale is remembered in a cookie for the next redirect.
func (rt *Web) initLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var lang dardanova.Locale
		if param := chi.URLParam(r, "lang"); param != "" {
			l, ok := dardanova.ParseLocale(param)
			if !ok {
				rt.statusPage(w, r, 404, rt.text(r, "status.not_found"))
				return
			}
			lang = l
			if c, err := r.Cookie(langCookie); err != nil || c.Value != lang.String() {
				http.SetCookie(w, &http.Cookie{
					Name:     langCookie,
					Value:    lang.String(),
					Path:     "/",
					Expires:  rt.now().Add(365 * 24 * time.Hour),
					SameSite: http.SameSiteLaxMode,
				})
			}
		} else {
			lang = preferredLocale(r)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), util.LangKey, lang)))
	})
}

// mustBeAdmin requires a verified session. A cookie that does not verify is cleared so the route guard can't loop.
func (rt *Web) mustBeAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if util.User(r) == nil {
			rt.clearSessionCookie(w)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validatePostID puts the post from the {id} URL parameter in the request context.
// With published set, drafts are reported as missing.
func (rt *Web) validatePostID(published bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if _, err := uuid.Parse(id); err != nil {
				rt.postNotFound(w, r, published)
				return
			}

			var post *dardanova.Post
			var err error
			if published {
				post, err = rt.base.PublishedPost(r.Context(), id)
			} else {
				post, err = rt.base.Post(r.Context(), id)
			}
			if err != nil {
				if dardanova.ErrorCode(err) == 404 {
					rt.postNotFound(w, r, published)
					return
				}
				slog.WarnContext(r.Context(), "Couldn't get post", slog.Any("err", err), slog.String("id", id))
				rt.statusPage(w, r, 500, rt.text(r, "blog.load_error"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), util.PostKey, post)))
		})
	}
}

func (rt *Web) postNotFound(w http.ResponseWriter, r *http.Request, public bool) {
	if public {
		rt.statusPageBack(w, r, 404, rt.text(r, "blog.not_found"), localePath(rt.locale(r), "/blog"), rt.text(r, "blog.back"))
		return
	}
	rt.statusPageBack(w, r, 404, rt.text(r, "blog.not_found"), "/admin/blogs", rt.text(r, "admin.posts.back"))
}
