// Package web is the server-rendered part of the site: the public localized pages and the admin console.
// If sudoapi interacts with the store, the `web` package interacts with the visitor.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/hashfs"
	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/api"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/internal/util"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/dardanova/dardanova/sudoapi/flags"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

//go:generate go run ../scripts/chroma_gen -o static/chroma.css

//go:embed static
var embedded embed.FS

//go:embed templ
var templateDir embed.FS

var fsys = hashfs.NewFS(mustSub(embedded, "static"))

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Web is the struct representing this whole package
type Web struct {
	base    *sudoapi.BaseAPI
	limiter *api.RateLimiter

	statusTempl *template.Template

	now func() time.Time
}

// NewWeb returns the web router. limiter is shared with the contact API so both forms count towards one limit.
func NewWeb(base *sudoapi.BaseAPI, limiter *api.RateLimiter) *Web {
	if limiter == nil {
		limiter = api.NewRateLimiter(flags.ContactRateLimit.Value(), api.ContactWindow)
	}
	rt := &Web{base: base, limiter: limiter, now: time.Now}
	rt.statusTempl = rt.parse(nil, "util/statusCode.html")
	return rt
}

// Handler returns a http.Handler serving the whole site except /api
func (rt *Web) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(rt.routeGuard)
	r.Use(rt.initSession)

	r.Mount("/static", http.StripPrefix("/static", hashfs.FileServer(fsys)))
	if disk, ok := rt.base.Media().(*datastore.DiskStore); ok {
		r.Mount("/media", http.StripPrefix("/media", http.FileServer(http.FS(disk.FS()))))
	}

	r.Get("/sitemap.xml", rt.sitemap())
	r.Get("/robots.txt", rt.robots)

	r.Route("/admin", func(r chi.Router) {
		r.Use(rt.initLanguage)
		r.Get("/", rt.adminIndex)
		r.Get("/login", rt.loginPage())
		r.Post("/login", rt.postLogin())
		r.HandleFunc("/logout", rt.logout)

		r.Group(func(r chi.Router) {
			r.Use(rt.mustBeAdmin)
			r.Get("/dashboard", rt.dashboard())

			r.Route("/blogs", func(r chi.Router) {
				r.Get("/", rt.adminPosts())
				r.Get("/new", rt.newPost())
				r.Post("/new", rt.newPost())
				r.Route("/{id}", func(r chi.Router) {
					r.Use(rt.validatePostID(false))
					r.Get("/", rt.editPost())
					r.Post("/", rt.editPost())
					r.Get("/confirm", rt.confirmPostAction())
					r.Post("/delete", rt.deletePost)
					r.Post("/publish", rt.publishPost)
				})
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", rt.settings())
				r.Post("/profile", rt.updateProfile())
				r.Post("/password", rt.updatePassword())
			})
		})
	})

	r.Route("/{lang}", func(r chi.Router) {
		r.Use(rt.initLanguage)
		r.Get("/", rt.justRender("index.html"))
		r.Get("/about", rt.justRender("about.html"))
		r.Get("/contact", rt.contact())
		r.Post("/contact", rt.contact())
		r.Get("/blog", rt.blogPosts())
		r.With(rt.validatePostID(true)).Get("/blog/{id}", rt.blogPost())
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.statusPage(w, r, 404, rt.text(r, "status.not_found"))
	})
	return r
}

var layoutFiles = []string{"layout.html", "util/navbar.html", "util/footer.html"}

var adminLayoutFiles = []string{"admin/layout.html"}

// parse parses the given template files on top of the public layout
func (rt *Web) parse(optFuncs template.FuncMap, files ...string) *template.Template {
	return rt.parseWith(layoutFiles, optFuncs, files...)
}

// parseAdmin parses the given template files on top of the admin console layout
func (rt *Web) parseAdmin(optFuncs template.FuncMap, files ...string) *template.Template {
	return rt.parseWith(adminLayoutFiles, optFuncs, files...)
}

func (rt *Web) parseWith(layout []string, optFuncs template.FuncMap, files ...string) *template.Template {
	patterns := make([]string, 0, len(layout)+len(files))
	for _, file := range append(layout[:len(layout):len(layout)], files...) {
		patterns = append(patterns, "templ/"+file)
	}
	t := template.New("layout.html").Funcs(rt.funcs()).Funcs(requestFuncStubs)
	if optFuncs != nil {
		t = t.Funcs(optFuncs)
	}
	return template.Must(t.ParseFS(templateDir, patterns...))
}

func (rt *Web) funcs() template.FuncMap {
	return template.FuncMap{
		"hashName": func(name string) string {
			return "/static/" + fsys.HashName(name)
		},
		"branding": func() string {
			return flags.NavbarBranding.Value()
		},
		"locales": func() []dardanova.Locale {
			return dardanova.Locales
		},
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"bytes": func(n int64) string {
			return humanize.Bytes(uint64(n))
		},
		"excerpt": excerpt,
		"year": func() int {
			return rt.now().Year()
		},
		"maxUploadSize": func() int64 {
			return datastore.MaxUploadSize
		},
	}
}

// requestFuncStubs are replaced in runTemplate, they are only needed so templates can be parsed
var requestFuncStubs = template.FuncMap{
	"t":            func(string, ...any) string { return "" },
	"language":     func() dardanova.Locale { return dardanova.DefaultLocale },
	"authedUser":   func() *dardanova.User { return nil },
	"reqPath":      func() string { return "/" },
	"localePath":   func(string) string { return "/" },
	"switchLocale": func(dardanova.Locale) string { return "/" },
	"formatDate":   func(time.Time) string { return "" },
	"agoDate":      func(time.Time) string { return "" },
}

func (rt *Web) runTempl(w http.ResponseWriter, r *http.Request, templ *template.Template, data any) {
	rt.runTemplStatus(w, r, templ, http.StatusOK, data)
}

func (rt *Web) runTemplStatus(w http.ResponseWriter, r *http.Request, hTempl *template.Template, code int, data any) {
	hTempl, err := hTempl.Clone()
	if err != nil {
		slog.ErrorContext(r.Context(), "Error cloning template", slog.Any("err", err))
		http.Error(w, "Error cloning template, report to admin", 500)
		return
	}

	lang := rt.locale(r)
	authedUser := util.User(r)
	hTempl.Funcs(template.FuncMap{
		"t": func(line string, args ...any) string {
			return dardanova.GetText(lang.String(), line, args...)
		},
		"language": func() dardanova.Locale {
			return lang
		},
		"authedUser": func() *dardanova.User {
			return authedUser
		},
		"reqPath": func() string {
			return r.URL.Path
		},
		"localePath": func(p string) string {
			return localePath(lang, p)
		},
		"switchLocale": func(to dardanova.Locale) string {
			return switchLocale(r.URL.Path, to)
		},
		"formatDate": func(t time.Time) string {
			return formatDate(lang, t)
		},
		"agoDate": func(t time.Time) string {
			if lang != dardanova.LocaleEN {
				return formatDate(lang, t)
			}
			return humanize.RelTime(t, rt.now(), "ago", "from now")
		},
	})

	var buf bytes.Buffer
	if err := hTempl.Execute(&buf, data); err != nil {
		slog.WarnContext(r.Context(), "Error executing template", slog.Any("err", err), slog.String("path", r.URL.Path))
		http.Error(w, "Error rendering page, report to admin", 500)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		slog.DebugContext(r.Context(), "Couldn't write page", slog.Any("err", err))
	}
}

func (rt *Web) justRender(files ...string) http.HandlerFunc {
	templ := rt.parse(nil, files...)
	return func(w http.ResponseWriter, r *http.Request) {
		rt.runTempl(w, r, templ, nil)
	}
}

type StatusParams struct {
	Code    int
	Message string

	BackLink string
	BackText string
}

func (rt *Web) statusPage(w http.ResponseWriter, r *http.Request, statusCode int, errMessage string) {
	rt.statusPageBack(w, r, statusCode, errMessage, "", "")
}

func (rt *Web) statusPageBack(w http.ResponseWriter, r *http.Request, statusCode int, errMessage, backLink, backText string) {
	if backLink == "" {
		backLink = localePath(rt.locale(r), "/")
		backText = rt.text(r, "status.home")
	}
	rt.runTemplStatus(w, r, rt.statusTempl, statusCode, &StatusParams{
		Code:    statusCode,
		Message: errMessage,

		BackLink: backLink,
		BackText: backText,
	})
}

// locale returns the locale resolved by initLanguage, or negotiates one for routes outside of it.
func (rt *Web) locale(r *http.Request) dardanova.Locale {
	if v, ok := r.Context().Value(util.LangKey).(dardanova.Locale); ok && v.Valid() {
		return v
	}
	if l, ok := dardanova.ParseLocale(firstSegment(r.URL.Path)); ok {
		return l
	}
	return preferredLocale(r)
}

func (rt *Web) text(r *http.Request, line string, args ...any) string {
	return dardanova.GetText(rt.locale(r).String(), line, args...)
}

func localePath(lang dardanova.Locale, p string) string {
	if p == "" || p == "/" {
		return "/" + lang.String()
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "/" + lang.String() + p
}

// switchLocale returns the same public page in another locale
func switchLocale(p string, to dardanova.Locale) string {
	if _, ok := dardanova.ParseLocale(firstSegment(p)); !ok {
		return localePath(to, "/")
	}
	rest := strings.TrimPrefix(p, "/"+firstSegment(p))
	return localePath(to, rest)
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	seg, _, _ := strings.Cut(p, "/")
	return seg
}

var monthsTR = [...]string{"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran", "Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"}

func formatDate(lang dardanova.Locale, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if lang == dardanova.LocaleTR {
		return fmt.Sprintf("%d %s %d", t.Day(), monthsTR[t.Month()-1], t.Year())
	}
	return t.Format("January 2, 2006")
}
