// Package api serves the JSON endpoints of the site under /api.
package api

import (
	"net/http"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/dardanova/dardanova/sudoapi/flags"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// ContactWindow is the window of the contact rate limit.
const ContactWindow = 10 * time.Minute

// API is the base struct for the JSON endpoints
type API struct {
	base    *sudoapi.BaseAPI
	limiter *RateLimiter
}

// New declares a new API instance. If limiter is nil, one is built from the contact rate limit flag.
func New(base *sudoapi.BaseAPI, limiter *RateLimiter) *API {
	if limiter == nil {
		limiter = NewRateLimiter(flags.ContactRateLimit.Value(), ContactWindow)
	}
	return &API{base: base, limiter: limiter}
}

// Handler is the http handler to be attached under /api
func (s *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		MaxAge:         300,
	}))

	r.With(s.limiter.Limit).Post("/contact", s.sendContact)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorData(w, "Endpoint not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorData(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// requestLocale returns the locale requested explicitly, or the one negotiated from Accept-Language.
func requestLocale(r *http.Request, explicit string) dardanova.Locale {
	if l, ok := dardanova.ParseLocale(explicit); ok {
		return l
	}
	return dardanova.MatchLocale(r.Header.Get("Accept-Language"))
}
