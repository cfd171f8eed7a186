package web

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/internal/config"
)

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

var staticRoutes = []struct {
	path       string
	changeFreq string
	priority   string
}{
	{"", "monthly", "1.0"},
	{"/about", "monthly", "0.8"},
	{"/blog", "weekly", "0.9"},
	{"/contact", "monthly", "0.7"},
}

func baseURL() string {
	return strings.TrimSuffix(config.Common.BaseURL, "/")
}

func (rt *Web) sitemap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := baseURL()
		now := rt.now().UTC().Format(time.DateOnly)

		set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
		for _, lang := range dardanova.Locales {
			for _, route := range staticRoutes {
				set.URLs = append(set.URLs, sitemapURL{
					Loc:        base + "/" + lang.String() + route.path,
					LastMod:    now,
					ChangeFreq: route.changeFreq,
					Priority:   route.priority,
				})
			}

			posts, err := rt.base.ListPublished(r.Context(), lang)
			if err != nil {
				slog.WarnContext(r.Context(), "Couldn't list posts for sitemap", slog.Any("err", err), slog.Any("lang", lang))
				continue
			}
			for _, post := range posts {
				set.URLs = append(set.URLs, sitemapURL{
					Loc:        base + "/" + lang.String() + "/blog/" + post.ID,
					LastMod:    post.UpdatedAt.UTC().Format(time.DateOnly),
					ChangeFreq: "monthly",
					Priority:   "0.6",
				})
			}
		}

		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		if _, err := w.Write([]byte(xml.Header)); err != nil {
			return
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(set); err != nil {
			slog.WarnContext(r.Context(), "Couldn't write sitemap", slog.Any("err", err))
		}
	}
}

func (rt *Web) robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /admin\nDisallow: /api\n\nSitemap: %s/sitemap.xml\n", baseURL())
}
