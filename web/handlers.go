package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/api"
	"github.com/dardanova/dardanova/internal/util"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/gorilla/schema"
)

const excerptLength = 150

var excerptReplacer = strings.NewReplacer("#", "", "*", "", "`", "")

// excerpt strips markdown markers from content and cuts it to a preview.
func excerpt(content string) string {
	content = strings.TrimSpace(excerptReplacer.Replace(content))
	if utf8.RuneCountInString(content) > excerptLength {
		content = string([]rune(content)[:excerptLength])
	}
	return content + "..."
}

type BlogPostIndexParams struct {
	Posts []*dardanova.Post
	Error string
}

func (rt *Web) blogPosts() http.HandlerFunc {
	templ := rt.parse(nil, "blog/index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := rt.base.ListPublished(r.Context(), util.Language(r))
		if err != nil {
			slog.WarnContext(r.Context(), "Could not get blog posts", slog.Any("err", err))
			rt.runTemplStatus(w, r, templ, 500, &BlogPostIndexParams{Error: rt.text(r, "blog.load_error")})
			return
		}
		rt.runTempl(w, r, templ, &BlogPostIndexParams{Posts: posts})
	}
}

type BlogPostParams struct {
	Post    *dardanova.Post
	Content template.HTML
}

func (rt *Web) blogPost() http.HandlerFunc {
	templ := rt.parse(nil, "blog/view.html")
	return func(w http.ResponseWriter, r *http.Request) {
		post := util.Post(r)

		now := rt.now()
		views := readViewCooldown(r)
		if views.shouldCount(post.ID, now) {
			if err := rt.base.IncrementViewCount(r.Context(), post.ID); err != nil {
				slog.WarnContext(r.Context(), "Couldn't count post view", slog.Any("err", err), slog.String("id", post.ID))
			} else {
				post.Views++
				views.mark(post.ID, now)
				http.SetCookie(w, views.cookie(now))
			}
		}

		content, err := rt.base.RenderMarkdown([]byte(post.Content))
		if err != nil {
			slog.WarnContext(r.Context(), "Error rendering post content", slog.Any("err", err), slog.String("id", post.ID))
			content = []byte(template.HTMLEscapeString(post.Content))
		}

		rt.runTempl(w, r, templ, &BlogPostParams{
			Post:    post,
			Content: template.HTML(content),
		})
	}
}

type ContactParams struct {
	Form    sudoapi.ContactMessage
	Success string
	Error   string
}

// contact renders the contact page. Form posts are the fallback for visitors without JavaScript,
// the page script talks to /api/contact instead.
func (rt *Web) contact() http.HandlerFunc {
	templ := rt.parse(nil, "contact.html")
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rt.runTempl(w, r, templ, &ContactParams{})
			return
		}

		var msg sudoapi.ContactMessage
		if err := r.ParseForm(); err != nil {
			rt.runTemplStatus(w, r, templ, 400, &ContactParams{Error: rt.text(r, "api.invalid_body")})
			return
		}
		if err := decoder.Decode(&msg, r.PostForm); err != nil {
			rt.runTemplStatus(w, r, templ, 400, &ContactParams{Error: rt.text(r, "api.invalid_body")})
			return
		}
		if !rt.limiter.AllowRequest(r) {
			rt.runTemplStatus(w, r, templ, 429, &ContactParams{Form: msg, Error: rt.text(r, "api.too_many_requests")})
			return
		}

		if err := rt.base.SendContactMessage(r.Context(), &msg); err != nil {
			rt.runTemplStatus(w, r, templ, dardanova.ErrorCode(err), &ContactParams{
				Form:  msg,
				Error: api.ContactErrorText(util.Language(r), err),
			})
			return
		}
		rt.runTempl(w, r, templ, &ContactParams{Success: rt.text(r, "contact.success")})
	}
}
