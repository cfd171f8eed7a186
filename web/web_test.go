package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/api"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/internal/memstore"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []*dardanova.MailerMessage
}

func (m *recordingMailer) SendEmail(_ context.Context, msg *dardanova.MailerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

type testSite struct {
	rt      *Web
	handler http.Handler
	base    *sudoapi.BaseAPI
	store   *memstore.Store
	mailer  *recordingMailer
	admin   *dardanova.User

	now time.Time
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	store := memstore.New()
	media, err := datastore.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)
	mailer := &recordingMailer{}
	base, err := sudoapi.GetBaseAPI(store, media, mailer, []byte("test-secret"))
	require.NoError(t, err)

	id, err := base.CreateUser(context.Background(), "admin@dardanova.com", "Admin", "hunter22")
	require.NoError(t, err)
	admin, err := store.User(context.Background(), dardanova.UserFilter{ID: &id})
	require.NoError(t, err)

	s := &testSite{
		base:   base,
		store:  store,
		mailer: mailer,
		admin:  admin,
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	s.rt = NewWeb(base, api.NewRateLimiter(100, time.Minute))
	s.rt.now = func() time.Time { return s.now }
	s.handler = s.rt.Handler()
	return s
}

func (s *testSite) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testSite) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(t, req)
}

func (s *testSite) postForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(t, req)
}

func (s *testSite) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	_, token, err := s.base.SignIn(context.Background(), "admin@dardanova.com", "hunter22")
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (s *testSite) addPost(t *testing.T, title string, lang dardanova.Locale, published bool) string {
	t.Helper()
	id, err := s.base.CreatePost(context.Background(), s.admin, dardanova.PostCreate{
		Title:       title,
		Content:     "# " + title + "\n\nSome **bold** text.",
		AuthorName:  "Ayşe",
		Lang:        lang,
		IsPublished: published,
	})
	require.NoError(t, err)
	return id
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRouteGuard(t *testing.T) {
	s := newTestSite(t)
	valid := s.sessionCookie(t)

	rec := s.get(t, "/admin/blogs")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	rec = s.get(t, "/admin/settings")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	rec = s.get(t, "/admin/login")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.get(t, "/admin/login", valid)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/blogs", rec.Header().Get("Location"))

	rec = s.get(t, "/admin/login/", valid)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/blogs", rec.Header().Get("Location"))

	rec = s.get(t, "/admin/blogs", valid)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaleSessionCookie(t *testing.T) {
	s := newTestSite(t)

	rec := s.get(t, "/admin/blogs", &http.Cookie{Name: sessionCookie, Value: "not-a-token"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	cleared := responseCookie(rec, sessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)
}

func TestAdminIndex(t *testing.T) {
	s := newTestSite(t)

	rec := s.get(t, "/admin", s.sessionCookie(t))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin/blogs", rec.Header().Get("Location"))

	rec = s.get(t, "/admin")
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestLocaleRedirect(t *testing.T) {
	s := newTestSite(t)

	tests := []struct {
		path     string
		cookie   string
		accept   string
		location string
	}{
		{"/", "", "", "/tr"},
		{"/blog", "", "en-US,en;q=0.9", "/en/blog"},
		{"/blog", "", "de-DE", "/tr/blog"},
		{"/about?ref=x", "en", "tr", "/en/about?ref=x"},
		{"/xx/blog", "", "", "/tr/xx/blog"},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, test.path, nil)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: langCookie, Value: test.cookie})
			}
			if test.accept != "" {
				req.Header.Set("Accept-Language", test.accept)
			}
			rec := s.do(t, req)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, test.location, rec.Header().Get("Location"))
		})
	}
}

func TestUnlocalizedPaths(t *testing.T) {
	s := newTestSite(t)

	assert.Equal(t, http.StatusOK, s.get(t, "/robots.txt").Code)
	assert.Equal(t, http.StatusOK, s.get(t, "/sitemap.xml").Code)
	assert.Equal(t, http.StatusOK, s.get(t, "/static/style.css").Code)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/favicon.ico").Code)
}

func TestLocalizedPages(t *testing.T) {
	s := newTestSite(t)

	rec := s.get(t, "/tr")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dardanova.GetText("tr", "home.hero_title"))
	lc := responseCookie(rec, langCookie)
	require.NotNil(t, lc)
	assert.Equal(t, "tr", lc.Value)

	rec = s.get(t, "/en/about")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dardanova.GetText("en", "about.heading"))
	assert.Contains(t, rec.Body.String(), `href="/tr/about"`)

	rec = s.get(t, "/en/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), dardanova.GetText("en", "status.not_found"))
}

func TestBlogList(t *testing.T) {
	s := newTestSite(t)

	rec := s.get(t, "/tr/blog")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), dardanova.GetText("tr", "blog.empty"))

	s.addPost(t, "Merhaba Dünya", dardanova.LocaleTR, true)
	s.addPost(t, "Gizli Taslak", dardanova.LocaleTR, false)
	s.addPost(t, "Hello World", dardanova.LocaleEN, true)

	body := s.get(t, "/tr/blog").Body.String()
	assert.Contains(t, body, "Merhaba Dünya")
	assert.NotContains(t, body, "Gizli Taslak")
	assert.NotContains(t, body, "Hello World")
	assert.NotContains(t, body, dardanova.GetText("tr", "blog.empty"))

	body = s.get(t, "/en/blog").Body.String()
	assert.Contains(t, body, "Hello World")
	assert.NotContains(t, body, "Merhaba Dünya")
}

func TestBlogPost(t *testing.T) {
	s := newTestSite(t)
	id := s.addPost(t, "Merhaba Dünya", dardanova.LocaleTR, true)
	draft := s.addPost(t, "Taslak", dardanova.LocaleTR, false)

	rec := s.get(t, "/tr/blog/"+id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")

	for _, missing := range []string{draft, "0190a7a8-0000-7000-8000-000000000000", "not-a-uuid"} {
		rec = s.get(t, "/tr/blog/"+missing)
		assert.Equal(t, http.StatusNotFound, rec.Code, missing)
		assert.Contains(t, rec.Body.String(), dardanova.GetText("tr", "blog.not_found"))
		assert.Contains(t, rec.Body.String(), `href="/tr/blog"`)
	}
}

func TestViewCooldown(t *testing.T) {
	s := newTestSite(t)
	id := s.addPost(t, "Merhaba", dardanova.LocaleTR, true)

	views := func() int {
		post, err := s.base.Post(context.Background(), id)
		require.NoError(t, err)
		return post.Views
	}

	rec := s.get(t, "/tr/blog/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, views())
	cookie := responseCookie(rec, viewsCookie)
	require.NotNil(t, cookie)

	s.now = s.now.Add(time.Hour)
	rec = s.get(t, "/tr/blog/"+id, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, views())

	s.now = s.now.Add(ViewCooldown)
	rec = s.get(t, "/tr/blog/"+id, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, views())

	// a client without the cookie always counts
	s.get(t, "/tr/blog/"+id)
	assert.Equal(t, 3, views())
}

func TestViewCooldownPruning(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	vc := viewCooldown{"stale": now.Add(-ViewCooldown - time.Minute).Unix()}
	for i := range maxViewEntries {
		vc[fmt.Sprintf("p%03d", i)] = now.Add(-time.Duration(maxViewEntries-i) * time.Second).Unix()
	}

	vc.mark("fresh", now)
	assert.Len(t, vc, maxViewEntries)
	assert.NotContains(t, vc, "stale")
	assert.Contains(t, vc, "fresh")
	assert.NotContains(t, vc, "p000", "the oldest entry is dropped")
	assert.Contains(t, vc, "p001")
	assert.False(t, vc.shouldCount("fresh", now.Add(time.Hour)))
	assert.True(t, vc.shouldCount("fresh", now.Add(ViewCooldown)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(vc.cookie(now))
	assert.Equal(t, vc, readViewCooldown(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: viewsCookie, Value: "%%%"})
	assert.Empty(t, readViewCooldown(req))
}

func TestViewCooldownCookieSize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	vc := viewCooldown{}
	for i := range maxViewEntries + 20 {
		vc.mark(uuid.Must(uuid.NewV7()).String(), now.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, vc, maxViewEntries)
	c := vc.cookie(now)
	assert.LessOrEqual(t, len(c.String()), 4096)

	// ids longer than post ids still fit, keeping the newest entries
	long := viewCooldown{}
	for i := range maxViewEntries {
		long[fmt.Sprintf("%0200d", i)] = now.Add(time.Duration(i) * time.Second).Unix()
	}
	c = long.cookie(now)
	assert.LessOrEqual(t, len(c.Value), maxViewsValue)
	assert.LessOrEqual(t, len(c.String()), 4096)
	assert.NotEmpty(t, long)
	assert.Contains(t, long, fmt.Sprintf("%0200d", maxViewEntries-1))
	assert.NotContains(t, long, fmt.Sprintf("%0200d", 0))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	assert.Equal(t, long, readViewCooldown(req))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Title Some bold and code...", excerpt("# Title Some **bold** and `code`"))
	assert.Equal(t, "...", excerpt(""))

	long := strings.Repeat("ş", 200)
	out := excerpt(long)
	assert.Equal(t, strings.Repeat("ş", excerptLength)+"...", out)
}

func TestSwitchLocale(t *testing.T) {
	assert.Equal(t, "/en/blog/abc", switchLocale("/tr/blog/abc", dardanova.LocaleEN))
	assert.Equal(t, "/tr", switchLocale("/en", dardanova.LocaleTR))
	assert.Equal(t, "/en", switchLocale("/admin/blogs", dardanova.LocaleEN))
}

func TestSitemap(t *testing.T) {
	s := newTestSite(t)
	published := s.addPost(t, "Merhaba", dardanova.LocaleTR, true)
	draft := s.addPost(t, "Taslak", dardanova.LocaleTR, false)

	rec := s.get(t, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/tr/blog/"+published+"</loc>")
	assert.NotContains(t, body, draft)
	assert.Contains(t, body, "/en/about</loc>")
	assert.Contains(t, body, "/tr/contact</loc>")

	assert.Contains(t, s.get(t, "/robots.txt").Body.String(), "/sitemap.xml")
}
