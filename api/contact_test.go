package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/internal/memstore"
	"github.com/dardanova/dardanova/sudoapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []*dardanova.MailerMessage
	err  error
}

func (m *recordingMailer) SendEmail(_ context.Context, msg *dardanova.MailerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

type envelope struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

func newTestAPI(t *testing.T, limiter *RateLimiter) (http.Handler, *recordingMailer) {
	t.Helper()
	media, err := datastore.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)
	mailer := &recordingMailer{}
	base, err := sudoapi.GetBaseAPI(memstore.New(), media, mailer, []byte("test-secret"))
	require.NoError(t, err)
	if limiter == nil {
		limiter = NewRateLimiter(100, time.Minute)
	}
	return New(base, limiter).Handler(), mailer
}

func postJSON(t *testing.T, h http.Handler, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const validBody = `{"fullName":"Ayşe Yılmaz","email":"ayse@example.com","subject":"Teklif","message":"Merhaba","phone":"+90 555 000 00 00"}`

func TestContactSuccess(t *testing.T) {
	h, mailer := newTestAPI(t, nil)

	rec, env := postJSON(t, h, validBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Mesajınız başarıyla gönderildi", env.Data)

	require.Len(t, mailer.msgs, 1)
	msg := mailer.msgs[0]
	assert.Equal(t, "Yeni İletişim Formu Mesajı - Ayşe Yılmaz", msg.Subject)
	assert.Equal(t, "ayse@example.com", msg.ReplyTo)
	assert.NotContains(t, msg.HTMLContent, "{{")
	assert.Contains(t, msg.HTMLContent, "+90 555 000 00 00")
}

func TestContactMissingField(t *testing.T) {
	h, mailer := newTestAPI(t, nil)

	rec, env := postJSON(t, h, `{"fullName":"Ayşe","email":"ayse@example.com","subject":"Teklif"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, dardanova.GetText("tr", "contact.fill_all"), env.Data)
	assert.Empty(t, mailer.msgs)
}

func TestContactLocalizedErrors(t *testing.T) {
	h, _ := newTestAPI(t, nil)

	_, env := postJSON(t, h, `{"fullName":"A","email":"nope","subject":"S","message":"M"}`, "Accept-Language", "en-US,en;q=0.9")
	assert.Equal(t, dardanova.GetText("en", "contact.invalid_email"), env.Data)

	_, env = postJSON(t, h, `{"lang":"en"}`)
	assert.Equal(t, dardanova.GetText("en", "contact.fill_all"), env.Data)
	assert.NotEqual(t, dardanova.GetText("tr", "contact.fill_all"), env.Data)
}

func TestContactInvalidJSON(t *testing.T) {
	h, mailer := newTestAPI(t, nil)

	rec, env := postJSON(t, h, `{"fullName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Empty(t, mailer.msgs)
}

func TestContactForm(t *testing.T) {
	h, mailer := newTestAPI(t, nil)

	form := url.Values{
		"fullName": {"Mehmet"},
		"email":    {"mehmet@example.com"},
		"subject":  {"Soru"},
		"message":  {"Merhaba"},
	}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, mailer.msgs, 1)
}

func TestContactMailerFailure(t *testing.T) {
	h, mailer := newTestAPI(t, nil)
	mailer.err = errors.New("smtp unreachable")

	rec, env := postJSON(t, h, validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, dardanova.GetText("tr", "contact.error"), env.Data)
}

func TestContactRateLimit(t *testing.T) {
	h, mailer := newTestAPI(t, NewRateLimiter(2, time.Minute))

	for range 2 {
		rec, _ := postJSON(t, h, validBody)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := postJSON(t, h, validBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Len(t, mailer.msgs, 2)
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 10*time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(10 * time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestUnknownEndpoint(t *testing.T) {
	h, _ := newTestAPI(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
