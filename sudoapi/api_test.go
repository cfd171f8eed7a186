package sudoapi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/integrations/events"
	"github.com/dardanova/dardanova/internal/memstore"
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

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PostPublished
}

func (p *recordingPublisher) PublishPostPublished(_ context.Context, e events.PostPublished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var errMailer = errors.New("smtp unreachable")

// testClock hands out strictly increasing times.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	base      *BaseAPI
	store     *memstore.Store
	mailer    *recordingMailer
	publisher *recordingPublisher
	media     *datastore.DiskStore
	clock     *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New()
	store.Now = clock.Now

	media, err := datastore.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	mailer := &recordingMailer{}
	base, err := GetBaseAPI(store, media, mailer, []byte("test-secret"))
	require.NoError(t, err)
	base.SetClock(clock.Now)

	publisher := &recordingPublisher{}
	base.SetPublisher(publisher)

	return &testEnv{
		base:      base,
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		media:     media,
		clock:     clock,
	}
}

// addUser creates a user directly and returns it as stored.
func (e *testEnv) addUser(t *testing.T, email, password string) *dardanova.User {
	t.Helper()
	ctx := context.Background()
	id, err := e.base.CreateUser(ctx, email, "Admin", password)
	require.NoError(t, err)
	user, err := e.store.User(ctx, dardanova.UserFilter{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}
