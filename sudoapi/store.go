package sudoapi

import (
	"context"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/db"
	"github.com/dardanova/dardanova/internal/memstore"
)

var (
	_ Store = &db.DB{}
	_ Store = &memstore.Store{}
)

// Store is the persistence contract of the site.
// Post and User return nil, nil when nothing matches.
type Store interface {
	Post(ctx context.Context, id string) (*dardanova.Post, error)
	Posts(ctx context.Context, filter dardanova.PostFilter) ([]*dardanova.Post, error)
	PostStats(ctx context.Context) (*dardanova.PostStats, error)
	CreatePost(ctx context.Context, args dardanova.PostCreate) (string, error)
	UpdatePost(ctx context.Context, id string, upd dardanova.PostUpdate) error
	IncrementPostViews(ctx context.Context, id string) error
	DeletePost(ctx context.Context, id string) error

	User(ctx context.Context, filter dardanova.UserFilter) (*dardanova.User, error)
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (int, error)
	UpdateUser(ctx context.Context, id int, upd dardanova.UserUpdate) error

	CreateSession(ctx context.Context, sid string, uid int, expiresAt time.Time) error
	RemoveSession(ctx context.Context, sid string) error
	RemoveExpiredSessions(ctx context.Context) (int64, error)

	Close() error
}
