// Package memstore is an in-process implementation of the site store.
// It backs local development when no database is configured and serves as the test fixture store.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/google/uuid"
)

type session struct {
	userID    int
	expiresAt time.Time
}

type Store struct {
	mu sync.RWMutex

	posts    map[string]*dardanova.Post
	users    map[int]*dardanova.User
	sessions map[string]session
	lastUser int

	// Now returns the current time. It can be replaced in tests.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		posts:    make(map[string]*dardanova.Post),
		users:    make(map[int]*dardanova.User),
		sessions: make(map[string]session),
		Now:      time.Now,
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Post(_ context.Context, id string) (*dardanova.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	p := *post
	return &p, nil
}

func (s *Store) Posts(_ context.Context, filter dardanova.PostFilter) ([]*dardanova.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := []*dardanova.Post{}
	for _, post := range s.posts {
		if matchesPost(post, &filter) {
			p := *post
			posts = append(posts, &p)
		}
	}
	slices.SortFunc(posts, postComparator(filter.Ordering, filter.Ascending))

	if filter.Offset > 0 {
		posts = posts[min(filter.Offset, len(posts)):]
	}
	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (s *Store) PostStats(_ context.Context) (*dardanova.PostStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats dardanova.PostStats
	for _, post := range s.posts {
		stats.Total++
		if post.IsPublished {
			stats.Published++
		} else {
			stats.Drafts++
		}
		stats.Views += post.Views
	}
	return &stats, nil
}

func (s *Store) CreatePost(_ context.Context, args dardanova.PostCreate) (string, error) {
	if args.Title == "" || args.Lang == "" {
		return "", dardanova.ErrMissingRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	s.posts[id.String()] = &dardanova.Post{
		ID:        id.String(),
		CreatedAt: now,
		UpdatedAt: now,

		Title:      args.Title,
		Content:    args.Content,
		ImageURL:   args.ImageURL,
		AuthorName: args.AuthorName,
		Lang:       args.Lang,

		IsPublished: args.IsPublished,
		Views:       max(args.Views, 0),
	}
	return id.String(), nil
}

func (s *Store) UpdatePost(_ context.Context, id string, upd dardanova.PostUpdate) error {
	if upd.Empty() {
		return dardanova.ErrNoUpdates
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return dardanova.ErrNotFound
	}
	if v := upd.Title; v != nil {
		post.Title = strings.TrimSpace(*v)
	}
	if v := upd.Content; v != nil {
		post.Content = *v
	}
	if v := upd.ImageURL; v != nil {
		post.ImageURL = *v
	}
	if v := upd.AuthorName; v != nil {
		post.AuthorName = strings.TrimSpace(*v)
	}
	if v := upd.Lang; v != nil {
		post.Lang = *v
	}
	if v := upd.IsPublished; v != nil {
		post.IsPublished = *v
	}
	post.UpdatedAt = s.Now()
	if post.UpdatedAt.Before(post.CreatedAt) {
		post.UpdatedAt = post.CreatedAt
	}
	return nil
}

func (s *Store) IncrementPostViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return dardanova.ErrNotFound
	}
	post.Views++
	return nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *Store) User(_ context.Context, filter dardanova.UserFilter) (*dardanova.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessUser = -1
	if filter.SessionID != nil {
		sess, ok := s.sessions[*filter.SessionID]
		if !ok || !sess.expiresAt.After(s.Now()) {
			return nil, nil
		}
		sessUser = sess.userID
	}

	var ids []int
	for id := range s.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		user := s.users[id]
		if filter.ID != nil && user.ID != *filter.ID {
			continue
		}
		if filter.Email != nil && !strings.EqualFold(user.Email, strings.TrimSpace(*filter.Email)) {
			continue
		}
		if sessUser >= 0 && user.ID != sessUser {
			continue
		}
		u := *user
		return &u, nil
	}
	return nil, nil
}

func (s *Store) CreateUser(_ context.Context, email, displayName, passwordHash string) (int, error) {
	if email == "" || passwordHash == "" {
		return -1, dardanova.ErrMissingRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return -1, dardanova.Statusf(400, "Email already in use")
		}
	}
	s.lastUser++
	s.users[s.lastUser] = &dardanova.User{
		ID:          s.lastUser,
		CreatedAt:   s.Now(),
		Email:       strings.TrimSpace(email),
		DisplayName: strings.TrimSpace(displayName),
		Password:    passwordHash,
	}
	return s.lastUser, nil
}

func (s *Store) UpdateUser(_ context.Context, id int, upd dardanova.UserUpdate) error {
	if upd.DisplayName == nil && upd.PhotoURL == nil && upd.PwdHash == nil {
		return dardanova.ErrNoUpdates
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	if v := upd.DisplayName; v != nil {
		user.DisplayName = strings.TrimSpace(*v)
	}
	if v := upd.PhotoURL; v != nil {
		user.PhotoURL = *v
	}
	if v := upd.PwdHash; v != nil {
		user.Password = *v
	}
	return nil
}

func (s *Store) CreateSession(_ context.Context, sid string, uid int, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = session{userID: uid, expiresAt: expiresAt}
	return nil
}

func (s *Store) RemoveSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

func (s *Store) RemoveExpiredSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cnt int64
	now := s.Now()
	for sid, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, sid)
			cnt++
		}
	}
	return cnt, nil
}

func matchesPost(post *dardanova.Post, filter *dardanova.PostFilter) bool {
	if filter.ID != nil && post.ID != *filter.ID {
		return false
	}
	if filter.IDs != nil && !slices.Contains(filter.IDs, post.ID) {
		return false
	}
	if filter.Lang != nil && post.Lang != *filter.Lang {
		return false
	}
	if filter.Published != nil && post.IsPublished != *filter.Published {
		return false
	}
	return true
}

func postComparator(ordering string, ascending bool) func(a, b *dardanova.Post) int {
	return func(a, b *dardanova.Post) int {
		var c int
		switch ordering {
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case "views":
			c = cmp.Compare(a.Views, b.Views)
		case "title":
			c = cmp.Compare(a.Title, b.Title)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if !ascending {
			c = -c
		}
		if c == 0 {
			// UUIDv7 ids sort by creation time
			c = cmp.Compare(b.ID, a.ID)
		}
		return c
	}
}
