package sudoapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/integrations/events"
	metrics "github.com/dardanova/dardanova/integrations/prometheus"
)

// ListPublished returns the published posts of a locale, newest first.
func (s *BaseAPI) ListPublished(ctx context.Context, lang dardanova.Locale) ([]*dardanova.Post, error) {
	if !lang.Valid() {
		return nil, Statusf(400, "Invalid language")
	}
	cached, gen, cacheErr := s.listCache.Get(ctx, lang)
	if cacheErr != nil {
		slog.WarnContext(ctx, "Couldn't read post listing from cache", slog.Any("err", cacheErr))
	} else if cached != nil {
		return cached, nil
	}

	published := true
	posts, err := s.store.Posts(ctx, dardanova.PostFilter{
		Lang:      &lang,
		Published: &published,
		Ordering:  "created_at",
	})
	if err != nil {
		return nil, WrapError(err, "Couldn't get posts")
	}
	if posts == nil {
		posts = []*dardanova.Post{}
	}

	if cacheErr == nil {
		if err := s.listCache.Set(ctx, lang, gen, posts); err != nil {
			slog.WarnContext(ctx, "Couldn't cache post listing", slog.Any("err", err))
		}
	}
	return posts, nil
}

// ListAll returns every post regardless of publish state, newest first.
func (s *BaseAPI) ListAll(ctx context.Context) ([]*dardanova.Post, error) {
	posts, err := s.store.Posts(ctx, dardanova.PostFilter{Ordering: "created_at"})
	if err != nil {
		return nil, WrapError(err, "Couldn't get posts")
	}
	if posts == nil {
		posts = []*dardanova.Post{}
	}
	return posts, nil
}

func (s *BaseAPI) Post(ctx context.Context, id string) (*dardanova.Post, error) {
	post, err := s.store.Post(ctx, id)
	if err != nil {
		return nil, WrapError(err, "Couldn't get post")
	}
	if post == nil {
		return nil, WrapError(ErrNotFound, "Post not found")
	}
	return post, nil
}

// PublishedPost is the public variant of Post. Unpublished posts are reported as not found.
func (s *BaseAPI) PublishedPost(ctx context.Context, id string) (*dardanova.Post, error) {
	post, err := s.Post(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished {
		return nil, WrapError(ErrNotFound, "Post not found")
	}
	return post, nil
}

func (s *BaseAPI) PostStats(ctx context.Context, user *dardanova.User) (*dardanova.PostStats, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	stats, err := s.store.PostStats(ctx)
	if err != nil {
		return nil, WrapError(err, "Couldn't get post stats")
	}
	return stats, nil
}

func validatePostFields(title *string, lang *dardanova.Locale) error {
	if title != nil && strings.TrimSpace(*title) == "" {
		return Statusf(400, "Title can't be empty!")
	}
	if lang != nil && !lang.Valid() {
		return Statusf(400, "Invalid language")
	}
	return nil
}

// CreatePost creates a post and returns its id.
// Unless overridden in args, the post starts as an unpublished draft with no views.
func (s *BaseAPI) CreatePost(ctx context.Context, user *dardanova.User, args dardanova.PostCreate) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	args.Title = strings.TrimSpace(args.Title)
	args.AuthorName = strings.TrimSpace(args.AuthorName)
	if args.Lang == "" {
		args.Lang = dardanova.DefaultLocale
	}
	if err := validatePostFields(&args.Title, &args.Lang); err != nil {
		return "", err
	}
	if args.AuthorName == "" {
		args.AuthorName = user.Name()
	}
	if args.Views < 0 {
		return "", Statusf(400, "View count can't be negative")
	}

	id, err := s.store.CreatePost(ctx, args)
	if err != nil {
		return "", WrapError(err, "Couldn't create post")
	}
	s.invalidateListings(ctx)

	slog.InfoContext(ctx, "Post created", slog.String("id", id), slog.Int("user_id", user.ID))
	if args.IsPublished {
		s.publishPostEvent(ctx, id)
	}
	return id, nil
}

// UpdatePost applies a partial update. A post becoming published emits an event.
func (s *BaseAPI) UpdatePost(ctx context.Context, user *dardanova.User, id string, upd dardanova.PostUpdate) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if upd.Empty() {
		return ErrNoUpdates
	}
	if err := validatePostFields(upd.Title, upd.Lang); err != nil {
		return err
	}

	post, err := s.Post(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePost(ctx, id, upd); err != nil {
		return WrapError(err, "Couldn't update post")
	}
	s.invalidateListings(ctx)

	if upd.IsPublished != nil && *upd.IsPublished && !post.IsPublished {
		s.publishPostEvent(ctx, id)
	}
	return nil
}

func (s *BaseAPI) SetPublished(ctx context.Context, user *dardanova.User, id string, published bool) error {
	return s.UpdatePost(ctx, user, id, dardanova.PostUpdate{IsPublished: &published})
}

// IncrementViewCount adds one view to the post.
// Callers are responsible for deduplicating views from the same client.
func (s *BaseAPI) IncrementViewCount(ctx context.Context, id string) error {
	if err := s.store.IncrementPostViews(ctx, id); err != nil {
		return WrapError(err, "Couldn't count view")
	}
	metrics.PostViews.Inc()
	return nil
}

// DeletePost permanently removes a post.
func (s *BaseAPI) DeletePost(ctx context.Context, user *dardanova.User, id string) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if _, err := s.Post(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return WrapError(err, "Couldn't delete post")
	}
	s.invalidateListings(ctx)
	slog.InfoContext(ctx, "Post deleted", slog.String("id", id), slog.Int("user_id", user.ID))
	return nil
}

// RenderMarkdown renders post content with the restricted rule set.
func (s *BaseAPI) RenderMarkdown(src []byte) ([]byte, error) {
	out, err := s.rd.Render(src)
	if err != nil {
		return nil, WrapError(err, "Couldn't render content")
	}
	return out, nil
}

func (s *BaseAPI) invalidateListings(ctx context.Context) {
	if err := s.listCache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "Couldn't invalidate post listings", slog.Any("err", err))
	}
}

func (s *BaseAPI) publishPostEvent(ctx context.Context, id string) {
	post, err := s.Post(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Couldn't load published post", slog.Any("err", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err = s.publisher.PublishPostPublished(ctx, events.PostPublished{
		PostID:      post.ID,
		Title:       post.Title,
		Lang:        post.Lang.String(),
		AuthorName:  post.AuthorName,
		PublishedAt: s.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "Couldn't publish post event", slog.Any("err", err))
	}
}
