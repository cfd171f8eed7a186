// Package events publishes site events to a message broker.
package events

import (
	"context"
	"time"
)

// PostPublished is emitted when a post becomes publicly visible.
type PostPublished struct {
	PostID      string    `json:"post_id"`
	Title       string    `json:"title"`
	Lang        string    `json:"lang"`
	AuthorName  string    `json:"author_name"`
	PublishedAt time.Time `json:"published_at"`
}

type Publisher interface {
	PublishPostPublished(ctx context.Context, e PostPublished) error
	Close() error
}

var _ Publisher = NoopPublisher{}

type NoopPublisher struct{}

func (NoopPublisher) PublishPostPublished(context.Context, PostPublished) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }
