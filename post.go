package dardanova

import (
	"time"
)

// Locale is one of the statically declared site languages.
type Locale string

const (
	LocaleTR Locale = "tr"
	LocaleEN Locale = "en"

	DefaultLocale = LocaleTR
)

// Locales lists all supported locales, default first.
var Locales = []Locale{LocaleTR, LocaleEN}

func (l Locale) String() string {
	return string(l)
}

func (l Locale) Valid() bool {
	_, ok := ParseLocale(string(l))
	return ok
}

// ParseLocale returns the locale for a two-letter code.
func ParseLocale(s string) (Locale, bool) {
	for _, l := range Locales {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

type Post struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title      string `json:"title"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	AuthorName string `json:"author_name"`
	Lang       Locale `json:"lang"`

	IsPublished bool `json:"is_published"`
	Views       int  `json:"views"`
}

type PostFilter struct {
	ID  *string  `json:"id"`
	IDs []string `json:"ids"`

	Lang      *Locale `json:"lang"`
	Published *bool   `json:"published"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	// Ordering is one of "created_at" (default), "updated_at", "views" or "title"
	Ordering  string `json:"ordering"`
	Ascending bool   `json:"ascending"`
}

// PostCreate holds the fields of a new post.
// IsPublished and Views are explicit overrides of the defaults (false, 0).
type PostCreate struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	AuthorName string `json:"author_name"`
	Lang       Locale `json:"lang"`

	IsPublished bool `json:"is_published"`
	Views       int  `json:"views"`
}

type PostUpdate struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	ImageURL   *string `json:"image_url"`
	AuthorName *string `json:"author_name"`
	Lang       *Locale `json:"lang"`

	IsPublished *bool `json:"is_published"`
}

// Empty reports whether the update carries no changes.
func (upd PostUpdate) Empty() bool {
	return upd.Title == nil && upd.Content == nil && upd.ImageURL == nil &&
		upd.AuthorName == nil && upd.Lang == nil && upd.IsPublished == nil
}

// PostStats is the aggregated view of all posts shown on the admin dashboard.
type PostStats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
	Views     int `json:"views"`
}
