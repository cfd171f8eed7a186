package db

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dardanova/dardanova"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type dbPost struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Title      string `db:"title"`
	Content    string `db:"content"`
	ImageURL   string `db:"image_url"`
	AuthorName string `db:"author_name"`
	Lang       string `db:"lang"`

	IsPublished bool `db:"is_published"`
	Views       int  `db:"views"`
}

// Post returns the post with the given id, or nil if it does not exist.
func (s *DB) Post(ctx context.Context, id string) (*dardanova.Post, error) {
	posts, err := s.Posts(ctx, dardanova.PostFilter{ID: &id, Limit: 1})
	if err != nil || len(posts) == 0 {
		return nil, err
	}
	return posts[0], nil
}

func (s *DB) Posts(ctx context.Context, filter dardanova.PostFilter) ([]*dardanova.Post, error) {
	sb := sq.Select("*").From("posts")
	sb = postFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy(postOrdering(filter.Ordering, filter.Ascending)...).ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	posts, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[dbPost])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*dardanova.Post{}, nil
	}
	if err != nil {
		return nil, err
	}
	return mapper(posts, internalToPost), nil
}

func (s *DB) PostStats(ctx context.Context) (*dardanova.PostStats, error) {
	var stats dardanova.PostStats
	err := s.conn.QueryRow(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE is_published),
		COUNT(*) FILTER (WHERE NOT is_published),
		COALESCE(SUM(views), 0)::bigint
	FROM posts`).Scan(&stats.Total, &stats.Published, &stats.Drafts, &stats.Views)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreatePost inserts a new post and returns its id.
// Both timestamps are set by the database to the same instant.
func (s *DB) CreatePost(ctx context.Context, args dardanova.PostCreate) (string, error) {
	if args.Title == "" || args.Lang == "" {
		return "", dardanova.ErrMissingRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	query, qargs, err := sq.Insert("posts").
		Columns("id", "title", "content", "image_url", "author_name", "lang", "is_published", "views").
		Values(id.String(), args.Title, args.Content, args.ImageURL, args.AuthorName, string(args.Lang), args.IsPublished, max(args.Views, 0)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", err
	}

	var newID string
	if err := s.conn.QueryRow(ctx, query, qargs...).Scan(&newID); err != nil {
		return "", err
	}
	return newID, nil
}

// UpdatePost applies the non-nil fields of upd and bumps updated_at.
// Returns ErrNotFound if the post does not exist.
func (s *DB) UpdatePost(ctx context.Context, id string, upd dardanova.PostUpdate) error {
	updQuery := sq.Update("posts").Where(sq.Eq{"id": id})

	if v := upd.Title; v != nil {
		updQuery = updQuery.Set("title", strings.TrimSpace(*v))
	}
	if v := upd.Content; v != nil {
		updQuery = updQuery.Set("content", *v)
	}
	if v := upd.ImageURL; v != nil {
		updQuery = updQuery.Set("image_url", *v)
	}
	if v := upd.AuthorName; v != nil {
		updQuery = updQuery.Set("author_name", strings.TrimSpace(*v))
	}
	if v := upd.Lang; v != nil {
		updQuery = updQuery.Set("lang", string(*v))
	}
	if v := upd.IsPublished; v != nil {
		updQuery = updQuery.Set("is_published", *v)
	}
	if upd.Empty() {
		return dardanova.ErrNoUpdates
	}
	updQuery = updQuery.Set("updated_at", sq.Expr("GREATEST(NOW(), created_at)"))

	query, args, err := updQuery.ToSql()
	if err != nil {
		return err
	}

	tag, err := s.conn.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return dardanova.ErrNotFound
	}
	return nil
}

// IncrementPostViews atomically adds one view. updated_at is left untouched.
func (s *DB) IncrementPostViews(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE posts SET views = views + 1 WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return dardanova.ErrNotFound
	}
	return nil
}

func (s *DB) DeletePost(ctx context.Context, id string) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	return err
}

func postFilterQuery(filter *dardanova.PostFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.ID; v != nil {
		where = append(where, sq.Eq{"id": *v})
	}
	if v := filter.IDs; v != nil && len(v) == 0 {
		where = append(where, sq.Expr("0 = 1"))
	}
	if v := filter.IDs; len(v) > 0 {
		where = append(where, sq.Expr("id = ANY(?)", v))
	}
	if v := filter.Lang; v != nil {
		where = append(where, sq.Eq{"lang": string(*v)})
	}
	if v := filter.Published; v != nil {
		where = append(where, sq.Eq{"is_published": *v})
	}

	if v := filter.Limit; v > 0 {
		sb = sb.Limit(uint64(v))
	}
	if v := filter.Offset; v > 0 {
		sb = sb.Offset(uint64(v))
	}

	return sb.Where(where)
}

func postOrdering(ordering string, ascending bool) []string {
	ord := " DESC"
	if ascending {
		ord = " ASC"
	}
	switch ordering {
	case "updated_at", "views", "title":
		return []string{ordering + ord, "id DESC"}
	default:
		return []string{"created_at" + ord, "id DESC"}
	}
}

func internalToPost(p *dbPost) *dardanova.Post {
	return &dardanova.Post{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,

		Title:      p.Title,
		Content:    p.Content,
		ImageURL:   p.ImageURL,
		AuthorName: p.AuthorName,
		Lang:       dardanova.Locale(p.Lang),

		IsPublished: p.IsPublished,
		Views:       p.Views,
	}
}
