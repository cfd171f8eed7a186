package db

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dardanova/dardanova"
	"github.com/jackc/pgx/v5"
)

type dbUser struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Email       string `db:"email"`
	DisplayName string `db:"display_name"`
	PhotoURL    string `db:"photo_url"`
	Password    string `db:"password"`
}

// User looks up a single user. It returns nil if no user matches.
func (s *DB) User(ctx context.Context, filter dardanova.UserFilter) (*dardanova.User, error) {
	sb := sq.Select("*").From("users")
	sb = userFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy("id ASC").Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[dbUser])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return internalToUser(user), nil
}

// CreateUser creates a new user with the specified data.
func (s *DB) CreateUser(ctx context.Context, email, displayName, passwordHash string) (int, error) {
	if email == "" || passwordHash == "" {
		return -1, dardanova.ErrMissingRequired
	}

	var id = -1
	err := s.conn.QueryRow(ctx,
		"INSERT INTO users (email, display_name, password) VALUES ($1, $2, $3) RETURNING id",
		strings.TrimSpace(email), strings.TrimSpace(displayName), passwordHash,
	).Scan(&id)
	return id, err
}

// UpdateUser updates a user.
func (s *DB) UpdateUser(ctx context.Context, id int, upd dardanova.UserUpdate) error {
	updQuery := sq.Update("users").Where(sq.Eq{"id": id})
	changed := false

	if v := upd.DisplayName; v != nil {
		updQuery = updQuery.Set("display_name", strings.TrimSpace(*v))
		changed = true
	}
	if v := upd.PhotoURL; v != nil {
		updQuery = updQuery.Set("photo_url", *v)
		changed = true
	}
	if v := upd.PwdHash; v != nil {
		updQuery = updQuery.Set("password", *v)
		changed = true
	}
	if !changed {
		return dardanova.ErrNoUpdates
	}

	query, args, err := updQuery.ToSql()
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx, query, args...)
	return err
}

func userFilterQuery(filter *dardanova.UserFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.ID; v != nil {
		where = append(where, sq.Eq{"id": *v})
	}
	if v := filter.Email; v != nil {
		where = append(where, sq.Expr("lower(email) = lower(?)", strings.TrimSpace(*v)))
	}
	if v := filter.SessionID; v != nil {
		where = append(where, sq.Expr("EXISTS (SELECT 1 FROM active_sessions WHERE user_id = users.id AND id = ?)", *v))
	}
	return sb.Where(where)
}

func internalToUser(user *dbUser) *dardanova.User {
	return &dardanova.User{
		ID:        user.ID,
		CreatedAt: user.CreatedAt,

		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,

		Password: user.Password,
	}
}
