package db

import (
	"context"
	"time"
)

// CreateSession stores a new session for uid with the given id, valid until expiresAt.
func (s *DB) CreateSession(ctx context.Context, sid string, uid int, expiresAt time.Time) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`, sid, uid, expiresAt)
	return err
}

func (s *DB) RemoveSession(ctx context.Context, sid string) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM sessions WHERE id = $1", sid)
	return err
}

// RemoveExpiredSessions deletes sessions past their expiry and returns how many were removed.
func (s *DB) RemoveExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.conn.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
