package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/practicum/internal/model"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := scanner.Scan(&s.ID, &s.Token, &s.UserID, &s.ExpirationTime, &s.Expired, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionCols = `id, token, user_id, expiration_time, expired, created_at`

// Create stores a session keyed by tokenHash that expires at expiresAt.
func (s *SessionStore) Create(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) (*model.Session, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expiration_time) VALUES (?, ?, ?)`,
		tokenHash, userID, expiresAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the session for tokenHash regardless of expiry, or nil
// if none exists. Callers decide validity with Session.Valid.
func (s *SessionStore) GetByToken(ctx context.Context, tokenHash string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE token = ?`, tokenHash)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// Expire flags the session so it no longer authenticates.
func (s *SessionStore) Expire(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET expired = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return nil
}

// ExpireByUserID flags every session of a user.
func (s *SessionStore) ExpireByUserID(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET expired = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("expire sessions by user: %w", err)
	}
	return nil
}

// DeleteExpired purges flagged or lapsed sessions as of now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expired = 1 OR expiration_time <= ?`,
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
