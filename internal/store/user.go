package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/password"
)

// ErrEmailTaken is returned by Create when the email already has an account.
var ErrEmailTaken = errors.New("email already registered")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var active sql.NullString
	err := scanner.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Salt1, &u.Salt2, &u.PasswordScheme,
		&u.Role, &active, &u.LoginCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if active.Valid {
		u.Active = &active.String
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, salt1, salt2, password_scheme, role, active, login_count, created_at, updated_at`

// Create inserts a user in a single statement: the first row ever written
// gets the owner role, later rows get user, and an existing email inserts
// nothing and yields ErrEmailTaken. SQLite serializes writers, so two
// concurrent first registrations cannot both become owner.
func (s *UserStore) Create(ctx context.Context, name, email string, creds password.Credentials) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, salt1, salt2, password_scheme, role)
		 SELECT ?, ?, ?, ?, ?, ?,
		        CASE WHEN EXISTS (SELECT 1 FROM users) THEN 'user' ELSE 'owner' END
		 WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = ?)`,
		name, email, creds.Hash, creds.Salt1, creds.Salt2, string(creds.Scheme), email,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrEmailTaken
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ? ORDER BY id LIMIT 1`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// IncrementLoginCount bumps the counter and returns the new value.
func (s *UserStore) IncrementLoginCount(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET login_count = login_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? RETURNING login_count`,
		id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment login count: %w", err)
	}
	return n, nil
}

// UpdatePassword replaces both salts, the digest and its scheme.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, creds password.Credentials) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, salt1 = ?, salt2 = ?, password_scheme = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		creds.Hash, creds.Salt1, creds.Salt2, string(creds.Scheme), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (s *UserStore) SetRole(ctx context.Context, id int64, role string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// Delete hands the user's sets to the system account and removes the user.
// Sessions go with the row through the foreign key cascade.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE question_sets SET author_id = ?, updated_at = CURRENT_TIMESTAMP WHERE author_id = ?`,
		model.SystemUserID, id,
	); err != nil {
		return fmt.Errorf("reassign sets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
