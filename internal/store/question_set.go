package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/practicum/internal/model"
)

type SetStore struct {
	db *sql.DB
}

func NewSetStore(db *sql.DB) *SetStore {
	return &SetStore{db: db}
}

func scanSet(scanner interface{ Scan(...any) error }) (*model.QuestionSet, error) {
	var qs model.QuestionSet
	err := scanner.Scan(&qs.ID, &qs.Title, &qs.Description, &qs.AuthorID, &qs.CreatedAt, &qs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &qs, nil
}

const setCols = `id, title, description, author_id, created_at, updated_at`

func (s *SetStore) Create(ctx context.Context, title, description string, authorID int64) (*model.QuestionSet, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO question_sets (title, description, author_id) VALUES (?, ?, ?)`,
		title, description, authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert set: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SetStore) GetByID(ctx context.Context, id int64) (*model.QuestionSet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+setCols+` FROM question_sets WHERE id = ?`, id)
	qs, err := scanSet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get set: %w", err)
	}
	return qs, nil
}

func (s *SetStore) List(ctx context.Context) ([]model.QuestionSet, error) {
	return s.list(ctx, `SELECT `+setCols+` FROM question_sets ORDER BY id`)
}

func (s *SetStore) ListByAuthor(ctx context.Context, authorID int64) ([]model.QuestionSet, error) {
	return s.list(ctx, `SELECT `+setCols+` FROM question_sets WHERE author_id = ? ORDER BY id`, authorID)
}

func (s *SetStore) list(ctx context.Context, query string, args ...any) ([]model.QuestionSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var sets []model.QuestionSet
	for rows.Next() {
		qs, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sets = append(sets, *qs)
	}
	return sets, rows.Err()
}

func (s *SetStore) Update(ctx context.Context, id int64, title, description string) (*model.QuestionSet, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE question_sets SET title = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update set: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SetStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM question_sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	return nil
}
