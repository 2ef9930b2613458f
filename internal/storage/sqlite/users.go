package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const userColumns = `id, email, full_name, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser stores user. A duplicate email yields storage.ErrAlreadyExists.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrAlreadyExists)
	case err != nil:
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by its normalized email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByID looks up an account by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// getUser selects the single user whose column equals value. column is
// always a constant from this file.
func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s %s: %w", column, value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return u, nil
}

// GetUsersByIDs resolves ids in one query. Unknown ids are absent from the
// map.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	byID := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	users, err := s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// SearchUsers matches term against name and email, skipping excludeID.
// LIKE folds ASCII case only.
func (s *SQLiteStore) SearchUsers(ctx context.Context, term, excludeID string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + likeEscaper.Replace(term) + "%"
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id != ? AND (full_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')
		 ORDER BY full_name, email
		 LIMIT ?`,
		excludeID, pattern, pattern, limit)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
