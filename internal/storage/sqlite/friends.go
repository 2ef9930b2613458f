package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// AddFriend inserts a directed friend edge and a friend_added activity.
func (s *SQLiteStore) AddFriend(ctx context.Context, userID, friendID string) error {
	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO friends (user_id, friend_id, created_at) VALUES (?, ?, ?)",
			userID, friendID, now,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("friend %s: %w", friendID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert friend: %w", err)
		}

		return insertActivity(ctx, tx, &models.Activity{
			Type:      models.ActivityFriendAdded,
			ActorID:   userID,
			Involved:  []string{userID, friendID},
			CreatedAt: now,
		})
	})
}

// RemoveFriend deletes a directed friend edge.
func (s *SQLiteStore) RemoveFriend(ctx context.Context, userID, friendID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM friends WHERE user_id = ? AND friend_id = ?",
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("friend %s: %w", friendID, storage.ErrNotFound)
	}
	return nil
}

// ListFriends returns the users in userID's friend list, ordered by name.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.full_name, u.password_hash, u.created_at, u.updated_at
		 FROM friends f JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = ?
		 ORDER BY u.full_name, u.email`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}

	return friends, nil
}

// IsFriend reports whether friendID is in userID's friend list.
func (s *SQLiteStore) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?)",
		userID, friendID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friend: %w", err)
	}
	return exists == 1, nil
}
