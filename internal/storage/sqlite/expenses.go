package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const expenseColumns = `e.id, e.description, e.amount, e.date, e.category, e.paid_by, e.created_by,
	e.group_id, e.split_type, e.version, e.request_id, e.created_at, e.updated_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	e := &models.Expense{}
	var groupID, requestID sql.NullString
	err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.Date, &e.Category, &e.PaidBy, &e.CreatedBy,
		&groupID, &e.SplitType, &e.Version, &requestID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.GroupID = groupID.String
	e.RequestID = requestID.String
	return e, nil
}

// CreateExpense persists a new expense with its splits.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = expense.CreatedAt
	expense.Version = 1

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, description, amount, date, category, paid_by, created_by,
			 group_id, split_type, version, request_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.Description, expense.Amount.String(), expense.Date, expense.Category,
			expense.PaidBy, expense.CreatedBy, nullString(expense.GroupID), expense.SplitType,
			expense.Version, nullString(expense.RequestID), expense.CreatedAt, expense.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("expense request %s: %w", expense.RequestID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		if err := insertSplits(ctx, tx, expense); err != nil {
			return err
		}

		return insertActivity(ctx, tx, &models.Activity{
			Type:        models.ActivityExpenseAdded,
			ActorID:     expense.CreatedBy,
			GroupID:     expense.GroupID,
			ExpenseID:   expense.ID,
			Amount:      expense.Amount,
			Description: expense.Description,
			Involved:    expense.Participants(),
			CreatedAt:   now,
		})
	})
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	return getExpense(ctx, s.db, expenseID)
}

// GetExpenseByRequestID finds the expense createdBy created with requestID.
func (s *SQLiteStore) GetExpenseByRequestID(ctx context.Context, createdBy, requestID string) (*models.Expense, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM expenses WHERE created_by = ? AND request_id = ?",
		createdBy, requestID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense by request: %w", err)
	}
	return getExpense(ctx, s.db, id)
}

// UpdateExpense replaces an expense's fields and splits if the stored
// version matches. GroupID and CreatedBy cannot change.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense, expectedVersion int64, actorID string) error {
	now := time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		previous, err := getExpense(ctx, tx, expense.ID)
		if err != nil {
			return err
		}
		if previous.Version != expectedVersion {
			return fmt.Errorf("expense %s at version %d, expected %d: %w",
				expense.ID, previous.Version, expectedVersion, storage.ErrVersionConflict)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE expenses SET description = ?, amount = ?, date = ?, category = ?, paid_by = ?,
			 split_type = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			expense.Description, expense.Amount.String(), expense.Date, expense.Category, expense.PaidBy,
			expense.SplitType, now, expense.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		} else if n == 0 {
			return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrVersionConflict)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to delete splits: %w", err)
		}
		if err := insertSplits(ctx, tx, expense); err != nil {
			return err
		}

		expense.GroupID = previous.GroupID
		expense.CreatedBy = previous.CreatedBy
		expense.RequestID = previous.RequestID
		expense.CreatedAt = previous.CreatedAt
		expense.UpdatedAt = now
		expense.Version = expectedVersion + 1

		return insertActivity(ctx, tx, &models.Activity{
			Type:        models.ActivityExpenseEdited,
			ActorID:     actorID,
			GroupID:     expense.GroupID,
			ExpenseID:   expense.ID,
			Amount:      expense.Amount,
			Description: expense.Description,
			Involved:    append(previous.Participants(), expense.Participants()...),
			CreatedAt:   now,
		})
	})
}

// DeleteExpense removes an expense and its splits.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID, actorID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		expense, err := getExpense(ctx, tx, expenseID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID); err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}

		return insertActivity(ctx, tx, &models.Activity{
			Type:        models.ActivityExpenseDeleted,
			ActorID:     actorID,
			GroupID:     expense.GroupID,
			ExpenseID:   expense.ID,
			Amount:      expense.Amount,
			Description: expense.Description,
			Involved:    expense.Participants(),
			CreatedAt:   time.Now().Unix(),
		})
	})
}

// ListExpenses returns expenses matching filter, newest date first, with
// splits loaded.
func (s *SQLiteStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	return listExpenses(ctx, s.db, filter)
}

func listExpenses(ctx context.Context, q querier, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	var conds []string
	var args []any
	if filter.GroupID != "" {
		conds = append(conds, "e.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.UserID != "" {
		conds = append(conds, "(e.paid_by = ? OR EXISTS (SELECT 1 FROM expense_splits x WHERE x.expense_id = e.id AND x.user_id = ?))")
		args = append(args, filter.UserID, filter.UserID)
	}
	query := `SELECT ` + expenseColumns + ` FROM expenses e` + whereClause(conds) +
		` ORDER BY e.date DESC, e.created_at DESC, e.id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
		byID[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	// Splits for the selected expenses, by re-running the same selection
	// as a subquery.
	splitRows, err := q.QueryContext(ctx,
		`SELECT s.expense_id, s.user_id, s.amount FROM expense_splits s
		 WHERE s.expense_id IN (SELECT e.id FROM (`+query+`) e)
		 ORDER BY s.expense_id, s.rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var split models.ExpenseSplit
		if err := splitRows.Scan(&split.ExpenseID, &split.UserID, &split.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if e, ok := byID[split.ExpenseID]; ok {
			e.Splits = append(e.Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return expenses, nil
}

func getExpense(ctx context.Context, q querier, expenseID string) (*models.Expense, error) {
	e, err := scanExpense(q.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e WHERE e.id = ?`, expenseID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT expense_id, user_id, amount FROM expense_splits WHERE expense_id = ? ORDER BY rowid",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.ExpenseSplit
		if err := rows.Scan(&split.ExpenseID, &split.UserID, &split.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		e.Splits = append(e.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return e, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.ExpenseID = expense.ID
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, amount) VALUES (?, ?, ?)",
			split.ExpenseID, split.UserID, split.Amount.String(),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("split for %s: %w", split.UserID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}
