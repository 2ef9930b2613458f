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

const settlementColumns = `id, from_user_id, to_user_id, amount, method, note, group_id, created_by, request_id, created_at`

func scanSettlement(row interface{ Scan(...any) error }) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var note, groupID, requestID sql.NullString
	err := row.Scan(&settlement.ID, &settlement.FromUserID, &settlement.ToUserID, &settlement.Amount,
		&settlement.Method, &note, &groupID, &settlement.CreatedBy, &requestID, &settlement.CreatedAt)
	if err != nil {
		return nil, err
	}
	settlement.Note = note.String
	settlement.GroupID = groupID.String
	settlement.RequestID = requestID.String
	return settlement, nil
}

// CreateSettlement persists a new settlement. When guard is set it is
// called inside the insert transaction with the settlement's scope: the
// group's expenses and settlements, or everything FromUserID is part of.
// A guard error aborts the insert and is returned unchanged.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement, guard storage.SettlementGuard) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if guard != nil {
			if settlement.RequestID != "" {
				var used int
				if err := tx.QueryRowContext(ctx,
					"SELECT EXISTS (SELECT 1 FROM settlements WHERE created_by = ? AND request_id = ?)",
					settlement.CreatedBy, settlement.RequestID,
				).Scan(&used); err != nil {
					return fmt.Errorf("failed to check settlement request: %w", err)
				}
				if used == 1 {
					return fmt.Errorf("settlement request %s: %w", settlement.RequestID, storage.ErrAlreadyExists)
				}
			}
			if err := checkSettlement(ctx, tx, settlement, guard); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlements (`+settlementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			settlement.ID, settlement.FromUserID, settlement.ToUserID, settlement.Amount.String(),
			settlement.Method, nullString(settlement.Note), nullString(settlement.GroupID),
			settlement.CreatedBy, nullString(settlement.RequestID), settlement.CreatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("settlement request %s: %w", settlement.RequestID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}

		return insertActivity(ctx, tx, &models.Activity{
			Type:         models.ActivitySettlement,
			ActorID:      settlement.CreatedBy,
			GroupID:      settlement.GroupID,
			SettlementID: settlement.ID,
			Amount:       settlement.Amount,
			Description:  settlement.Method,
			Involved:     []string{settlement.FromUserID, settlement.ToUserID},
			CreatedAt:    settlement.CreatedAt,
		})
	})
}

func checkSettlement(ctx context.Context, tx *sql.Tx, settlement *models.Settlement, guard storage.SettlementGuard) error {
	expenseFilter := storage.ExpenseFilter{GroupID: settlement.GroupID}
	settlementFilter := storage.SettlementFilter{GroupID: settlement.GroupID}
	if settlement.GroupID == "" {
		expenseFilter.UserID = settlement.FromUserID
		settlementFilter.UserID = settlement.FromUserID
	}
	expenses, err := listExpenses(ctx, tx, expenseFilter)
	if err != nil {
		return err
	}
	settlements, err := listSettlements(ctx, tx, settlementFilter)
	if err != nil {
		return err
	}
	return guard(expenses, settlements)
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, settlementID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// GetSettlementByRequestID finds the settlement createdBy recorded with requestID.
func (s *SQLiteStore) GetSettlementByRequestID(ctx context.Context, createdBy, requestID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE created_by = ? AND request_id = ?`,
		createdBy, requestID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement by request: %w", err)
	}
	return settlement, nil
}

// ListSettlements retrieves settlements matching filter, newest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	return listSettlements(ctx, s.db, filter)
}

func listSettlements(ctx context.Context, q querier, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	var conds []string
	var args []any
	if filter.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	switch {
	case filter.UserID != "" && filter.CounterpartyID != "":
		conds = append(conds, "((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))")
		args = append(args, filter.UserID, filter.CounterpartyID, filter.CounterpartyID, filter.UserID)
	case filter.UserID != "":
		conds = append(conds, "(from_user_id = ? OR to_user_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	query := `SELECT ` + settlementColumns + ` FROM settlements` + whereClause(conds) +
		` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// DeleteSettlement removes a settlement and records a settlement_deleted
// activity by actorID.
func (s *SQLiteStore) DeleteSettlement(ctx context.Context, settlementID, actorID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		settlement, err := scanSettlement(tx.QueryRowContext(ctx,
			`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, settlementID))
		if err == sql.ErrNoRows {
			return fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get settlement: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM settlements WHERE id = ?", settlementID); err != nil {
			return fmt.Errorf("failed to delete settlement: %w", err)
		}

		return insertActivity(ctx, tx, &models.Activity{
			Type:         models.ActivitySettlementDeleted,
			ActorID:      actorID,
			GroupID:      settlement.GroupID,
			SettlementID: settlement.ID,
			Amount:       settlement.Amount,
			Description:  settlement.Method,
			Involved:     []string{settlement.FromUserID, settlement.ToUserID},
			CreatedAt:    time.Now().Unix(),
		})
	})
}
