package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// insertActivity appends a feed entry inside tx. Involved users are
// de-duplicated; a.Seq and a.ID are populated.
func insertActivity(ctx context.Context, tx *sql.Tx, a *models.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	var amount any
	if !a.Amount.IsZero() {
		amount = a.Amount.String()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO activities (id, type, actor_id, group_id, expense_id, settlement_id, amount, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.ActorID, nullString(a.GroupID), nullString(a.ExpenseID),
		nullString(a.SettlementID), amount, a.Description, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	a.Seq, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read activity seq: %w", err)
	}

	a.Involved = dedupe(append([]string{a.ActorID}, a.Involved...))
	for _, userID := range a.Involved {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity_participants (activity_seq, user_id) VALUES (?, ?)",
			a.Seq, userID,
		); err != nil {
			return fmt.Errorf("failed to insert activity participant: %w", err)
		}
	}
	return nil
}

// ListActivity returns activities visible to filter.UserID, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, filter storage.ActivityFilter) ([]*models.Activity, error) {
	conds := []string{"p.user_id = ?"}
	args := []any{filter.UserID}
	if filter.Type != "" {
		conds = append(conds, "a.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.CounterpartyID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM activity_participants c WHERE c.activity_seq = a.seq AND c.user_id = ?)")
		args = append(args, filter.CounterpartyID)
	}
	if filter.GroupID != "" {
		conds = append(conds, "a.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Before > 0 {
		conds = append(conds, "a.seq < ?")
		args = append(args, filter.Before)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.seq, a.id, a.type, a.actor_id, a.group_id, a.expense_id, a.settlement_id, a.amount, a.description, a.created_at
		 FROM activities a JOIN activity_participants p ON p.activity_seq = a.seq`+
			whereClause(conds)+
			` ORDER BY a.seq DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	var activities []*models.Activity
	bySeq := make(map[int64]*models.Activity)
	for rows.Next() {
		a := &models.Activity{}
		var typ string
		var groupID, expenseID, settlementID, amount sql.NullString
		if err := rows.Scan(&a.Seq, &a.ID, &typ, &a.ActorID, &groupID, &expenseID, &settlementID,
			&amount, &a.Description, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = models.ActivityType(typ)
		a.GroupID = groupID.String
		a.ExpenseID = expenseID.String
		a.SettlementID = settlementID.String
		if amount.Valid {
			a.Amount, err = decimal.NewFromString(amount.String)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to parse activity amount: %w", err)
			}
		}
		activities = append(activities, a)
		bySeq[a.Seq] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	if len(activities) == 0 {
		return activities, nil
	}

	seqArgs := make([]any, len(activities))
	for i, a := range activities {
		seqArgs[i] = a.Seq
	}
	prows, err := s.db.QueryContext(ctx,
		`SELECT activity_seq, user_id FROM activity_participants
		 WHERE activity_seq IN (`+placeholders(len(seqArgs))+`) ORDER BY user_id`,
		seqArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity participants: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var seq int64
		var userID string
		if err := prows.Scan(&seq, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan activity participant: %w", err)
		}
		bySeq[seq].Involved = append(bySeq[seq].Involved, userID)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity participants: %w", err)
	}

	return activities, nil
}
