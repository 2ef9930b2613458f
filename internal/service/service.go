// Package service implements the settleup.v1 Connect services on top of a
// storage.Store.
package service

import (
	"context"
	"fmt"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// currentUser returns the authenticated caller's id.
func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// pageSize clamps a requested limit to (0, maxPageSize].
func pageSize(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// memberGroup loads a group and checks that userID belongs to it.
func memberGroup(ctx context.Context, store storage.GroupStore, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id required", ErrInvalidArgument)
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, fmt.Errorf("%w: not a member of group %s", ErrPermissionDenied, groupID)
	}
	return group, nil
}

// groupLedger builds the ledger of one group's expenses and settlements.
func groupLedger(ctx context.Context, store storage.Store, groupID string) (*calculator.Ledger, error) {
	expenses, err := store.ListExpenses(ctx, storage.ExpenseFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	settlements, err := store.ListSettlements(ctx, storage.SettlementFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	return buildLedger(expenses, settlements), nil
}

// userLedger builds the ledger of every expense and settlement userID is
// part of, in any group or none. Pairwise balances are exact for pairs that
// include userID.
func userLedger(ctx context.Context, store storage.Store, userID string) (*calculator.Ledger, error) {
	expenses, err := store.ListExpenses(ctx, storage.ExpenseFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	settlements, err := store.ListSettlements(ctx, storage.SettlementFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return buildLedger(expenses, settlements), nil
}

func buildLedger(expenses []*models.Expense, settlements []*models.Settlement) *calculator.Ledger {
	ledger := calculator.NewLedger()
	for _, e := range expenses {
		ledger.AddExpense(e.PaidBy, toCalculatorSplits(e.Splits))
	}
	for _, s := range settlements {
		ledger.AddTransfer(s.FromUserID, s.ToUserID, s.Amount)
	}
	return ledger
}

func usersByID(ctx context.Context, store storage.UserStore, ids []string) (map[string]*models.User, error) {
	users, err := store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}
