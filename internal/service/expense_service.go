package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	store storage.Store
	now   func() time.Time
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store, now: time.Now}
}

// expenseInput is the part of a create or update request that describes
// the expense itself.
type expenseInput struct {
	description  string
	amount       decimal.Decimal
	date         string
	category     string
	paidBy       string
	splitType    string
	participants []*api.Share
}

// build validates in and computes its splits.
func (s *ExpenseService) build(in expenseInput, callerID string) (*models.Expense, error) {
	description := strings.TrimSpace(in.description)
	if description == "" {
		return nil, fmt.Errorf("%w: description required", ErrInvalidArgument)
	}

	date := in.date
	if date == "" {
		date = s.now().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidArgument, date)
	}

	splitType, err := calculator.ParseSplitType(in.splitType)
	if err != nil {
		return nil, err
	}
	splits, err := calculator.ComputeSplits(in.amount, splitType, toShares(in.participants))
	if err != nil {
		return nil, err
	}

	paidBy := in.paidBy
	if paidBy == "" {
		paidBy = callerID
	}

	return &models.Expense{
		Description: description,
		Amount:      in.amount,
		Date:        date,
		Category:    models.NormalizeCategory(in.category),
		PaidBy:      paidBy,
		SplitType:   string(splitType),
		Splits:      toExpenseSplits(splits),
	}, nil
}

// authorizeParties checks who may appear on an expense. In a group, the
// payer and every participant must be members. Outside a group, the caller
// must be the payer or a participant and everyone else must be in the
// caller's friend list.
func (s *ExpenseService) authorizeParties(ctx context.Context, e *models.Expense, callerID string) error {
	parties := e.Participants()

	if e.GroupID != "" {
		group, err := memberGroup(ctx, s.store, e.GroupID, callerID)
		if err != nil {
			return err
		}
		for _, id := range parties {
			if !group.HasMember(id) {
				return fmt.Errorf("%w: user %s is not a member of group %s", ErrPermissionDenied, id, e.GroupID)
			}
		}
		return nil
	}

	if !e.Involves(callerID) {
		return fmt.Errorf("%w: you must be the payer or a participant", ErrPermissionDenied)
	}
	for _, id := range parties {
		if id == callerID {
			continue
		}
		ok, err := s.store.IsFriend(ctx, callerID, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %s is not in your friend list", ErrPermissionDenied, id)
		}
	}
	return nil
}

// canRead reports whether userID may see e.
func (s *ExpenseService) canRead(ctx context.Context, e *models.Expense, userID string) (bool, error) {
	if e.Involves(userID) || e.CreatedBy == userID {
		return true, nil
	}
	if e.GroupID == "" {
		return false, nil
	}
	return s.store.IsGroupMember(ctx, e.GroupID, userID)
}

// CreateExpense records a new expense. A repeated RequestID returns the
// expense created by the first request.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	slog.Info("CreateExpense request received",
		"user_id", userID,
		"group_id", msg.GroupID,
		"amount", msg.Amount.String(),
		"split_type", msg.SplitType,
		"participants", len(msg.Participants),
	)

	if msg.RequestID != "" {
		existing, err := s.store.GetExpenseByRequestID(ctx, userID, msg.RequestID)
		if err == nil {
			slog.Info("CreateExpense replayed", "expense_id", existing.ID, "request_id", msg.RequestID)
			return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(existing)}), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fail("CreateExpense", err, "user_id", userID)
		}
	}

	expense, err := s.build(expenseInput{
		description:  msg.Description,
		amount:       msg.Amount,
		date:         msg.Date,
		category:     msg.Category,
		paidBy:       msg.PaidBy,
		splitType:    msg.SplitType,
		participants: msg.Participants,
	}, userID)
	if err != nil {
		return nil, fail("CreateExpense", err, "user_id", userID)
	}
	expense.GroupID = msg.GroupID
	expense.CreatedBy = userID
	expense.RequestID = msg.RequestID

	if err := s.authorizeParties(ctx, expense, userID); err != nil {
		return nil, fail("CreateExpense", err, "user_id", userID, "group_id", msg.GroupID)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		// Lost a race with a concurrent retry of the same request.
		if msg.RequestID != "" && errors.Is(err, storage.ErrAlreadyExists) {
			if existing, getErr := s.store.GetExpenseByRequestID(ctx, userID, msg.RequestID); getErr == nil {
				return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(existing)}), nil
			}
		}
		return nil, fail("CreateExpense", err, "user_id", userID)
	}

	slog.Info("Expense created", "expense_id", expense.ID, "group_id", expense.GroupID, "amount", expense.Amount.String())
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// GetExpense retrieves an expense visible to the caller.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("GetExpense request received", "user_id", userID, "expense_id", req.Msg.ExpenseID)

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, fail("GetExpense", err, "expense_id", req.Msg.ExpenseID)
	}
	ok, err := s.canRead(ctx, expense, userID)
	if err != nil {
		return nil, fail("GetExpense", err, "expense_id", expense.ID)
	}
	if !ok {
		return nil, fail("GetExpense", fmt.Errorf("%w: expense %s is not shared with you", ErrPermissionDenied, expense.ID), "user_id", userID)
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// UpdateExpense replaces an expense's details and splits. Only the creator
// or the payer may edit, and req.Version must match the stored version.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	slog.Info("UpdateExpense request received", "user_id", userID, "expense_id", msg.ExpenseID, "version", msg.Version)

	current, err := s.store.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		return nil, fail("UpdateExpense", err, "expense_id", msg.ExpenseID)
	}
	if userID != current.CreatedBy && userID != current.PaidBy {
		return nil, fail("UpdateExpense", fmt.Errorf("%w: only the creator or payer can edit an expense", ErrPermissionDenied), "user_id", userID, "expense_id", current.ID)
	}
	if msg.Version != current.Version {
		return nil, fail("UpdateExpense", fmt.Errorf("expense %s at version %d, request has %d: %w",
			current.ID, current.Version, msg.Version, storage.ErrVersionConflict))
	}

	paidBy := msg.PaidBy
	if paidBy == "" {
		paidBy = current.PaidBy
	}
	expense, err := s.build(expenseInput{
		description:  msg.Description,
		amount:       msg.Amount,
		date:         msg.Date,
		category:     msg.Category,
		paidBy:       paidBy,
		splitType:    msg.SplitType,
		participants: msg.Participants,
	}, userID)
	if err != nil {
		return nil, fail("UpdateExpense", err, "expense_id", current.ID)
	}
	if msg.Date == "" {
		expense.Date = current.Date
	}
	expense.ID = current.ID
	expense.GroupID = current.GroupID
	expense.CreatedBy = current.CreatedBy

	// The creator may no longer be the payer or a participant after the
	// edit, so party checks run as whoever is editing.
	if err := s.authorizeParties(ctx, expense, userID); err != nil {
		return nil, fail("UpdateExpense", err, "user_id", userID, "expense_id", current.ID)
	}

	if err := s.store.UpdateExpense(ctx, expense, msg.Version, userID); err != nil {
		return nil, fail("UpdateExpense", err, "expense_id", current.ID)
	}

	slog.Info("Expense updated", "expense_id", expense.ID, "version", expense.Version)
	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense removes an expense. Only the creator or the payer may
// delete it.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("DeleteExpense request received", "user_id", userID, "expense_id", req.Msg.ExpenseID)

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, fail("DeleteExpense", err, "expense_id", req.Msg.ExpenseID)
	}
	if userID != expense.CreatedBy && userID != expense.PaidBy {
		return nil, fail("DeleteExpense", fmt.Errorf("%w: only the creator or payer can delete an expense", ErrPermissionDenied), "user_id", userID, "expense_id", expense.ID)
	}

	if err := s.store.DeleteExpense(ctx, expense.ID, userID); err != nil {
		return nil, fail("DeleteExpense", err, "expense_id", expense.ID)
	}

	slog.Info("Expense deleted", "expense_id", expense.ID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// ListExpenses lists a group's expenses, or the caller's own expenses
// across all groups, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	slog.Info("ListExpenses request received", "user_id", userID, "group_id", msg.GroupID, "friend_id", msg.FriendID)

	limit := pageSize(msg.Limit, defaultPageSize)
	filter := storage.ExpenseFilter{UserID: userID, Limit: limit}
	if msg.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, msg.GroupID, userID); err != nil {
			return nil, fail("ListExpenses", err, "user_id", userID, "group_id", msg.GroupID)
		}
		filter = storage.ExpenseFilter{GroupID: msg.GroupID, Limit: limit}
	}
	if msg.FriendID != "" {
		// Filtered below, so the store cannot apply the limit.
		filter.Limit = 0
	}

	expenses, err := s.store.ListExpenses(ctx, filter)
	if err != nil {
		return nil, fail("ListExpenses", err, "user_id", userID)
	}

	out := make([]*api.Expense, 0, len(expenses))
	for _, e := range expenses {
		if msg.FriendID != "" && !(e.Involves(msg.FriendID) && e.Involves(userID)) {
			continue
		}
		out = append(out, toAPIExpense(e))
		if len(out) == limit {
			break
		}
	}

	slog.Info("ListExpenses successful", "user_id", userID, "count", len(out))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// PreviewSplits computes splits without saving anything.
func (s *ExpenseService) PreviewSplits(ctx context.Context, req *connect.Request[api.PreviewSplitsRequest]) (*connect.Response[api.PreviewSplitsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	splitType, err := calculator.ParseSplitType(req.Msg.SplitType)
	if err != nil {
		return nil, fail("PreviewSplits", err, "user_id", userID)
	}
	splits, err := calculator.ComputeSplits(req.Msg.Amount, splitType, toShares(req.Msg.Participants))
	if err != nil {
		return nil, fail("PreviewSplits", err, "user_id", userID)
	}

	return connect.NewResponse(&api.PreviewSplitsResponse{Splits: toAPISplits(splits)}), nil
}
