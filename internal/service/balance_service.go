package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// BalanceService implements the Connect BalanceService. Balances are never
// stored; every call derives them from expenses and settlements.
type BalanceService struct {
	store storage.Store
}

// NewBalanceService creates a new BalanceService with the given storage backend.
func NewBalanceService(store storage.Store) *BalanceService {
	return &BalanceService{store: store}
}

// GetUserBalance returns the caller's overall position across every group
// and every non-group expense.
func (s *BalanceService) GetUserBalance(ctx context.Context, req *connect.Request[api.GetUserBalanceRequest]) (*connect.Response[api.GetUserBalanceResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("GetUserBalance request received", "user_id", userID)

	ledger, err := userLedger(ctx, s.store, userID)
	if err != nil {
		return nil, fail("GetUserBalance", err, "user_id", userID)
	}
	summary := ledger.Summary(userID)

	slog.Info("GetUserBalance successful", "user_id", userID, "net", summary.Net.String())
	return connect.NewResponse(&api.GetUserBalanceResponse{
		Net:        summary.Net,
		OwedToUser: summary.OwedToUser,
		UserOwes:   summary.UserOwes,
	}), nil
}

// GetBalanceBetweenUsers returns the overall balance between the caller and
// another user.
func (s *BalanceService) GetBalanceBetweenUsers(ctx context.Context, req *connect.Request[api.GetBalanceBetweenUsersRequest]) (*connect.Response[api.GetBalanceBetweenUsersResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	otherID := req.Msg.UserID
	slog.Info("GetBalanceBetweenUsers request received", "user_id", userID, "other_id", otherID)

	if otherID == "" || otherID == userID {
		return nil, fail("GetBalanceBetweenUsers", fmt.Errorf("%w: another user's id required", ErrInvalidArgument), "user_id", userID)
	}
	if _, err := s.store.GetUserByID(ctx, otherID); err != nil {
		return nil, fail("GetBalanceBetweenUsers", err, "user_id", userID, "other_id", otherID)
	}

	ledger, err := userLedger(ctx, s.store, userID)
	if err != nil {
		return nil, fail("GetBalanceBetweenUsers", err, "user_id", userID)
	}

	return connect.NewResponse(&api.GetBalanceBetweenUsersResponse{Amount: ledger.Between(userID, otherID)}), nil
}

// ListFriendBalances returns the overall balance with each friend.
func (s *BalanceService) ListFriendBalances(ctx context.Context, req *connect.Request[api.ListFriendBalancesRequest]) (*connect.Response[api.ListFriendBalancesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("ListFriendBalances request received", "user_id", userID)

	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fail("ListFriendBalances", err, "user_id", userID)
	}
	ledger, err := userLedger(ctx, s.store, userID)
	if err != nil {
		return nil, fail("ListFriendBalances", err, "user_id", userID)
	}

	resp := &api.ListFriendBalancesResponse{
		Balances:   make([]*api.FriendBalance, len(friends)),
		OwedToUser: decimal.Zero,
		UserOwes:   decimal.Zero,
	}
	for i, friend := range friends {
		amount := ledger.Between(userID, friend.ID)
		resp.Balances[i] = &api.FriendBalance{Friend: toAPIUser(friend), Amount: amount}
		if amount.IsPositive() {
			resp.OwedToUser = resp.OwedToUser.Add(amount)
		} else {
			resp.UserOwes = resp.UserOwes.Sub(amount)
		}
	}

	slog.Info("ListFriendBalances successful", "user_id", userID, "count", len(friends))
	return connect.NewResponse(resp), nil
}

// SettleUp records a payment from a debtor to a creditor. The caller must
// be one of them. Without an amount the whole outstanding debt is settled;
// an amount larger than the debt is rejected. With a group id the debt is
// the group balance, otherwise the overall balance.
func (s *BalanceService) SettleUp(ctx context.Context, req *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	fromID := msg.FromUserID
	if fromID == "" {
		fromID = userID
	}
	toID := msg.ToUserID
	slog.Info("SettleUp request received",
		"user_id", userID,
		"from_user_id", fromID,
		"to_user_id", toID,
		"group_id", msg.GroupID,
		"amount", msg.Amount.String(),
	)

	if msg.RequestID != "" {
		existing, err := s.store.GetSettlementByRequestID(ctx, userID, msg.RequestID)
		if err == nil {
			slog.Info("SettleUp replayed", "settlement_id", existing.ID, "request_id", msg.RequestID)
			return connect.NewResponse(&api.SettleUpResponse{Settlement: toAPISettlement(existing)}), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fail("SettleUp", err, "user_id", userID)
		}
	}

	if toID == "" || toID == fromID {
		return nil, fail("SettleUp", fmt.Errorf("%w: payer and payee must be two different users", ErrInvalidArgument), "user_id", userID)
	}
	if userID != fromID && userID != toID {
		return nil, fail("SettleUp", fmt.Errorf("%w: you can only record settlements you are part of", ErrPermissionDenied), "user_id", userID)
	}
	method := msg.Method
	if method == "" {
		method = models.MethodCash
	}
	if !models.ValidMethod(method) {
		return nil, fail("SettleUp", fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, method), "user_id", userID)
	}
	for _, id := range []string{fromID, toID} {
		if _, err := s.store.GetUserByID(ctx, id); err != nil {
			return nil, fail("SettleUp", err, "user_id", userID)
		}
	}

	var ledger *calculator.Ledger
	if msg.GroupID != "" {
		group, err := memberGroup(ctx, s.store, msg.GroupID, userID)
		if err != nil {
			return nil, fail("SettleUp", err, "user_id", userID, "group_id", msg.GroupID)
		}
		if !group.HasMember(fromID) || !group.HasMember(toID) {
			return nil, fail("SettleUp", fmt.Errorf("%w: both users must be members of group %s", ErrPermissionDenied, group.ID), "user_id", userID)
		}
		ledger, err = groupLedger(ctx, s.store, group.ID)
		if err != nil {
			return nil, fail("SettleUp", err, "group_id", group.ID)
		}
	} else {
		ledger, err = userLedger(ctx, s.store, userID)
		if err != nil {
			return nil, fail("SettleUp", err, "user_id", userID)
		}
	}

	// How much the payer owes the payee.
	owed := ledger.Between(toID, fromID)
	if !owed.IsPositive() {
		return nil, fail("SettleUp", fmt.Errorf("%w: %s does not owe %s anything", ErrFailedPrecondition, fromID, toID), "user_id", userID)
	}
	amount := msg.Amount
	if amount.IsZero() {
		amount = owed
	}
	if err := calculator.ValidateAmount(amount); err != nil {
		return nil, fail("SettleUp", err, "user_id", userID)
	}

	settlement := &models.Settlement{
		FromUserID: fromID,
		ToUserID:   toID,
		Amount:     amount,
		Method:     method,
		Note:       strings.TrimSpace(msg.Note),
		GroupID:    msg.GroupID,
		CreatedBy:  userID,
		RequestID:  msg.RequestID,
	}
	// The ledger may have moved since it was read above. Check again under
	// the insert's write lock.
	guard := func(expenses []*models.Expense, settlements []*models.Settlement) error {
		return checkOutstanding(buildLedger(expenses, settlements), settlement)
	}
	if err := s.store.CreateSettlement(ctx, settlement, guard); err != nil {
		if msg.RequestID != "" && errors.Is(err, storage.ErrAlreadyExists) {
			if existing, getErr := s.store.GetSettlementByRequestID(ctx, userID, msg.RequestID); getErr == nil {
				return connect.NewResponse(&api.SettleUpResponse{Settlement: toAPISettlement(existing)}), nil
			}
		}
		return nil, fail("SettleUp", err, "user_id", userID)
	}

	slog.Info("Settlement recorded", "settlement_id", settlement.ID, "amount", settlement.Amount.String(), "method", settlement.Method)
	return connect.NewResponse(&api.SettleUpResponse{Settlement: toAPISettlement(settlement)}), nil
}

// ListSettlements lists a group's settlements, or the caller's own,
// optionally only those with FriendID.
func (s *BalanceService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	slog.Info("ListSettlements request received", "user_id", userID, "group_id", msg.GroupID, "friend_id", msg.FriendID)

	filter := storage.SettlementFilter{
		UserID:         userID,
		CounterpartyID: msg.FriendID,
		Limit:          pageSize(msg.Limit, defaultPageSize),
	}
	if msg.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, msg.GroupID, userID); err != nil {
			return nil, fail("ListSettlements", err, "user_id", userID, "group_id", msg.GroupID)
		}
		filter.GroupID = msg.GroupID
		if msg.FriendID == "" {
			filter.UserID = ""
		}
	}

	settlements, err := s.store.ListSettlements(ctx, filter)
	if err != nil {
		return nil, fail("ListSettlements", err, "user_id", userID)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// DeleteSettlement removes a settlement recorded by the caller, restoring
// the debt it paid off.
func (s *BalanceService) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[api.DeleteSettlementResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("DeleteSettlement request received", "user_id", userID, "settlement_id", req.Msg.SettlementID)

	settlement, err := s.store.GetSettlement(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, fail("DeleteSettlement", err, "settlement_id", req.Msg.SettlementID)
	}
	if settlement.CreatedBy != userID {
		return nil, fail("DeleteSettlement", fmt.Errorf("%w: only whoever recorded a settlement can delete it", ErrPermissionDenied), "user_id", userID)
	}

	if err := s.store.DeleteSettlement(ctx, settlement.ID, userID); err != nil {
		return nil, fail("DeleteSettlement", err, "settlement_id", settlement.ID)
	}

	slog.Info("Settlement deleted", "settlement_id", settlement.ID)
	return connect.NewResponse(&api.DeleteSettlementResponse{}), nil
}

// checkOutstanding rejects settlement when it pays more than its payer owes
// its payee in ledger.
func checkOutstanding(ledger *calculator.Ledger, settlement *models.Settlement) error {
	owed := ledger.Between(settlement.ToUserID, settlement.FromUserID)
	if !owed.IsPositive() {
		return fmt.Errorf("%w: %s does not owe %s anything", ErrFailedPrecondition, settlement.FromUserID, settlement.ToUserID)
	}
	if settlement.Amount.GreaterThan(owed) {
		return fmt.Errorf("%w: amount %s exceeds the outstanding %s",
			ErrFailedPrecondition, settlement.Amount.StringFixed(2), owed.StringFixed(2))
	}
	return nil
}
