// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settleup/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict is returned when an update's expected version does
	// not match the stored one.
	ErrVersionConflict = errors.New("version conflict")
)

// ExpenseFilter narrows ListExpenses. Zero values mean "no constraint".
type ExpenseFilter struct {
	// GroupID restricts to one group's expenses.
	GroupID string
	// UserID restricts to expenses the user paid for or shares in.
	UserID string
	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// SettlementFilter narrows ListSettlements. Zero values mean "no constraint".
type SettlementFilter struct {
	GroupID string
	// UserID restricts to settlements the user sent or received.
	UserID string
	// CounterpartyID, together with UserID, restricts to settlements
	// between the two users.
	CounterpartyID string
	Limit          int
}

// ActivityFilter narrows ListActivity.
type ActivityFilter struct {
	// UserID is required: only activities involving this user are returned.
	UserID string
	Type   models.ActivityType
	// CounterpartyID restricts to activities that also involve this user.
	CounterpartyID string
	GroupID        string
	// Before returns only activities with Seq < Before. Zero means newest.
	Before int64
	Limit  int
}

// UserStore holds user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail and GetUserByID return ErrNotFound for unknown users.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs omits IDs that do not exist.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// SearchUsers matches term as a case-insensitive substring of the full
	// name or email, excluding excludeID.
	SearchUsers(ctx context.Context, term, excludeID string, limit int) ([]*models.User, error)
}

// FriendStore holds directed friend edges.
type FriendStore interface {
	// AddFriend returns ErrAlreadyExists if the edge is present.
	AddFriend(ctx context.Context, userID, friendID string) error
	// RemoveFriend returns ErrNotFound if the edge is absent.
	RemoveFriend(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]*models.User, error)
	IsFriend(ctx context.Context, userID, friendID string) (bool, error)
}

// GroupStore holds groups and their members.
type GroupStore interface {
	// CreateGroup persists the group with its members. The group.ID and
	// group.CreatedAt fields will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	// ListGroupsForUser returns the user's groups, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	// AddGroupMembers skips users who are already members.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	// DeleteGroup removes the group along with its expenses and settlements.
	DeleteGroup(ctx context.Context, groupID string) error
	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)
}

// ExpenseStore holds expenses and their splits.
type ExpenseStore interface {
	// CreateExpense persists the expense and its splits and records an
	// expense_added activity. ID, Version and timestamps are populated.
	// Returns ErrAlreadyExists if RequestID was already used by the creator.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	GetExpenseByRequestID(ctx context.Context, createdBy, requestID string) (*models.Expense, error)
	// UpdateExpense replaces the expense's fields and splits if its stored
	// version equals expectedVersion, and records an expense_edited
	// activity by actorID. On success expense.Version is incremented.
	UpdateExpense(ctx context.Context, expense *models.Expense, expectedVersion int64, actorID string) error
	// DeleteExpense removes the expense and records an expense_deleted
	// activity by actorID.
	DeleteExpense(ctx context.Context, expenseID, actorID string) error
	// ListExpenses returns matching expenses with splits, newest date first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)
}

// SettlementGuard inspects the ledger a settlement is recorded against.
// It runs in the same transaction as the insert, so no other write can
// change the ledger between the check and the insert.
type SettlementGuard func(expenses []*models.Expense, settlements []*models.Settlement) error

// SettlementStore holds settlement payments.
type SettlementStore interface {
	// CreateSettlement persists the settlement and records a settlement
	// activity. A non-nil guard that returns an error aborts the insert.
	// Returns ErrAlreadyExists if RequestID was already used.
	CreateSettlement(ctx context.Context, settlement *models.Settlement, guard SettlementGuard) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	GetSettlementByRequestID(ctx context.Context, createdBy, requestID string) (*models.Settlement, error)
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]*models.Settlement, error)
	// DeleteSettlement removes the settlement and records a
	// settlement_deleted activity by actorID.
	DeleteSettlement(ctx context.Context, settlementID, actorID string) error
}

// ActivityStore reads the activity feed. Activities are written by the
// other stores as a side effect of their writes.
type ActivityStore interface {
	// ListActivity returns matching activities, newest first.
	ListActivity(ctx context.Context, filter ActivityFilter) ([]*models.Activity, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	FriendStore
	GroupStore
	ExpenseStore
	SettlementStore
	ActivityStore

	// Close releases any resources held by the store.
	Close() error
}
