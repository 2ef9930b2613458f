package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Food", CategoryFood},
		{"food", CategoryFood},
		{" TRANSPORT ", CategoryTransport},
		{"", CategoryGeneral},
		{"Groceries", CategoryGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCategory(tt.in), "input %q", tt.in)
	}
}

func TestExpenseParticipants(t *testing.T) {
	e := &Expense{
		PaidBy: "alice",
		Splits: []ExpenseSplit{
			{UserID: "bob", Amount: decimal.NewFromInt(5)},
			{UserID: "alice", Amount: decimal.NewFromInt(5)},
			{UserID: "carol", Amount: decimal.NewFromInt(5)},
		},
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, e.Participants())
	assert.True(t, e.Involves("alice"))
	assert.True(t, e.Involves("carol"))
	assert.False(t, e.Involves("dave"))

	// A payer who covers only others is still involved.
	e.Splits = e.Splits[:1]
	assert.True(t, e.Involves("alice"))
	assert.Equal(t, []string{"alice", "bob"}, e.Participants())
}

func TestGroupHasMember(t *testing.T) {
	g := &Group{Members: []string{"alice", "bob"}}
	assert.True(t, g.HasMember("bob"))
	assert.False(t, g.HasMember("carol"))
}

func TestValidMethod(t *testing.T) {
	for _, m := range []string{MethodCash, MethodBankTransfer, MethodPayPal, MethodVenmo, MethodOther} {
		assert.True(t, ValidMethod(m), m)
	}
	assert.False(t, ValidMethod(""))
	assert.False(t, ValidMethod("Cash"))
}

func TestValidActivityType(t *testing.T) {
	assert.True(t, ValidActivityType(ActivitySettlement))
	assert.True(t, ValidActivityType(ActivitySettlementDeleted))
	assert.False(t, ValidActivityType("comment"))
}

func TestNewUser(t *testing.T) {
	u := NewUser("alice@example.com", "Alice", "hash")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
}
