package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MemberBalance is one user's aggregate position in a ledger.
type MemberBalance struct {
	UserID string
	// Paid is everything the user put in: expenses paid plus settlements sent.
	Paid decimal.Decimal
	// Owed is everything the user took out: their splits plus settlements received.
	Owed decimal.Decimal
	// Net is Paid - Owed. Positive = others owe this user.
	Net decimal.Decimal
}

// PairBalance is the balance between a user and one counterparty.
// Positive Amount = the counterparty owes the user.
type PairBalance struct {
	UserID string
	Amount decimal.Decimal
}

// DebtEdge is a payment that would move money from a debtor to a creditor.
type DebtEdge struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Summary is a user's overall position across all counterparties.
type Summary struct {
	Net decimal.Decimal
	// OwedToUser is the sum of positive pairwise balances.
	OwedToUser decimal.Decimal
	// UserOwes is the sum of negative pairwise balances, as a positive number.
	UserOwes decimal.Decimal
}

// Ledger accumulates expenses and settlements and answers balance queries.
// It keeps pairwise credit so that balances between any two users are exact
// and antisymmetric.
//
// A Ledger is not safe for concurrent use.
type Ledger struct {
	// credit[a][b] is how much b owes a.
	credit map[string]map[string]decimal.Decimal
	paid   map[string]decimal.Decimal
	owed   map[string]decimal.Decimal
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		credit: make(map[string]map[string]decimal.Decimal),
		paid:   make(map[string]decimal.Decimal),
		owed:   make(map[string]decimal.Decimal),
	}
}

// AddExpense records that paidBy paid for an expense divided as splits.
// Each participant other than the payer ends up owing the payer their split.
func (l *Ledger) AddExpense(paidBy string, splits []Split) {
	l.touch(paidBy)
	l.paid[paidBy] = l.paid[paidBy].Add(Total(splits))

	for _, s := range splits {
		l.touch(s.UserID)
		l.owed[s.UserID] = l.owed[s.UserID].Add(s.Amount)
		if s.UserID != paidBy {
			l.addCredit(paidBy, s.UserID, s.Amount)
		}
	}
}

// AddTransfer records a settlement payment from one user to another.
func (l *Ledger) AddTransfer(from, to string, amount decimal.Decimal) {
	l.touch(from)
	l.touch(to)
	l.paid[from] = l.paid[from].Add(amount)
	l.owed[to] = l.owed[to].Add(amount)
	l.addCredit(from, to, amount)
}

// Between returns how much b owes a. Negative means a owes b.
func (l *Ledger) Between(a, b string) decimal.Decimal {
	return l.credit[a][b]
}

// Net returns the user's net balance. Positive = others owe the user.
func (l *Ledger) Net(userID string) decimal.Decimal {
	return l.paid[userID].Sub(l.owed[userID])
}

// Counterparties returns the non-zero pairwise balances for userID, sorted
// by counterparty id.
func (l *Ledger) Counterparties(userID string) []PairBalance {
	var out []PairBalance
	for other, amount := range l.credit[userID] {
		if amount.IsZero() {
			continue
		}
		out = append(out, PairBalance{UserID: other, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Summary totals the user's pairwise balances.
func (l *Ledger) Summary(userID string) Summary {
	s := Summary{Net: decimal.Zero, OwedToUser: decimal.Zero, UserOwes: decimal.Zero}
	for _, pb := range l.Counterparties(userID) {
		if pb.Amount.IsPositive() {
			s.OwedToUser = s.OwedToUser.Add(pb.Amount)
		} else {
			s.UserOwes = s.UserOwes.Add(pb.Amount.Neg())
		}
		s.Net = s.Net.Add(pb.Amount)
	}
	return s
}

// Settled reports whether every pairwise balance in the ledger is zero.
func (l *Ledger) Settled() bool {
	for _, row := range l.credit {
		for _, amount := range row {
			if !amount.IsZero() {
				return false
			}
		}
	}
	return true
}

// UserSettled reports whether userID has no outstanding pairwise balance.
func (l *Ledger) UserSettled(userID string) bool {
	return len(l.Counterparties(userID)) == 0
}

// Balances returns every user's aggregate balance, sorted by user id.
func (l *Ledger) Balances() []MemberBalance {
	out := make([]MemberBalance, 0, len(l.paid))
	for userID := range l.paid {
		out = append(out, MemberBalance{
			UserID: userID,
			Paid:   l.paid[userID],
			Owed:   l.owed[userID],
			Net:    l.Net(userID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Simplify returns a set of payments that clears every net balance using
// at most n-1 transfers. Largest debts are matched with largest credits
// first; ties are broken by user id so the result is deterministic.
func (l *Ledger) Simplify() []DebtEdge {
	type position struct {
		userID string
		amount decimal.Decimal
	}

	var creditors, debtors []position
	for _, b := range l.Balances() {
		switch {
		case b.Net.IsPositive():
			creditors = append(creditors, position{b.UserID, b.Net})
		case b.Net.IsNegative():
			debtors = append(debtors, position{b.UserID, b.Net.Neg()})
		}
	}
	byAmount := func(p []position) func(i, j int) bool {
		return func(i, j int) bool {
			if !p[i].amount.Equal(p[j].amount) {
				return p[i].amount.GreaterThan(p[j].amount)
			}
			return p[i].userID < p[j].userID
		}
	}
	sort.SliceStable(creditors, byAmount(creditors))
	sort.SliceStable(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		edges = append(edges, DebtEdge{
			From:   debtors[i].userID,
			To:     creditors[j].userID,
			Amount: amount,
		})

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return edges
}

func (l *Ledger) touch(userID string) {
	if _, ok := l.paid[userID]; !ok {
		l.paid[userID] = decimal.Zero
		l.owed[userID] = decimal.Zero
	}
}

func (l *Ledger) addCredit(creditor, debtor string, amount decimal.Decimal) {
	if l.credit[creditor] == nil {
		l.credit[creditor] = make(map[string]decimal.Decimal)
	}
	if l.credit[debtor] == nil {
		l.credit[debtor] = make(map[string]decimal.Decimal)
	}
	l.credit[creditor][debtor] = l.credit[creditor][debtor].Add(amount)
	l.credit[debtor][creditor] = l.credit[debtor][creditor].Sub(amount)
}
