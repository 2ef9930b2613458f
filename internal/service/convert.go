package service

import (
	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	if u == nil {
		return nil
	}
	return &api.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

func toAPIUsers(users []*models.User) []*api.User {
	out := make([]*api.User, len(users))
	for i, u := range users {
		out[i] = toAPIUser(u)
	}
	return out
}

// toAPIGroup resolves member ids through users. Members missing from users
// are returned with only their id.
func toAPIGroup(g *models.Group, users map[string]*models.User) *api.Group {
	members := make([]*api.User, len(g.Members))
	for i, id := range g.Members {
		if u, ok := users[id]; ok {
			members[i] = toAPIUser(u)
		} else {
			members[i] = &api.User{ID: id}
		}
	}
	return &api.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	splits := make([]*api.Split, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = &api.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return &api.Expense{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		Category:    e.Category,
		PaidBy:      e.PaidBy,
		CreatedBy:   e.CreatedBy,
		GroupID:     e.GroupID,
		SplitType:   e.SplitType,
		Splits:      splits,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:         s.ID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount,
		Method:     s.Method,
		Note:       s.Note,
		GroupID:    s.GroupID,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

func toAPIActivity(a *models.Activity, actorName string) *api.Activity {
	return &api.Activity{
		ID:           a.ID,
		Seq:          a.Seq,
		Type:         string(a.Type),
		ActorID:      a.ActorID,
		ActorName:    actorName,
		GroupID:      a.GroupID,
		ExpenseID:    a.ExpenseID,
		SettlementID: a.SettlementID,
		Amount:       a.Amount,
		Description:  a.Description,
		Involved:     a.Involved,
		CreatedAt:    a.CreatedAt,
	}
}

func toShares(participants []*api.Share) []calculator.Share {
	shares := make([]calculator.Share, 0, len(participants))
	for _, p := range participants {
		if p == nil {
			continue
		}
		shares = append(shares, calculator.Share{UserID: p.UserID, Value: p.Value})
	}
	return shares
}

func toAPISplits(splits []calculator.Split) []*api.Split {
	out := make([]*api.Split, len(splits))
	for i, s := range splits {
		out[i] = &api.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}

func toExpenseSplits(splits []calculator.Split) []models.ExpenseSplit {
	out := make([]models.ExpenseSplit, len(splits))
	for i, s := range splits {
		out[i] = models.ExpenseSplit{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}

func toCalculatorSplits(splits []models.ExpenseSplit) []calculator.Split {
	out := make([]calculator.Split, len(splits))
	for i, s := range splits {
		out[i] = calculator.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}
