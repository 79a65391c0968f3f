package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetbook/internal/activity"
	"budgetbook/internal/category"
	"budgetbook/internal/group"
	"budgetbook/internal/notification"
	"budgetbook/internal/transaction"
)

// Common errors
var (
	ErrSameMember       = errors.New("debtor and creditor must be different members")
	ErrInvalidAmount    = errors.New("settlement amount must be greater than zero")
	ErrMemberNotInGroup = errors.New("member is not an accepted member of the group")
)

// Groups is the membership surface the settlement flow depends on.
// Implemented by the group service.
type Groups interface {
	AcceptedMember(ctx context.Context, groupID, userID int64) (*group.Member, error)
	Members(ctx context.Context, groupID int64) ([]*group.Member, error)
}

// Ledger records settlements as ordinary transactions, so they flow
// through the same balance computation as every other expense.
// Implemented by the transaction service.
type Ledger interface {
	ListAllByGroup(ctx context.Context, groupID int64) ([]*transaction.Transaction, error)
	CreateSettlement(ctx context.Context, t *transaction.Transaction) (*transaction.Transaction, error)
}

// Service handles balance summaries and settle-up
type Service struct {
	groups     Groups
	ledger     Ledger
	categories category.Store
	activity   activity.Recorder
	notifier   notification.Notifier
}

// NewService creates a new settlement service
func NewService(groups Groups, ledger Ledger, categories category.Store, recorder activity.Recorder, notifier notification.Notifier) *Service {
	return &Service{
		groups:     groups,
		ledger:     ledger,
		categories: categories,
		activity:   recorder,
		notifier:   notifier,
	}
}

// Summary computes the group's balances and a minimal repayment plan.
// The caller must belong to the group.
func (s *Service) Summary(ctx context.Context, groupID, callerID int64) ([]*Balance, []*Transfer, error) {
	if _, err := s.groups.AcceptedMember(ctx, groupID, callerID); err != nil {
		return nil, nil, err
	}

	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	transactions, err := s.ledger.ListAllByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	balances := ComputeBalances(members, transactions)
	return balances, Plan(balances), nil
}

// SettleUp records a repayment from one member to another as a
// transaction in the group's reserved Settlement category. The debtor
// pays the amount and the creditor carries the whole split, so the
// transfer shifts exactly that much balance between the two. Repeating
// the call records a second settlement; the caller decides how much to
// pay and when.
func (s *Service) SettleUp(ctx context.Context, groupID, callerID int64, req *SettleUpRequest) (*transaction.Transaction, error) {
	if req.FromMemberID == req.ToMemberID {
		return nil, ErrSameMember
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAmount, req.Amount)
	}

	if _, err := s.groups.AcceptedMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	debtor := findAccepted(members, req.FromMemberID)
	creditor := findAccepted(members, req.ToMemberID)
	if debtor == nil || creditor == nil {
		return nil, ErrMemberNotInGroup
	}

	cat, err := s.categories.EnsureSettlement(ctx, groupID)
	if err != nil {
		return nil, err
	}

	splitType := "EXACT"
	amount := round2(req.Amount)
	t := &transaction.Transaction{
		GroupID:   &groupID,
		CreatedBy: callerID,
		PaidBy:    &debtor.ID,
		Amount:    amount,
		Category:  cat.Name,
		Note:      req.Note,
		Date:      time.Now().UTC().Truncate(24 * time.Hour),
		SplitType: &splitType,
		Splits: []*transaction.Split{
			{MemberID: creditor.ID, Share: amount},
		},
	}

	created, err := s.ledger.CreateSettlement(ctx, t)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, groupID, activity.TypeSettled, callerID, map[string]interface{}{
		"transaction_id": created.ID,
		"from_member_id": debtor.ID,
		"to_member_id":   creditor.ID,
		"amount":         amount,
	})

	if creditor.UserID != nil && *creditor.UserID != callerID {
		relatedType := "TRANSACTION"
		s.notifier.Notify(ctx, &notification.Message{
			RecipientID:       *creditor.UserID,
			Type:              notification.TypeSettled,
			Title:             "Settlement received",
			Message:           fmt.Sprintf("%s settled %.2f with you", debtor.DisplayName(), amount),
			RelatedEntityType: &relatedType,
			RelatedEntityID:   &created.ID,
		})
	}

	return created, nil
}

func findAccepted(members []*group.Member, memberID int64) *group.Member {
	for _, m := range members {
		if m.ID == memberID && m.IsAccepted() {
			return m
		}
	}
	return nil
}
