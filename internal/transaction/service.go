package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgetbook/internal/activity"
	"budgetbook/internal/group"
	"budgetbook/internal/notification"
	"budgetbook/internal/transaction/split"
)

// Common errors
var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotAllowed           = errors.New("only the payer can modify this transaction; the creator only when no payer is recorded")
	ErrCategoryRequired     = errors.New("category is required")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidDate          = errors.New("date must be in YYYY-MM-DD format")
	ErrPayerNotMember       = errors.New("payer is not an accepted member of the group")
	ErrParticipantNotMember = errors.New("split participant is not an accepted member of the group")
	ErrSplitsRequired       = errors.New("participants must be resupplied when changing the amount of a PERCENT or EXACT split")
)

// Groups is the group-membership surface the ledger depends on.
// Implemented by the group service.
type Groups interface {
	AcceptedMember(ctx context.Context, groupID, userID int64) (*group.Member, error)
	Members(ctx context.Context, groupID int64) ([]*group.Member, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Service handles ledger business logic
type Service struct {
	store    Store
	groups   Groups
	splits   *split.Factory
	activity activity.Recorder
	notifier notification.Notifier
}

// NewService creates a new transaction service
func NewService(store Store, groups Groups, factory *split.Factory, recorder activity.Recorder, notifier notification.Notifier) *Service {
	return &Service{
		store:    store,
		groups:   groups,
		splits:   factory,
		activity: recorder,
		notifier: notifier,
	}
}

// Create records a new transaction. Group transactions require the
// caller to be an accepted member; the payer defaults to the caller's
// own membership. Split shares are computed here and always sum exactly
// to the amount.
func (s *Service) Create(ctx context.Context, callerID int64, req *CreateTransactionRequest) (*Transaction, error) {
	t, err := s.buildTransaction(ctx, callerID, req)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}

	if created.IsGroupScoped() {
		s.activity.Record(ctx, *created.GroupID, activity.TypeTransactionAdded, callerID, map[string]interface{}{
			"transaction_id": created.ID,
			"amount":         created.Amount,
			"category":       created.Category,
		})
		s.notifySplitMembers(ctx, callerID, created)
	}

	return created, nil
}

// CreateSettlement records a settlement transaction without emitting the
// transaction_added event; the settlement flow records its own.
func (s *Service) CreateSettlement(ctx context.Context, t *Transaction) (*Transaction, error) {
	return s.store.Create(ctx, t)
}

func (s *Service) buildTransaction(ctx context.Context, callerID int64, req *CreateTransactionRequest) (*Transaction, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAmount, req.Amount)
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, ErrCategoryRequired
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	t := &Transaction{
		CreatedBy: callerID,
		Amount:    req.Amount,
		Category:  strings.TrimSpace(req.Category),
		Note:      req.Note,
		Date:      date,
	}

	if req.GroupID == nil {
		return t, nil
	}

	caller, err := s.groups.AcceptedMember(ctx, *req.GroupID, callerID)
	if err != nil {
		return nil, err
	}

	members, err := s.groups.Members(ctx, *req.GroupID)
	if err != nil {
		return nil, err
	}

	t.GroupID = req.GroupID

	paidBy := caller.ID
	if req.PaidBy != nil {
		paidBy = *req.PaidBy
	}
	if m := findAcceptedMember(members, paidBy); m == nil {
		return nil, ErrPayerNotMember
	}
	t.PaidBy = &paidBy

	if len(req.Participants) == 0 {
		return t, nil
	}

	mode := split.ModeEqual
	if req.SplitMode != "" {
		mode = split.Mode(req.SplitMode)
	}

	splits, splitType, err := s.computeSplits(mode, req.Amount, req.Participants, members)
	if err != nil {
		return nil, err
	}
	t.SplitType = &splitType
	t.Splits = splits

	return t, nil
}

func (s *Service) computeSplits(mode split.Mode, amount float64, participants []*Participant, members []*group.Member) ([]*Split, string, error) {
	inputs := make([]split.Input, len(participants))
	for i, p := range participants {
		if m := findAcceptedMember(members, p.MemberID); m == nil {
			return nil, "", fmt.Errorf("%w: member %d", ErrParticipantNotMember, p.MemberID)
		}
		inputs[i] = p.ToSplitInput()
	}

	strategy, err := s.splits.Create(mode)
	if err != nil {
		return nil, "", err
	}

	shares, err := strategy.Compute(amount, inputs)
	if err != nil {
		return nil, "", err
	}

	splits := make([]*Split, len(shares))
	for i, share := range shares {
		splits[i] = &Split{MemberID: share.MemberID, Share: share.Amount}
	}

	return splits, string(mode), nil
}

// GetByID retrieves a transaction the caller is allowed to see: their
// own personal entries, or any entry in a group they belong to
func (s *Service) GetByID(ctx context.Context, id, callerID int64) (*Transaction, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}

	if t.IsGroupScoped() {
		isMember, err := s.groups.IsMember(ctx, *t.GroupID, callerID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrTransactionNotFound
		}
	} else if t.CreatedBy != callerID {
		return nil, ErrTransactionNotFound
	}

	return t, nil
}

// Update applies a partial edit. Only the payer may edit; the creator
// may edit only when no payer is recorded.
// Changing the amount or the participant set recomputes the splits, so
// the shares keep summing exactly to the amount. Every change is
// recorded field by field in the group's activity log.
func (s *Service) Update(ctx context.Context, id, callerID int64, req *UpdateTransactionRequest) (*Transaction, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrTransactionNotFound
	}

	if err := s.authorizeEdit(ctx, existing, callerID); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Splits = existing.Splits
	changes := map[string]interface{}{}

	if req.Amount != nil && *req.Amount != existing.Amount {
		if *req.Amount <= 0 {
			return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAmount, *req.Amount)
		}
		changes["amount"] = changeEntry(existing.Amount, *req.Amount)
		updated.Amount = *req.Amount
	}
	if req.Category != nil && *req.Category != existing.Category {
		if strings.TrimSpace(*req.Category) == "" {
			return nil, ErrCategoryRequired
		}
		changes["category"] = changeEntry(existing.Category, *req.Category)
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Note != nil && *req.Note != existing.Note {
		changes["note"] = changeEntry(existing.Note, *req.Note)
		updated.Note = *req.Note
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, *req.Date)
		}
		if !date.Equal(existing.Date) {
			changes["date"] = changeEntry(existing.Date.Format("2006-01-02"), *req.Date)
			updated.Date = date
		}
	}

	if err := s.applyGroupChange(ctx, callerID, existing, &updated, req, changes); err != nil {
		return nil, err
	}

	if err := s.applySplitChange(ctx, existing, &updated, req, changes); err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return existing, nil
	}

	result, err := s.store.Update(ctx, &updated)
	if err != nil {
		return nil, err
	}

	if existing.IsGroupScoped() {
		payload := map[string]interface{}{
			"transaction_id": result.ID,
			"changes":        changes,
		}
		s.activity.Record(ctx, *existing.GroupID, activity.TypeTransactionEdited, callerID, payload)
	}

	return result, nil
}

// applyGroupChange moves a transaction between the personal ledger and a
// group, or between groups. Attaching requires accepted membership in
// the target group; detaching drops the splits, since shares only mean
// something inside a group.
func (s *Service) applyGroupChange(ctx context.Context, callerID int64, existing, updated *Transaction, req *UpdateTransactionRequest, changes map[string]interface{}) error {
	switch {
	case req.RemoveFromGroup:
		if !existing.IsGroupScoped() {
			return nil
		}
		changes["group"] = changeEntry(*existing.GroupID, nil)
		updated.GroupID = nil
		updated.PaidBy = nil
		updated.SplitType = nil
		updated.Splits = nil

	case req.GroupID != nil:
		if existing.GroupID != nil && *existing.GroupID == *req.GroupID {
			return nil
		}
		caller, err := s.groups.AcceptedMember(ctx, *req.GroupID, callerID)
		if err != nil {
			return err
		}
		var from interface{}
		if existing.GroupID != nil {
			from = *existing.GroupID
		}
		changes["group"] = changeEntry(from, *req.GroupID)
		updated.GroupID = req.GroupID
		// Member ids are group-local, so a moved transaction starts over
		// with the caller as payer and no splits until they are resupplied.
		updated.PaidBy = &caller.ID
		updated.SplitType = nil
		updated.Splits = nil
	}

	return nil
}

// applySplitChange recomputes splits when the amount, payer, or
// participant set changes
func (s *Service) applySplitChange(ctx context.Context, existing, updated *Transaction, req *UpdateTransactionRequest, changes map[string]interface{}) error {
	if !updated.IsGroupScoped() {
		return nil
	}

	members, err := s.groups.Members(ctx, *updated.GroupID)
	if err != nil {
		return err
	}

	if req.PaidBy != nil && (updated.PaidBy == nil || *updated.PaidBy != *req.PaidBy) {
		if m := findAcceptedMember(members, *req.PaidBy); m == nil {
			return ErrPayerNotMember
		}
		var from interface{}
		if updated.PaidBy != nil {
			from = *updated.PaidBy
		}
		changes["paid_by"] = changeEntry(from, *req.PaidBy)
		updated.PaidBy = req.PaidBy
	}

	amountChanged := req.Amount != nil && *req.Amount != existing.Amount

	if req.Participants != nil {
		mode := split.ModeEqual
		if updated.SplitType != nil {
			mode = split.Mode(*updated.SplitType)
		}
		if req.SplitMode != nil {
			mode = split.Mode(*req.SplitMode)
		}
		splits, splitType, err := s.computeSplits(mode, updated.Amount, req.Participants, members)
		if err != nil {
			return err
		}
		changes["splits"] = changeEntry(splitSummary(updated.Splits), splitSummary(splits))
		updated.SplitType = &splitType
		updated.Splits = splits
		return nil
	}

	if amountChanged && len(updated.Splits) > 0 {
		// Without fresh inputs only an equal split can be rederived from
		// the stored member set.
		if updated.SplitType == nil || split.Mode(*updated.SplitType) != split.ModeEqual {
			return ErrSplitsRequired
		}
		participants := make([]*Participant, len(updated.Splits))
		for i, sp := range updated.Splits {
			participants[i] = &Participant{MemberID: sp.MemberID}
		}
		splits, splitType, err := s.computeSplits(split.ModeEqual, updated.Amount, participants, members)
		if err != nil {
			return err
		}
		changes["splits"] = changeEntry(splitSummary(existing.Splits), splitSummary(splits))
		updated.SplitType = &splitType
		updated.Splits = splits
	}

	return nil
}

// Delete removes a transaction under the same authorization as Update;
// the activity log keeps the amount and note so the entry stays legible
// after the row is gone.
func (s *Service) Delete(ctx context.Context, id, callerID int64) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrTransactionNotFound
	}

	if err := s.authorizeEdit(ctx, existing, callerID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if existing.IsGroupScoped() {
		s.activity.Record(ctx, *existing.GroupID, activity.TypeTransactionDeleted, callerID, map[string]interface{}{
			"transaction_id": existing.ID,
			"amount":         existing.Amount,
			"category":       existing.Category,
			"note":           existing.Note,
		})
	}

	return nil
}

// ListByGroup retrieves a page of a group's transactions; the caller
// must belong to the group
func (s *Service) ListByGroup(ctx context.Context, groupID, callerID int64, page, perPage int) ([]*Transaction, int, error) {
	isMember, err := s.groups.IsMember(ctx, groupID, callerID)
	if err != nil {
		return nil, 0, err
	}
	if !isMember {
		return nil, 0, group.ErrNotMember
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.ListByGroup(ctx, groupID, perPage, offset)
}

// ListAllByGroup returns a group's complete transaction set in insertion
// order, for the balance computation. Membership is the caller's
// responsibility.
func (s *Service) ListAllByGroup(ctx context.Context, groupID int64) ([]*Transaction, error) {
	return s.store.ListAllByGroup(ctx, groupID)
}

func (s *Service) authorizeEdit(ctx context.Context, t *Transaction, callerID int64) error {
	// A recorded payer is the sole authority over a group transaction.
	// The creator authorizes only entries with no payer.
	if t.IsGroupScoped() && t.PaidBy != nil {
		member, err := s.groups.AcceptedMember(ctx, *t.GroupID, callerID)
		if err == nil && member.ID == *t.PaidBy {
			return nil
		}
		return ErrNotAllowed
	}
	if t.CreatedBy == callerID {
		return nil
	}
	return ErrNotAllowed
}

func (s *Service) notifySplitMembers(ctx context.Context, actorID int64, t *Transaction) {
	if t.GroupID == nil || len(t.Splits) == 0 {
		return
	}

	members, err := s.groups.Members(ctx, *t.GroupID)
	if err != nil {
		slog.Error("failed to load members for notification", "group_id", *t.GroupID, "error", err)
		return
	}

	byID := make(map[int64]*group.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	relatedType := "TRANSACTION"
	for _, sp := range t.Splits {
		m, ok := byID[sp.MemberID]
		if !ok || m.UserID == nil || *m.UserID == actorID {
			continue
		}
		s.notifier.Notify(ctx, &notification.Message{
			RecipientID:       *m.UserID,
			Type:              notification.TypeTransactionAdded,
			Title:             "New shared expense",
			Message:           fmt.Sprintf("%s: your share is %.2f of %.2f", t.Category, sp.Share, t.Amount),
			RelatedEntityType: &relatedType,
			RelatedEntityID:   &t.ID,
		})
	}
}

func findAcceptedMember(members []*group.Member, memberID int64) *group.Member {
	for _, m := range members {
		if m.ID == memberID && m.IsAccepted() {
			return m
		}
	}
	return nil
}

func changeEntry(from, to interface{}) map[string]interface{} {
	return map[string]interface{}{"from": from, "to": to}
}

func splitSummary(splits []*Split) []map[string]interface{} {
	out := make([]map[string]interface{}, len(splits))
	for i, s := range splits {
		out[i] = map[string]interface{}{"member_id": s.MemberID, "share": s.Share}
	}
	return out
}
