package settlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbook/internal/activity"
	"budgetbook/internal/category"
	"budgetbook/internal/group"
	"budgetbook/internal/notification"
	"budgetbook/internal/transaction"
)

type fakeGroups struct {
	groupID int64
	members []*group.Member
}

func (g *fakeGroups) AcceptedMember(ctx context.Context, groupID, userID int64) (*group.Member, error) {
	if groupID != g.groupID {
		return nil, group.ErrGroupNotFound
	}
	for _, m := range g.members {
		if m.UserID != nil && *m.UserID == userID && m.IsAccepted() {
			return m, nil
		}
	}
	return nil, group.ErrNotMember
}

func (g *fakeGroups) Members(ctx context.Context, groupID int64) ([]*group.Member, error) {
	return g.members, nil
}

type fakeLedger struct {
	nextID       int64
	transactions []*transaction.Transaction
}

func (l *fakeLedger) ListAllByGroup(ctx context.Context, groupID int64) ([]*transaction.Transaction, error) {
	return l.transactions, nil
}

func (l *fakeLedger) CreateSettlement(ctx context.Context, t *transaction.Transaction) (*transaction.Transaction, error) {
	l.nextID++
	stored := *t
	stored.ID = l.nextID
	l.transactions = append(l.transactions, &stored)
	return &stored, nil
}

type fakeCategories struct {
	ensured []int64
}

func (c *fakeCategories) EnsureSettlement(ctx context.Context, groupID int64) (*category.Category, error) {
	c.ensured = append(c.ensured, groupID)
	return &category.Category{ID: 1, GroupID: &groupID, Name: category.SettlementName}, nil
}

type recorderStub struct {
	events   []activity.Type
	payloads []map[string]interface{}
}

func (r *recorderStub) Record(ctx context.Context, groupID int64, typ activity.Type, actorID int64, payload map[string]interface{}) {
	r.events = append(r.events, typ)
	r.payloads = append(r.payloads, payload)
}

type notifierStub struct {
	messages []*notification.Message
}

func (n *notifierStub) Notify(ctx context.Context, msg *notification.Message) {
	n.messages = append(n.messages, msg)
}

func linkedMember(id, userID int64, email string) *group.Member {
	m := member(id, email)
	m.UserID = &userID
	return m
}

const testGroupID = int64(10)

func newTestService() (*Service, *fakeLedger, *fakeCategories, *recorderStub, *notifierStub) {
	groups := &fakeGroups{
		groupID: testGroupID,
		members: []*group.Member{
			linkedMember(1, 100, "alice@example.com"),
			linkedMember(2, 200, "bob@example.com"),
			linkedMember(3, 300, "carol@example.com"),
		},
	}
	ledger := &fakeLedger{}
	categories := &fakeCategories{}
	recorder := &recorderStub{}
	notifier := &notifierStub{}
	return NewService(groups, ledger, categories, recorder, notifier), ledger, categories, recorder, notifier
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("balances and plan for a shared dinner", func(t *testing.T) {
		svc, ledger, _, _, _ := newTestService()
		ledger.transactions = []*transaction.Transaction{
			groupTx(1, 300, map[int64]float64{1: 100, 2: 100, 3: 100}),
		}

		balances, transfers, err := svc.Summary(ctx, testGroupID, 200)
		require.NoError(t, err)
		require.Len(t, balances, 3)
		assert.Equal(t, 200.0, balances[0].Amount)

		require.Len(t, transfers, 2)
		assert.Equal(t, int64(2), transfers[0].FromMemberID)
		assert.Equal(t, int64(1), transfers[0].ToMemberID)
		assert.Equal(t, 100.0, transfers[0].Amount)
	})

	t.Run("non-member gets no summary", func(t *testing.T) {
		svc, _, _, _, _ := newTestService()

		_, _, err := svc.Summary(ctx, testGroupID, 999)
		assert.ErrorIs(t, err, group.ErrNotMember)
	})
}

func TestService_SettleUp(t *testing.T) {
	ctx := context.Background()

	t.Run("records a settlement transaction", func(t *testing.T) {
		svc, ledger, categories, recorder, notifier := newTestService()

		created, err := svc.SettleUp(ctx, testGroupID, 200, &SettleUpRequest{
			FromMemberID: 2,
			ToMemberID:   1,
			Amount:       100,
			Note:         "dinner repayment",
		})
		require.NoError(t, err)

		assert.Equal(t, category.SettlementName, created.Category)
		require.NotNil(t, created.PaidBy)
		assert.Equal(t, int64(2), *created.PaidBy)
		require.Len(t, created.Splits, 1)
		assert.Equal(t, int64(1), created.Splits[0].MemberID)
		assert.Equal(t, 100.0, created.Splits[0].Share)

		assert.Equal(t, []int64{testGroupID}, categories.ensured)
		assert.Len(t, ledger.transactions, 1)

		require.Equal(t, []activity.Type{activity.TypeSettled}, recorder.events)
		assert.Equal(t, int64(2), recorder.payloads[0]["from_member_id"])
		assert.Equal(t, int64(1), recorder.payloads[0]["to_member_id"])

		// The creditor hears about it.
		require.Len(t, notifier.messages, 1)
		assert.Equal(t, notification.TypeSettled, notifier.messages[0].Type)
		assert.Equal(t, int64(100), notifier.messages[0].RecipientID)
	})

	t.Run("settlement zeroes the pair's balance", func(t *testing.T) {
		svc, ledger, _, _, _ := newTestService()
		ledger.transactions = []*transaction.Transaction{
			groupTx(1, 300, map[int64]float64{1: 100, 2: 100, 3: 100}),
		}

		_, err := svc.SettleUp(ctx, testGroupID, 200, &SettleUpRequest{
			FromMemberID: 2,
			ToMemberID:   1,
			Amount:       100,
		})
		require.NoError(t, err)

		balances, transfers, err := svc.Summary(ctx, testGroupID, 100)
		require.NoError(t, err)
		assert.Equal(t, 100.0, balances[0].Amount)
		assert.Equal(t, 0.0, balances[1].Amount)
		assert.Equal(t, -100.0, balances[2].Amount)
		require.Len(t, transfers, 1)
		assert.Equal(t, int64(3), transfers[0].FromMemberID)
	})

	t.Run("repeating the call records a second settlement", func(t *testing.T) {
		svc, ledger, _, _, _ := newTestService()

		req := &SettleUpRequest{FromMemberID: 2, ToMemberID: 1, Amount: 50}
		_, err := svc.SettleUp(ctx, testGroupID, 200, req)
		require.NoError(t, err)
		_, err = svc.SettleUp(ctx, testGroupID, 200, req)
		require.NoError(t, err)
		assert.Len(t, ledger.transactions, 2)
	})

	t.Run("rejects settling with oneself", func(t *testing.T) {
		svc, _, _, _, _ := newTestService()

		_, err := svc.SettleUp(ctx, testGroupID, 200, &SettleUpRequest{
			FromMemberID: 2,
			ToMemberID:   2,
			Amount:       50,
		})
		assert.ErrorIs(t, err, ErrSameMember)
	})

	t.Run("rejects a non-positive amount with the number in the message", func(t *testing.T) {
		svc, _, _, _, _ := newTestService()

		_, err := svc.SettleUp(ctx, testGroupID, 200, &SettleUpRequest{
			FromMemberID: 2,
			ToMemberID:   1,
			Amount:       -25,
		})
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Contains(t, err.Error(), "-25.00")
	})

	t.Run("rejects members outside the group", func(t *testing.T) {
		svc, _, _, _, _ := newTestService()

		_, err := svc.SettleUp(ctx, testGroupID, 200, &SettleUpRequest{
			FromMemberID: 2,
			ToMemberID:   99,
			Amount:       50,
		})
		assert.ErrorIs(t, err, ErrMemberNotInGroup)
	})
}
