package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/config"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

type settlementFixture struct {
	store    storage.Store
	groups   *GroupService
	expenses *ExpenseService
	group    *models.Group
	creditor Caller // paid, is owed money
	debtor   Caller // owes money
}

// newSettlementFixture builds a group where the owner paid 40 split
// evenly with a second member: owner +20, member -20.
func newSettlementFixture(t *testing.T, store storage.Store) *settlementFixture {
	t.Helper()
	ctx := context.Background()

	groups := NewGroupService(store, authz.New(authz.DefaultPermissions()), testLogger())
	expenses := NewExpenseService(store, testLogger())

	_, owner := newAccount(t, store, "creditor@example.com", models.RoleAdmin, 5)
	group, err := groups.CreateGroup(ctx, owner, CreateGroupInput{
		Name:         "Roadtrip",
		MembersEmail: []string{"debtor@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	_, err = expenses.AddExpense(ctx, owner, AddExpenseInput{
		GroupID:     group.ID,
		Description: "Fuel",
		Amount:      dec("40"),
		PayerEmail:  "creditor@example.com",
		Splits: []SplitInput{
			{Email: "creditor@example.com", Amount: dec("20")},
			{Email: "debtor@example.com", Amount: dec("20")},
		},
	})
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	return &settlementFixture{
		store:    store,
		groups:   groups,
		expenses: expenses,
		group:    group,
		creditor: owner,
		debtor:   Caller{ID: "d-id", Email: "debtor@example.com", Role: models.RoleViewer},
	}
}

func defaultSettlementConfig() config.Config {
	return config.Config{
		SettlementRequestPolicy: config.RequestAnyMember,
		ReopenScope:             config.ReopenAll,
	}
}

func TestSettlementLifecycle(t *testing.T) {
	store := newTestStore(t)
	fx := newSettlementFixture(t, store)
	svc := NewSettlementService(store, defaultSettlementConfig(), testLogger())
	ctx := context.Background()

	t.Run("any member may request under the default policy", func(t *testing.T) {
		if err := svc.Request(ctx, fx.debtor, fx.group.ID); err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		group, err := fx.store.GetGroup(ctx, fx.group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !group.PaymentStatus.IsPendingApproval {
			t.Error("Expected group to be pending approval")
		}
		if group.PaymentStatus.RequestedBy != "debtor@example.com" {
			t.Errorf("requested by %q, want debtor", group.PaymentStatus.RequestedBy)
		}
		if m := group.MemberByEmail("debtor@example.com"); m.SettlementStatus != models.SettlementRequested {
			t.Errorf("debtor status = %q, want requested", m.SettlementStatus)
		}
	})

	t.Run("members cannot confirm their own settlement", func(t *testing.T) {
		err := svc.ApproveMember(ctx, fx.debtor, fx.group.ID, "debtor@example.com")
		if !errors.Is(err, ErrSelfApproval) {
			t.Errorf("self approval = %v, want ErrSelfApproval", err)
		}
	})

	t.Run("debtors cannot confirm receipt for others", func(t *testing.T) {
		err := svc.ApproveMember(ctx, fx.debtor, fx.group.ID, "creditor@example.com")
		if !errors.Is(err, ErrNotCreditor) {
			t.Errorf("debtor approval = %v, want ErrNotCreditor", err)
		}
	})

	t.Run("creditor confirms a member", func(t *testing.T) {
		if err := svc.ApproveMember(ctx, fx.creditor, fx.group.ID, "debtor@example.com"); err != nil {
			t.Fatalf("ApproveMember failed: %v", err)
		}
		group, err := fx.store.GetGroup(ctx, fx.group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if m := group.MemberByEmail("debtor@example.com"); m.SettlementStatus != models.SettlementConfirmed {
			t.Errorf("debtor status = %q, want confirmed", m.SettlementStatus)
		}
	})

	t.Run("approving a non-member is not found", func(t *testing.T) {
		err := svc.ApproveMember(ctx, fx.creditor, fx.group.ID, "ghost@example.com")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("approve non-member = %v, want ErrNotFound", err)
		}
	})

	t.Run("viewers cannot confirm the cycle", func(t *testing.T) {
		_, err := svc.Confirm(ctx, fx.debtor, fx.group.ID)
		if !errors.Is(err, authz.ErrForbidden) {
			t.Errorf("Confirm as viewer = %v, want ErrForbidden", err)
		}
	})

	var batchID string
	t.Run("confirm settles every expense under one batch", func(t *testing.T) {
		var err error
		batchID, err = svc.Confirm(ctx, fx.creditor, fx.group.ID)
		if err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
		if batchID == "" {
			t.Fatal("Expected a batch ID")
		}

		group, err := fx.store.GetGroup(ctx, fx.group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !group.PaymentStatus.IsPaid || group.PaymentStatus.IsPendingApproval {
			t.Errorf("payment status = %+v, want settled", group.PaymentStatus)
		}
		for _, m := range group.Members {
			if m.SettlementStatus != models.SettlementNone {
				t.Errorf("member %s status = %q, want reset", m.Email, m.SettlementStatus)
			}
		}

		unsettled, err := fx.store.ListUnsettledByGroup(ctx, fx.group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledByGroup failed: %v", err)
		}
		if len(unsettled) != 0 {
			t.Errorf("unsettled = %d, want 0", len(unsettled))
		}

		at, err := svc.LastSettled(ctx, fx.creditor, fx.group.ID)
		if err != nil {
			t.Fatalf("LastSettled failed: %v", err)
		}
		if at == 0 {
			t.Error("Expected a last-settled timestamp")
		}
	})

	t.Run("requesting a settled group conflicts", func(t *testing.T) {
		err := svc.Request(ctx, fx.debtor, fx.group.ID)
		if !errors.Is(err, storage.ErrStateMismatch) {
			t.Errorf("Request on settled group = %v, want ErrStateMismatch", err)
		}
	})

	t.Run("confirm with nothing open is a no-op success", func(t *testing.T) {
		got, err := svc.Confirm(ctx, fx.creditor, fx.group.ID)
		if err != nil {
			t.Errorf("second Confirm = %v, want nil", err)
		}
		if got != "" {
			t.Errorf("second Confirm batch = %q, want empty", got)
		}
	})

	t.Run("reopen brings balances back and keeps the audit trail", func(t *testing.T) {
		if err := svc.Reopen(ctx, fx.creditor, fx.group.ID); err != nil {
			t.Fatalf("Reopen failed: %v", err)
		}

		group, err := fx.store.GetGroup(ctx, fx.group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if group.PaymentStatus.IsPaid {
			t.Error("Expected group to be open after reopen")
		}

		summary, err := fx.expenses.GroupSummary(ctx, fx.creditor, fx.group.ID)
		if err != nil {
			t.Fatalf("GroupSummary failed: %v", err)
		}
		if len(summary) != 2 {
			t.Errorf("summary after reopen = %d entries, want 2", len(summary))
		}

		at, err := svc.LastSettled(ctx, fx.creditor, fx.group.ID)
		if err != nil {
			t.Fatalf("LastSettled failed: %v", err)
		}
		if at == 0 {
			t.Error("Expected last-settled timestamp to survive reopen")
		}
	})
}

func TestSettlementDebtorOnlyPolicy(t *testing.T) {
	store := newTestStore(t)
	fx := newSettlementFixture(t, store)
	cfg := defaultSettlementConfig()
	cfg.SettlementRequestPolicy = config.RequestDebtorOnly
	svc := NewSettlementService(store, cfg, testLogger())
	ctx := context.Background()

	t.Run("creditor cannot request", func(t *testing.T) {
		err := svc.Request(ctx, fx.creditor, fx.group.ID)
		if !errors.Is(err, ErrNotDebtor) {
			t.Errorf("Request as creditor = %v, want ErrNotDebtor", err)
		}
	})

	t.Run("debtor can request", func(t *testing.T) {
		if err := svc.Request(ctx, fx.debtor, fx.group.ID); err != nil {
			t.Errorf("Request as debtor = %v, want nil", err)
		}
	})
}

func TestSettlementReopenLastBatch(t *testing.T) {
	store := newTestStore(t)
	fx := newSettlementFixture(t, store)
	cfg := defaultSettlementConfig()
	cfg.ReopenScope = config.ReopenLastBatch
	svc := NewSettlementService(store, cfg, testLogger())
	ctx := context.Background()

	// First cycle: settle the fixture expense under an old batch with a
	// timestamp well in the past so the two batches order unambiguously.
	if _, err := fx.store.SettleBatch(ctx, fx.group.ID, "old-batch", "creditor@example.com", 100); err != nil {
		t.Fatalf("SettleBatch failed: %v", err)
	}
	if err := fx.store.MarkSettled(ctx, fx.group.ID, 100); err != nil {
		t.Fatalf("MarkSettled failed: %v", err)
	}

	// Second cycle: a fresh expense settled through the service.
	_, err := fx.expenses.AddExpense(ctx, fx.creditor, AddExpenseInput{
		GroupID:     fx.group.ID,
		Description: "Tolls",
		Amount:      dec("10"),
		PayerEmail:  "creditor@example.com",
		Splits:      []SplitInput{{Email: "debtor@example.com", Amount: dec("10")}},
	})
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, fx.creditor, fx.group.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if err := svc.Reopen(ctx, fx.creditor, fx.group.ID); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	unsettled, err := fx.store.ListUnsettledByGroup(ctx, fx.group.ID)
	if err != nil {
		t.Fatalf("ListUnsettledByGroup failed: %v", err)
	}
	if len(unsettled) != 1 || unsettled[0].Description != "Tolls" {
		t.Errorf("unsettled after last-batch reopen = %d expenses, want only the latest batch", len(unsettled))
	}
}
