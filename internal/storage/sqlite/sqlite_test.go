package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "expenses-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreateUser(t *testing.T, store *SQLiteStore, email string, credits int) *models.User {
	t.Helper()
	user := &models.User{
		Email:   email,
		Name:    models.EmailLocalPart(email),
		Role:    models.RoleAdmin,
		Credits: credits,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return user
}

func mustCreateGroup(t *testing.T, store *SQLiteStore, owner *models.User, memberEmails ...string) *models.Group {
	t.Helper()
	members := []models.Member{{Email: owner.Email, Role: models.RoleAdmin}}
	for _, email := range memberEmails {
		members = append(members, models.Member{Email: email, Role: models.RoleViewer})
	}
	group := &models.Group{
		Name:       "Trip",
		AdminEmail: owner.Email,
		AdminID:    owner.ID,
		Members:    members,
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func TestUserStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateUser generates ID and timestamps", func(t *testing.T) {
		user := mustCreateUser(t, store, "alice@example.com", 3)
		if user.ID == "" {
			t.Error("Expected user ID to be generated")
		}
		if user.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("duplicate email returns ErrConflict", func(t *testing.T) {
		mustCreateUser(t, store, "dup@example.com", 0)
		err := store.CreateUser(ctx, &models.User{Email: "DUP@example.com", Name: "Dup"})
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("duplicate CreateUser = %v, want ErrConflict", err)
		}
	})

	t.Run("GetUserByEmail normalizes case", func(t *testing.T) {
		created := mustCreateUser(t, store, "case@example.com", 0)
		got, err := store.GetUserByEmail(ctx, "  CASE@Example.COM ")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != created.ID {
			t.Errorf("got user %s, want %s", got.ID, created.ID)
		}
	})

	t.Run("ConsumeCredit counts down to ErrNoCredits", func(t *testing.T) {
		user := mustCreateUser(t, store, "credits@example.com", 2)

		for i := 0; i < 2; i++ {
			if err := store.ConsumeCredit(ctx, user.ID); err != nil {
				t.Fatalf("ConsumeCredit #%d failed: %v", i+1, err)
			}
		}
		if err := store.ConsumeCredit(ctx, user.ID); !errors.Is(err, storage.ErrNoCredits) {
			t.Errorf("ConsumeCredit at zero = %v, want ErrNoCredits", err)
		}
		if err := store.ConsumeCredit(ctx, "missing-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("ConsumeCredit on missing user = %v, want ErrNotFound", err)
		}

		if err := store.GrantCredits(ctx, user.ID, 10); err != nil {
			t.Fatalf("GrantCredits failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.Credits != 10 {
			t.Errorf("credits = %d, want 10", got.Credits)
		}
	})

	t.Run("UpdateSubscription round-trips", func(t *testing.T) {
		user := mustCreateUser(t, store, "sub@example.com", 0)
		sub := &models.Subscription{
			PlanID:        "unlimited-monthly",
			ProviderSubID: "sub_123",
			Status:        models.SubscriptionActive,
		}
		if err := store.UpdateSubscription(ctx, user.ID, sub); err != nil {
			t.Fatalf("UpdateSubscription failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.Subscription == nil || got.Subscription.Status != models.SubscriptionActive {
			t.Errorf("subscription = %+v, want active", got.Subscription)
		}
	})

	t.Run("ListUsersByAdminID returns only subordinates", func(t *testing.T) {
		admin := mustCreateUser(t, store, "boss@example.com", 0)
		sub := &models.User{Email: "worker@example.com", Name: "Worker", Role: models.RoleManager, AdminID: admin.ID}
		if err := store.CreateUser(ctx, sub); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		users, err := store.ListUsersByAdminID(ctx, admin.ID)
		if err != nil {
			t.Fatalf("ListUsersByAdminID failed: %v", err)
		}
		if len(users) != 1 || users[0].Email != "worker@example.com" {
			t.Errorf("subordinates = %+v, want just worker", users)
		}
	})
}

func TestGroupStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup dedupes case-folded members and fills projection", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner1@example.com", 0)
		group := &models.Group{
			Name:       "Flat",
			AdminEmail: owner.Email,
			AdminID:    owner.ID,
			Members: []models.Member{
				{Email: "owner1@example.com", Role: models.RoleAdmin},
				{Email: "bob@example.com"},
				{Email: "BOB@example.com"},
			},
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if len(group.Members) != 2 {
			t.Errorf("members = %d, want 2 after dedupe", len(group.Members))
		}
		if len(group.MembersEmail) != len(group.Members) {
			t.Errorf("MembersEmail projection has %d entries, want %d", len(group.MembersEmail), len(group.Members))
		}
		if m := group.MemberByEmail("bob@example.com"); m == nil || m.Role != models.RoleViewer {
			t.Errorf("bob = %+v, want viewer", m)
		}
	})

	t.Run("AddMembers is idempotent and preserves roles", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner2@example.com", 0)
		group := mustCreateGroup(t, store, owner, "carol@example.com")

		if err := store.SetMemberRole(ctx, group.ID, "carol@example.com", models.RoleManager); err != nil {
			t.Fatalf("SetMemberRole failed: %v", err)
		}
		err := store.AddMembers(ctx, group.ID, []models.Member{
			{Email: "CAROL@example.com"},
			{Email: "dave@example.com"},
		})
		if err != nil {
			t.Fatalf("AddMembers failed: %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Members) != 3 {
			t.Errorf("members = %d, want 3", len(got.Members))
		}
		if m := got.MemberByEmail("carol@example.com"); m == nil || m.Role != models.RoleManager {
			t.Errorf("carol = %+v, want role preserved as manager", m)
		}
	})

	t.Run("RemoveMember of absent email is a no-op", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner3@example.com", 0)
		group := mustCreateGroup(t, store, owner)
		if err := store.RemoveMember(ctx, group.ID, "ghost@example.com"); err != nil {
			t.Errorf("RemoveMember(absent) = %v, want nil", err)
		}
	})

	t.Run("SetMemberRole on non-member returns ErrNotFound", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner4@example.com", 0)
		group := mustCreateGroup(t, store, owner)
		err := store.SetMemberRole(ctx, group.ID, "ghost@example.com", models.RoleManager)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("SetMemberRole(non-member) = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListGroupsForUser covers membership and ownership", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner5@example.com", 0)
		other := mustCreateUser(t, store, "other5@example.com", 0)
		g1 := mustCreateGroup(t, store, owner, "shared5@example.com")
		mustCreateGroup(t, store, other)

		groups, total, err := store.ListGroupsForUser(ctx, "shared5@example.com", nil, storage.ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if total != 1 || len(groups) != 1 || groups[0].ID != g1.ID {
			t.Errorf("got %d groups (total %d), want just %s", len(groups), total, g1.ID)
		}

		groups, total, err = store.ListGroupsForUser(ctx, "nobody@example.com", []string{owner.ID, other.ID}, storage.ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("ListGroupsForUser(ownerIDs) failed: %v", err)
		}
		if total != 2 {
			t.Errorf("total = %d, want 2 owned groups", total)
		}
	})

	t.Run("UpdateBudget persists decimal", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner6@example.com", 0)
		group := mustCreateGroup(t, store, owner)
		if err := store.UpdateBudget(ctx, group.ID, dec("1234.56")); err != nil {
			t.Fatalf("UpdateBudget failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !got.BudgetGoal.Equal(dec("1234.56")) {
			t.Errorf("budget = %v, want 1234.56", got.BudgetGoal)
		}
	})

	t.Run("DeleteGroup cascades members", func(t *testing.T) {
		owner := mustCreateUser(t, store, "owner7@example.com", 0)
		group := mustCreateGroup(t, store, owner, "m7@example.com")
		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup after delete = %v, want ErrNotFound", err)
		}
	})
}

func TestSettlementTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := mustCreateUser(t, store, "host@example.com", 0)
	group := mustCreateGroup(t, store, owner, "guest@example.com")

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: "Dinner",
		Amount:      dec("40"),
		PayerEmail:  "host@example.com",
		Splits: []models.Split{
			{Email: "host@example.com", Amount: dec("20")},
			{Email: "guest@example.com", Amount: dec("20")},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	t.Run("request flags pending approval", func(t *testing.T) {
		if err := store.MarkSettlementRequested(ctx, group.ID, "guest@example.com", 100); err != nil {
			t.Fatalf("MarkSettlementRequested failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !got.PaymentStatus.IsPendingApproval || got.PaymentStatus.RequestedBy != "guest@example.com" {
			t.Errorf("payment status = %+v, want pending by guest", got.PaymentStatus)
		}
	})

	t.Run("settle stamps a shared batch and flips the group", func(t *testing.T) {
		n, err := store.SettleBatch(ctx, group.ID, "batch-1", "host@example.com", 200)
		if err != nil {
			t.Fatalf("SettleBatch failed: %v", err)
		}
		if n != 1 {
			t.Errorf("settled %d expenses, want 1", n)
		}
		if err := store.MarkSettled(ctx, group.ID, 200); err != nil {
			t.Fatalf("MarkSettled failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.IsSettled || got.SettlementBatchID != "batch-1" || got.SettledBy != "host@example.com" {
			t.Errorf("expense = %+v, want settled in batch-1 by host", got)
		}

		batchID, err := store.LatestBatchID(ctx, group.ID)
		if err != nil {
			t.Fatalf("LatestBatchID failed: %v", err)
		}
		if batchID != "batch-1" {
			t.Errorf("latest batch = %q, want batch-1", batchID)
		}
	})

	t.Run("second settle is a zero-row no-op", func(t *testing.T) {
		n, err := store.SettleBatch(ctx, group.ID, "batch-2", "host@example.com", 300)
		if err != nil {
			t.Fatalf("SettleBatch failed: %v", err)
		}
		if n != 0 {
			t.Errorf("settled %d expenses on settled group, want 0", n)
		}
	})

	t.Run("request on settled group fails with ErrStateMismatch", func(t *testing.T) {
		err := store.MarkSettlementRequested(ctx, group.ID, "guest@example.com", 400)
		if !errors.Is(err, storage.ErrStateMismatch) {
			t.Errorf("MarkSettlementRequested on settled = %v, want ErrStateMismatch", err)
		}
	})

	t.Run("reopen clears provenance but keeps the audit timestamp", func(t *testing.T) {
		if err := store.ReopenAll(ctx, group.ID); err != nil {
			t.Fatalf("ReopenAll failed: %v", err)
		}
		if err := store.MarkReopened(ctx, group.ID, 500); err != nil {
			t.Fatalf("MarkReopened failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.IsSettled || got.SettlementBatchID != "" || got.SettledAt != 0 {
			t.Errorf("expense after reopen = %+v, want cleared provenance", got)
		}

		at, err := store.LastSettled(ctx, group.ID)
		if err != nil {
			t.Fatalf("LastSettled failed: %v", err)
		}
		if at != 200 {
			t.Errorf("LastSettled after reopen = %d, want 200", at)
		}
	})

	t.Run("ReopenBatch only touches its own batch", func(t *testing.T) {
		second := &models.Expense{
			GroupID:     group.ID,
			Description: "Taxi",
			Amount:      dec("10"),
			PayerEmail:  "guest@example.com",
			Splits:      []models.Split{{Email: "host@example.com", Amount: dec("10")}},
		}
		if err := store.CreateExpense(ctx, second); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		if _, err := store.SettleBatch(ctx, group.ID, "batch-a", "host@example.com", 600); err != nil {
			t.Fatalf("SettleBatch failed: %v", err)
		}
		third := &models.Expense{
			GroupID:     group.ID,
			Description: "Coffee",
			Amount:      dec("5"),
			PayerEmail:  "host@example.com",
			Splits:      []models.Split{{Email: "guest@example.com", Amount: dec("5")}},
		}
		if err := store.CreateExpense(ctx, third); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if _, err := store.SettleBatch(ctx, group.ID, "batch-b", "host@example.com", 700); err != nil {
			t.Fatalf("SettleBatch failed: %v", err)
		}

		if err := store.ReopenBatch(ctx, group.ID, "batch-b"); err != nil {
			t.Fatalf("ReopenBatch failed: %v", err)
		}

		unsettled, err := store.ListUnsettledByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledByGroup failed: %v", err)
		}
		if len(unsettled) != 1 || unsettled[0].ID != third.ID {
			t.Errorf("unsettled = %d expenses, want only the batch-b expense", len(unsettled))
		}
	})
}

func TestUpdateGroupLeavesPaymentStatusAlone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := mustCreateUser(t, store, "editor@example.com", 0)
	group := mustCreateGroup(t, store, owner, "debtor@example.com")

	// Snapshot taken before the settlement request comes in.
	stale, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}

	if err := store.MarkSettlementRequested(ctx, group.ID, "debtor@example.com", 100); err != nil {
		t.Fatalf("MarkSettlementRequested failed: %v", err)
	}

	stale.Name = "Renamed"
	if err := store.UpdateGroup(ctx, stale); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}
	if !got.PaymentStatus.IsPendingApproval || got.PaymentStatus.RequestedBy != "debtor@example.com" {
		t.Errorf("payment status = %+v, want pending request preserved", got.PaymentStatus)
	}
}
