package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

type captureNotifier struct {
	to      []string
	subject []string
}

func (n *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.to = append(n.to, to)
	n.subject = append(n.subject, subject)
	return nil
}

func TestRbacService(t *testing.T) {
	store := newTestStore(t)
	notifier := &captureNotifier{}
	svc := NewRbacService(store, authz.New(authz.DefaultPermissions()), notifier, testLogger())
	ctx := context.Background()

	_, admin := newAccount(t, store, "tenant-admin@example.com", models.RoleAdmin, 0)

	t.Run("CreateUser provisions under the caller with a welcome email", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, admin, "New Manager", "new-manager@example.com", models.RoleManager)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		if user.AdminID != admin.ID {
			t.Errorf("AdminID = %q, want caller ID", user.AdminID)
		}
		if user.Role != models.RoleManager {
			t.Errorf("role = %q, want manager", user.Role)
		}
		if user.PasswordHash == "" {
			t.Error("Expected a temporary password hash")
		}
		if len(notifier.to) != 1 || notifier.to[0] != "new-manager@example.com" {
			t.Errorf("welcome email recipients = %v, want the new user", notifier.to)
		}
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "X", "x@example.com", "superuser")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateUser with bad role = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("non-admin account roles cannot provision", func(t *testing.T) {
		_, manager := newAccount(t, store, "some-manager@example.com", models.RoleManager, 0)
		_, err := svc.CreateUser(ctx, manager, "X", "y@example.com", models.RoleViewer)
		if !errors.Is(err, authz.ErrForbidden) {
			t.Errorf("CreateUser as manager = %v, want ErrForbidden", err)
		}
	})

	t.Run("updates stay inside the caller's hierarchy", func(t *testing.T) {
		sub, err := svc.CreateUser(ctx, admin, "Worker", "worker@example.com", models.RoleViewer)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		updated, err := svc.UpdateUser(ctx, admin, sub.ID, "Worker Two", models.RoleManager)
		if err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		if updated.Name != "Worker Two" || updated.Role != models.RoleManager {
			t.Errorf("updated = %+v, want renamed manager", updated)
		}

		_, otherAdmin := newAccount(t, store, "other-tenant@example.com", models.RoleAdmin, 0)
		if _, err := svc.UpdateUser(ctx, otherAdmin, sub.ID, "Stolen", models.RoleViewer); !errors.Is(err, authz.ErrForbidden) {
			t.Errorf("cross-tenant UpdateUser = %v, want ErrForbidden", err)
		}
		if err := svc.DeleteUser(ctx, otherAdmin, sub.ID); !errors.Is(err, authz.ErrForbidden) {
			t.Errorf("cross-tenant DeleteUser = %v, want ErrForbidden", err)
		}
	})

	t.Run("ListUsers returns the caller's subordinates only", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, admin)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		for _, u := range users {
			if u.AdminID != admin.ID {
				t.Errorf("listed user %s outside hierarchy", u.Email)
			}
		}
		if len(users) == 0 {
			t.Error("Expected at least one subordinate")
		}
	})

	t.Run("delete removes the account", func(t *testing.T) {
		sub, err := svc.CreateUser(ctx, admin, "Gone", "gone@example.com", models.RoleViewer)
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := svc.DeleteUser(ctx, admin, sub.ID); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		if _, err := store.GetUserByID(ctx, sub.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByID after delete = %v, want ErrNotFound", err)
		}
	})
}
