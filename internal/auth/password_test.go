package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage/sqlite"
)

func newAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "auth-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewPasswordAuthenticator(store, 3)
}

func TestRegister(t *testing.T) {
	auth := newAuthenticator(t)
	ctx := context.Background()

	t.Run("new accounts are tenant admins with starter credits", func(t *testing.T) {
		user, err := auth.Register(ctx, "Alice@Example.com", "Alice", "secretpass")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Errorf("email = %q, want normalized", user.Email)
		}
		if user.Role != models.RoleAdmin {
			t.Errorf("role = %q, want admin", user.Role)
		}
		if user.Credits != 3 {
			t.Errorf("credits = %d, want 3", user.Credits)
		}
		if user.PasswordHash == "" || user.PasswordHash == "secretpass" {
			t.Error("Expected a hashed password")
		}
	})

	t.Run("short passwords are rejected", func(t *testing.T) {
		_, err := auth.Register(ctx, "b@example.com", "B", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Register with short password = %v, want ErrWeakPassword", err)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := auth.Register(ctx, "ALICE@example.com", "Imposter", "secretpass")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("duplicate Register = %v, want ErrEmailExists", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	auth := newAuthenticator(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "carol@example.com", "Carol", "correcthorse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := auth.Authenticate(ctx, "CAROL@example.com", "correcthorse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.Email != "carol@example.com" {
			t.Errorf("email = %q", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "carol@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate with wrong password = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "nobody@example.com", "whatever")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate with unknown email = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestGenerateTemporaryPassword(t *testing.T) {
	pw, err := GenerateTemporaryPassword(8)
	if err != nil {
		t.Fatalf("GenerateTemporaryPassword failed: %v", err)
	}
	if len(pw) != 8 {
		t.Errorf("length = %d, want 8", len(pw))
	}
	for _, c := range pw {
		if !strings.ContainsRune(tempPasswordChars, c) {
			t.Errorf("unexpected character %q", c)
		}
	}

	other, err := GenerateTemporaryPassword(8)
	if err != nil {
		t.Fatalf("GenerateTemporaryPassword failed: %v", err)
	}
	if pw == other {
		t.Error("Expected two generated passwords to differ")
	}
}
