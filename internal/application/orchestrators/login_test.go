package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"civicwatch/internal/domain/account"
)

func seedAccount(t *testing.T, store *mockAccountStore, email, password, role string) {
	t.Helper()
	a := account.Account{ID: "acc-" + email, Email: email, Role: role, CreatedAt: time.Now().UTC()}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := store.Save(context.Background(), a); err != nil {
		t.Fatalf("save: %v", err)
	}
}

// TestExecuteLogin tests the credential checks; unknown email and wrong
// password are indistinguishable to the caller.
func TestExecuteLogin(t *testing.T) {
	store := newMockAccountStore()
	seedAccount(t, store, "editor@example.lu", "correct-horse-battery", account.RoleEditor)
	deps := LoginDeps{Accounts: store}

	result, err := ExecuteLogin(context.Background(),
		LoginInput{Email: "editor@example.lu", Password: "correct-horse-battery"}, deps)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Role != account.RoleEditor || result.AccountID == "" {
		t.Errorf("result = %+v", result)
	}

	for name, input := range map[string]LoginInput{
		"wrong password": {Email: "editor@example.lu", Password: "wrong-password-here"},
		"unknown email":  {Email: "ghost@example.lu", Password: "correct-horse-battery"},
		"empty":          {},
	} {
		if _, err := ExecuteLogin(context.Background(), input, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: expected ErrInvalidCredentials, got: %v", name, err)
		}
	}
}

// TestExecuteSeedAdmin tests bootstrap seeding and its no-op on a populated
// database.
func TestExecuteSeedAdmin(t *testing.T) {
	store := newMockAccountStore()
	deps := SeedAdminDeps{Accounts: store, GenerateID: func() string { return "acc-1" }, Now: time.Now}

	if err := ExecuteSeedAdmin(context.Background(),
		SeedAdminInput{Email: "admin@example.lu", Password: "bootstrap-password"}, deps); err != nil {
		t.Fatalf("seed: %v", err)
	}
	a, err := store.GetByEmail(context.Background(), "admin@example.lu")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Role != account.RoleAdmin {
		t.Errorf("role = %q", a.Role)
	}

	// A second seed with different credentials must not touch anything.
	if err := ExecuteSeedAdmin(context.Background(),
		SeedAdminInput{Email: "intruder@example.lu", Password: "something-else-12"}, deps); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if _, err := store.GetByEmail(context.Background(), "intruder@example.lu"); err == nil {
		t.Error("re-seed created a second account")
	}
	n, _ := store.Count(context.Background())
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
