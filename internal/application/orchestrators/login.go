package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"civicwatch/internal/domain/account"
)

// AccountStoreForOrchestrator defines the store interface needed by the
// account orchestrators.
type AccountStoreForOrchestrator interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// ErrInvalidCredentials deliberately conflates unknown email and wrong
// password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	AccountID string
	Email     string
	Role      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Accounts AccountStoreForOrchestrator
}

// ExecuteLogin validates credentials and returns account info for session
// creation.
// PRE: Valid email and password provided
// POST: Returns account info, or ErrInvalidCredentials
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	acct, err := deps.Accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "reason", "wrong_password")
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "email", input.Email, "role", acct.Role)
	return LoginResult{AccountID: acct.ID, Email: acct.Email, Role: acct.Role}, nil
}

// --- Seed admin ---

// SeedAdminInput carries the bootstrap credentials.
type SeedAdminInput struct {
	Email    string
	Password string
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	Accounts   AccountStoreForOrchestrator
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSeedAdmin creates the first admin account on an empty database.
// Any existing account makes this a no-op so a restart never resets
// credentials.
// POST: At least one account exists
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, deps SeedAdminDeps) error {
	n, err := deps.Accounts.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if input.Email == "" || input.Password == "" {
		slog.Warn("auth_event", "event", "seed_admin_skipped", "reason", "no_bootstrap_credentials")
		return nil
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     input.Email,
		Role:      account.RoleAdmin,
		CreatedAt: deps.Now(),
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return err
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := deps.Accounts.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", input.Email)
	return nil
}
