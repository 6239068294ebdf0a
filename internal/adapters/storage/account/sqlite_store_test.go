package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"civicwatch/internal/adapters/storage"
	domain "civicwatch/internal/domain/account"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("init db: %v", err)
	}
	return db
}

// TestSQLiteStore_SaveAndGet tests the account round trip.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	a := domain.Account{
		ID:        "acc-1",
		Email:     "editor@example.lu",
		Role:      domain.RoleEditor,
		CreatedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	if err := a.SetPassword("correct-horse-battery"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetByEmail(ctx, a.Email)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != a.ID || got.Role != a.Role || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if err := got.CheckPassword("correct-horse-battery"); err != nil {
		t.Errorf("stored hash rejects the original password: %v", err)
	}
}

// TestSQLiteStore_GetByEmail_NotFound tests the missing-account error.
func TestSQLiteStore_GetByEmail_NotFound(t *testing.T) {
	store := NewSQLiteStore(testDB(t))
	if _, err := store.GetByEmail(context.Background(), "nobody@example.lu"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// TestSQLiteStore_Count tests counting across inserts and upserts.
func TestSQLiteStore_Count(t *testing.T) {
	store := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}

	a := domain.Account{ID: "acc-1", Email: "admin@example.lu", Role: domain.RoleAdmin, CreatedAt: time.Now().UTC()}
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Upsert on the same email must not bump the count.
	a.Role = domain.RoleEditor
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	n, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
