package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kunometrika/bmitrack/internal/domain"
)

func openTestRepo(t *testing.T) *EntryRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bmitrack_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewEntryRepository(db)
}

func sampleEntry(sessionID, ref string) domain.Entry {
	return domain.Entry{
		SessionID:  sessionID,
		ClientRef:  ref,
		Name:       "Ona",
		Email:      "ona@example.com",
		Age:        29,
		Gender:     domain.GenderFemale,
		HeightCm:   170,
		WeightKg:   70,
		UnitSystem: domain.UnitMetric,
		BMI:        24.2,
		Category:   domain.CategoryNormal,
	}
}

func TestCreateAndListScopedBySession(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	first, err := repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("entry id not assigned")
	}
	time.Sleep(10 * time.Millisecond)
	second, err := repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-2"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateEntry(ctx, sampleEntry("anon_b", "ref-3")); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := repo.ListEntries(ctx, "anon_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ID != second.ID {
		t.Fatalf("most recent first: got id %d, want %d", entries[0].ID, second.ID)
	}

	other, err := repo.ListEntries(ctx, "anon_missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("unknown session returned %d entries", len(other))
	}
}

func TestDuplicateClientRefRejected(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, err := repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-1"))
	if !errors.Is(err, domain.ErrStoreRejected) {
		t.Fatalf("err = %v, want ErrStoreRejected", err)
	}

	entries, err := repo.ListEntries(ctx, "anon_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestCreateOnBrokenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bmitrack_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	repo := NewEntryRepository(db)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	_ = sqlDB.Close()

	_, err = repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-1"))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestDeleteOnlyOwnEntries(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	mine, err := repo.CreateEntry(ctx, sampleEntry("anon_a", "ref-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	theirs, err := repo.CreateEntry(ctx, sampleEntry("anon_b", "ref-2"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Deleting with someone else's session id must not touch the row.
	if err := repo.DeleteEntry(ctx, "anon_a", theirs.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-session delete: err = %v, want ErrNotFound", err)
	}
	remaining, err := repo.ListEntries(ctx, "anon_b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatal("foreign entry deleted")
	}

	if err := repo.DeleteEntry(ctx, "anon_a", mine.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, err := repo.ListEntries(ctx, "anon_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("entries = %d, want 0", len(left))
	}
}

func TestEntryRoundTripFields(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	in := sampleEntry("anon_a", "ref-1")
	in.UnitSystem = domain.UnitImperial
	in.HeightCm = 182.88
	in.WeightKg = 90.7184
	in.BMI = 27.1
	in.Category = domain.CategoryOverweight

	if _, err := repo.CreateEntry(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	entries, err := repo.ListEntries(ctx, "anon_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := entries[0]
	if got.UnitSystem != domain.UnitImperial || got.Category != domain.CategoryOverweight {
		t.Fatalf("entry = %+v", got)
	}
	if got.HeightCm != 182.88 || got.BMI != 27.1 {
		t.Fatalf("entry = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}
