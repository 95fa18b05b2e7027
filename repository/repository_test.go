package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, sqlDB, err := database.Open(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func TestBeachRepository(t *testing.T) {
	repo := NewGormBeachRepository(openTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"Manly", "Bondi"} {
		b := &models.Beach{Name: name, Slug: "slug-" + name, CoverImage: "/placeholder.webp"}
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	dup := &models.Beach{Name: "Again", Slug: "slug-Bondi", CoverImage: "/placeholder.webp"}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("duplicate slug error = %v, want ErrDuplicateSlug", err)
	}

	beaches, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(beaches) != 2 || beaches[0].Name != "Bondi" {
		t.Errorf("ListAll() should be ordered by name, got %+v", beaches)
	}

	got, err := repo.GetBySlug(ctx, "slug-Manly")
	if err != nil || got.Name != "Manly" {
		t.Errorf("GetBySlug() = %v, %v", got, err)
	}

	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetByID(999) error = %v, want ErrRecordNotFound", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	repo := NewGormUserRepository(openTestDB(t))
	ctx := context.Background()

	if err := EnsureAdmin(ctx, repo, "", ""); err != nil {
		t.Fatalf("empty credentials should be a no-op, got %v", err)
	}

	if err := EnsureAdmin(ctx, repo, "root", "s3cret-pass"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	user, err := repo.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatal(err)
	}
	if !user.IsAdmin || !user.CheckPassword("s3cret-pass") {
		t.Errorf("bootstrap admin not created correctly: %+v", user)
	}

	// second call keeps the existing account
	if err := EnsureAdmin(ctx, repo, "root", "other-pass"); err != nil {
		t.Fatal(err)
	}
	user, _ = repo.GetByUsername(ctx, "root")
	if !user.CheckPassword("s3cret-pass") {
		t.Error("existing admin password was overwritten")
	}
}
