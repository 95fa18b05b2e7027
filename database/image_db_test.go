package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/models"
)

func openTestDB(t *testing.T) (*gorm.DB, *sql.DB) {
	t.Helper()
	gdb, sqlDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb, sqlDB
}

func createBeach(t *testing.T, gdb *gorm.DB, slug string) models.Beach {
	t.Helper()
	beach := models.Beach{Name: slug, Slug: slug, CoverImage: "/placeholder.webp"}
	if err := gdb.Create(&beach).Error; err != nil {
		t.Fatalf("create beach: %v", err)
	}
	return beach
}

func insertImage(t *testing.T, db Querier, beachID uint, name string, position int, cover bool) models.BeachImage {
	t.Helper()
	img := models.BeachImage{
		BeachID:          beachID,
		Filename:         "slug/" + name + ".webp",
		OriginalFilename: name + ".jpg",
		OriginalFormat:   "jpeg",
		FileSize:         100,
		OriginalSize:     300,
		Width:            640,
		Height:           480,
		Position:         position,
		IsCover:          cover,
		SavingsBytes:     200,
	}
	if err := InsertBeachImage(context.Background(), db, &img); err != nil {
		t.Fatalf("InsertBeachImage() error = %v", err)
	}
	return img
}

func TestInsertAndGetBeachImage(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	beach := createBeach(t, gdb, "bondi")

	img := insertImage(t, db, beach.ID, "a", 0, true)
	if img.ID == 0 {
		t.Fatal("expected inserted id")
	}

	got, err := GetBeachImage(ctx, db, img.ID)
	if err != nil {
		t.Fatalf("GetBeachImage() error = %v", err)
	}
	if got.Filename != img.Filename || !got.IsCover || got.MimeType != models.BeachImageMimeType {
		t.Errorf("unexpected record %+v", got)
	}
	if got.AltText != nil || got.TakenAt != nil || got.UploadedBy != nil {
		t.Errorf("nullable columns should be nil, got %+v", got)
	}

	if _, err := GetBeachImage(ctx, db, img.ID+100); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestNextImagePosition(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	beach := createBeach(t, gdb, "manly")

	next, err := NextImagePosition(ctx, db, beach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next != 0 {
		t.Errorf("empty beach next position = %d, want 0", next)
	}

	insertImage(t, db, beach.ID, "a", 0, true)
	insertImage(t, db, beach.ID, "b", 4, false)

	next, err = NextImagePosition(ctx, db, beach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next != 5 {
		t.Errorf("next position = %d, want 5", next)
	}
}

func TestUpdateImagePositionFiltersByBeach(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	home := createBeach(t, gdb, "home")
	other := createBeach(t, gdb, "other")

	mine := insertImage(t, db, home.ID, "mine", 0, true)
	foreign := insertImage(t, db, other.ID, "foreign", 0, true)

	n, err := UpdateImagePosition(ctx, db, home.ID, foreign.ID, 7)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("foreign image update affected %d rows", n)
	}

	n, err = UpdateImagePosition(ctx, db, home.ID, mine.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("own image update affected %d rows, want 1", n)
	}

	got, _ := GetBeachImage(ctx, db, foreign.ID)
	if got.Position != 0 {
		t.Errorf("foreign image moved to %d", got.Position)
	}
}

func TestCoverStatements(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	beach := createBeach(t, gdb, "coogee")

	a := insertImage(t, db, beach.ID, "a", 1, true)
	b := insertImage(t, db, beach.ID, "b", 0, false)

	if err := ClearBeachCover(ctx, db, beach.ID); err != nil {
		t.Fatal(err)
	}
	if err := MarkImageCover(ctx, db, b.ID); err != nil {
		t.Fatal(err)
	}

	images, err := ListBeachImages(ctx, db, beach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 || images[0].ID != b.ID || images[1].ID != a.ID {
		t.Fatalf("unexpected order %+v", images)
	}
	if !images[0].IsCover || images[1].IsCover {
		t.Errorf("cover flags wrong: %+v", images)
	}

	first, err := FirstBeachImage(ctx, db, beach.ID)
	if err != nil || first.ID != b.ID {
		t.Errorf("FirstBeachImage() = %d, %v; want %d", first.ID, err, b.ID)
	}

	if err := UpdateBeachCoverImage(ctx, db, beach.ID, "/media/coogee/b_medium.webp"); err != nil {
		t.Fatal(err)
	}
	got, err := GetBeachByID(ctx, db, beach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CoverImage != "/media/coogee/b_medium.webp" {
		t.Errorf("cover_image = %q", got.CoverImage)
	}
}

func TestUpdateImageAltText(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	beach := createBeach(t, gdb, "tamarama")
	img := insertImage(t, db, beach.ID, "a", 0, true)

	alt := "Sunset over the rocks"
	if _, err := UpdateImageAltText(ctx, db, img.ID, &alt); err != nil {
		t.Fatal(err)
	}
	got, _ := GetBeachImage(ctx, db, img.ID)
	if got.AltText == nil || *got.AltText != alt {
		t.Errorf("alt text = %v, want %q", got.AltText, alt)
	}

	if _, err := UpdateImageAltText(ctx, db, img.ID, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = GetBeachImage(ctx, db, img.ID)
	if got.AltText != nil {
		t.Errorf("alt text should be NULL, got %q", *got.AltText)
	}

	n, err := UpdateImageAltText(ctx, db, img.ID+50, &alt)
	if err != nil || n != 0 {
		t.Errorf("unknown id: affected=%d err=%v", n, err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	gdb, db := openTestDB(t)
	ctx := context.Background()
	beach := createBeach(t, gdb, "bronte")

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		insertImage(t, tx, beach.ID, "a", 0, true)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	count, err := CountBeachImages(ctx, db, beach.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rolled back insert still visible, count = %d", count)
	}

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		insertImage(t, tx, beach.ID, "b", 0, true)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	count, _ = CountBeachImages(ctx, db, beach.ID)
	if count != 1 {
		t.Errorf("committed insert missing, count = %d", count)
	}
}
