package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/camden-git/beachfinder/media"
)

func TestUploadFirstImageBecomesCover(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "bondi")

	view, err := f.manager.Upload(context.Background(), admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "first.png")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !view.IsCover || view.Position != 0 {
		t.Errorf("first upload: is_cover=%v position=%d, want true/0", view.IsCover, view.Position)
	}
	if view.URLs.Medium != testBaseURL+"/bondi/img-1_medium.webp" {
		t.Errorf("medium url = %q", view.URLs.Medium)
	}
	if view.MimeType != "image/webp" || view.OriginalFilename != "first.png" {
		t.Errorf("unexpected record %+v", view.BeachImage)
	}
	if view.UploadedBy == nil || *view.UploadedBy != admin.UserID {
		t.Errorf("uploaded_by = %v, want %d", view.UploadedBy, admin.UserID)
	}
	if view.FileSizeFormatted == "" || view.SavingsFormatted == "" || view.SavingsPercent <= 0 {
		t.Errorf("formatted sizes missing: %+v", view)
	}

	beach := f.reloadBeach(t, b.ID)
	if beach.CoverImage != view.URLs.Medium {
		t.Errorf("beach cover = %q, want %q", beach.CoverImage, view.URLs.Medium)
	}

	if len(f.events.events) != 1 || f.events.events[0].action != ActionUpload || f.events.events[0].imageID != view.ID {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestUploadSecondImageKeepsCover(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "manly")
	ctx := context.Background()

	first, err := f.manager.Upload(ctx, admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "1.png")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.manager.Upload(ctx, admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "2.png")})
	if err != nil {
		t.Fatal(err)
	}

	if second.IsCover {
		t.Error("second upload must not become cover")
	}
	if second.Position != first.Position+1 {
		t.Errorf("second position = %d, want %d", second.Position, first.Position+1)
	}

	imgs := f.images(t, b.ID)
	if coverCount(imgs) != 1 || !imgs[0].IsCover || imgs[0].ID != first.ID {
		t.Errorf("cover changed: %+v", imgs)
	}
	if got := f.reloadBeach(t, b.ID).CoverImage; got != first.URLs.Medium {
		t.Errorf("beach cover = %q, want %q", got, first.URLs.Medium)
	}
}

func TestUploadPositionFollowsMax(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "coogee")
	f.seed(t, 10, b.ID, 7, true, "old.jpg")

	view, err := f.manager.Upload(context.Background(), admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "new.png")})
	if err != nil {
		t.Fatal(err)
	}
	if view.Position != 8 {
		t.Errorf("position = %d, want 8", view.Position)
	}
}

func TestUploadValidationOrder(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "bronte")
	ctx := context.Background()

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cmd     UploadCommand
		kind    Kind
		message string
	}{
		{
			name:    "missing beach",
			cmd:     UploadCommand{Failure: UploadNoFile},
			kind:    KindInvalid,
			message: "Beach ID is required",
		},
		{
			name:    "unknown beach wins over transport error",
			cmd:     UploadCommand{BeachID: b.ID + 99, Failure: UploadTooLarge},
			kind:    KindNotFound,
			message: "Beach not found",
		},
		{
			name:    "transport failure",
			cmd:     UploadCommand{BeachID: b.ID, Failure: UploadPartial},
			kind:    KindInvalid,
			message: UploadPartial.Message(),
		},
		{
			name:    "extension blocked",
			cmd:     UploadCommand{BeachID: b.ID, Failure: UploadExtensionBlocked},
			kind:    KindInvalid,
			message: UploadExtensionBlocked.Message(),
		},
		{
			name:    "no file",
			cmd:     UploadCommand{BeachID: b.ID},
			kind:    KindInvalid,
			message: UploadNoFile.Message(),
		},
		{
			name:    "bmp with jpg name",
			cmd:     UploadCommand{BeachID: b.ID, File: f.writeFile(t, "holiday.jpg", bmpBuf.Bytes())},
			kind:    KindInvalid,
			message: "Invalid file type. Allowed types: JPEG, PNG, WebP, GIF",
		},
		{
			name:    "one byte over the limit",
			cmd:     UploadCommand{BeachID: b.ID, File: f.writeFile(t, "big.png", pngOfSize(testMaxUpload+1))},
			kind:    KindInvalid,
			message: "File too large. Maximum size is 10 MiB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Upload(ctx, admin, tt.cmd)
			assertKind(t, err, tt.kind)
			var ge *Error
			errors.As(err, &ge)
			if ge.Message != tt.message {
				t.Errorf("message = %q, want %q", ge.Message, tt.message)
			}
		})
	}

	if f.optimizer.optimized != 0 {
		t.Errorf("optimizer called %d times for rejected uploads", f.optimizer.optimized)
	}
	if imgs := f.images(t, b.ID); len(imgs) != 0 {
		t.Errorf("rejected uploads persisted %d records", len(imgs))
	}
}

func TestUploadExactLimitAccepted(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "tamarama")

	_, err := f.manager.Upload(context.Background(), admin, UploadCommand{
		BeachID: b.ID,
		File:    f.writeFile(t, "exact.png", pngOfSize(testMaxUpload)),
	})
	if err != nil {
		t.Fatalf("exactly 10 MiB should be accepted, got %v", err)
	}
}

func TestUploadOptimizerFailure(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "clovelly")
	f.optimizer.optimizeErr = &media.OptimizeError{Message: "Image dimensions too small"}

	_, err := f.manager.Upload(context.Background(), admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "x.png")})
	assertKind(t, err, KindInvalid)
	var ge *Error
	errors.As(err, &ge)
	if ge.Message != "Image dimensions too small" {
		t.Errorf("message = %q, want optimizer message", ge.Message)
	}
	if imgs := f.images(t, b.ID); len(imgs) != 0 {
		t.Errorf("records persisted after optimizer failure: %d", len(imgs))
	}
	if got := f.reloadBeach(t, b.ID).CoverImage; got != testPlaceholder {
		t.Errorf("beach cover changed to %q", got)
	}
}

func TestUploadOptimizerFailureHidesCause(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "gordons-bay")
	cause := errors.New("failed to create destination file '/srv/media/gordons-bay/x.webp': permission denied")

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"wrapped cause", &media.OptimizeError{Message: "Failed to store optimized image", Err: cause}, "Failed to store optimized image"},
		{"foreign error", cause, "Failed to process image"},
	}
	for _, tt := range tests {
		f.optimizer.optimizeErr = tt.err
		_, err := f.manager.Upload(context.Background(), admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "x.png")})
		assertKind(t, err, KindInvalid)
		var ge *Error
		errors.As(err, &ge)
		if ge.Message != tt.message {
			t.Errorf("%s: message = %q, want %q", tt.name, ge.Message, tt.message)
		}
		if !errors.Is(err, cause) {
			t.Errorf("%s: cause not kept for logging", tt.name)
		}
	}
}

func TestUploadInsertFailureRemovesFiles(t *testing.T) {
	f := newFixture(t)
	b := f.beach(t, "maroubra")

	err := f.gdb.Exec(`CREATE TRIGGER reject_images BEFORE INSERT ON beach_images
		BEGIN SELECT RAISE(ABORT, 'disk full'); END;`).Error
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.manager.Upload(context.Background(), admin, UploadCommand{BeachID: b.ID, File: f.pngFile(t, "x.png")})
	assertKind(t, err, KindInternal)

	if f.optimizer.optimized != 1 {
		t.Fatalf("optimizer should have run once, ran %d", f.optimizer.optimized)
	}
	if n := f.optimizer.fileCount(); n != 0 {
		t.Errorf("%d optimized files left behind after insert failure", n)
	}
	if got := f.reloadBeach(t, b.ID).CoverImage; got != testPlaceholder {
		t.Errorf("beach cover = %q, want placeholder", got)
	}
	if len(f.events.events) != 0 {
		t.Errorf("failed upload published events: %+v", f.events.events)
	}
}
