package gallery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/media"
	"github.com/camden-git/beachfinder/metrics"
	"github.com/camden-git/beachfinder/models"
)

// Upload validates the spooled file, hands it to the optimizer and records the
// result. Checks run in a fixed order and stop at the first failure: beach,
// transport, size, sniffed type, optimizer. The first image of a beach
// becomes its cover. When the record cannot be stored the optimizer's files
// are removed before the error is returned.
func (m *Manager) Upload(ctx context.Context, actor Actor, cmd UploadCommand) (*ImageView, error) {
	if err := validateCommand(cmd, "Beach ID is required"); err != nil {
		return nil, err
	}

	beach, err := database.GetBeachByID(ctx, m.db, cmd.BeachID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Beach not found")
		}
		return nil, internal("Failed to load beach", err)
	}

	if cmd.Failure != UploadOK {
		return nil, invalid(cmd.Failure.Message())
	}
	if cmd.File == nil || cmd.File.Path == "" {
		return nil, invalid(UploadNoFile.Message())
	}

	info, err := os.Stat(cmd.File.Path)
	if err != nil {
		return nil, internal("Uploaded file could not be read", err)
	}
	if info.Size() > m.cfg.MaxUploadBytes {
		return nil, invalid(fmt.Sprintf("File too large. Maximum size is %s", media.FormatFileSize(m.cfg.MaxUploadBytes)))
	}

	contentType, err := sniffFile(cmd.File.Path)
	if err != nil {
		return nil, internal("Uploaded file could not be read", err)
	}
	if !media.IsAllowedUploadType(contentType) {
		return nil, invalid("Invalid file type. Allowed types: JPEG, PNG, WebP, GIF")
	}

	start := time.Now()
	optimized, err := m.optimizer.Optimize(ctx, cmd.File.Path, beach.Slug, cmd.File.OriginalName)
	if err != nil {
		return nil, optimizeFailure(err)
	}
	metrics.RecordImageOptimized(time.Since(start), optimized.SavingsBytes)

	record := models.BeachImage{
		BeachID:          beach.ID,
		Filename:         optimized.Filename,
		OriginalFilename: optimized.OriginalFilename,
		OriginalFormat:   optimized.OriginalFormat,
		FileSize:         optimized.OptimizedSize,
		OriginalSize:     optimized.OriginalSize,
		MimeType:         models.BeachImageMimeType,
		Width:            optimized.Width,
		Height:           optimized.Height,
		SavingsBytes:     optimized.SavingsBytes,
		TakenAt:          optimized.TakenAt,
		CreatedAt:        time.Now().UTC(),
	}
	if actor.UserID != 0 {
		uid := actor.UserID
		record.UploadedBy = &uid
	}

	err = database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		position, err := database.NextImagePosition(ctx, tx, beach.ID)
		if err != nil {
			return err
		}
		existing, err := database.CountBeachImages(ctx, tx, beach.ID)
		if err != nil {
			return err
		}
		record.Position = position
		record.IsCover = existing == 0

		if err := database.InsertBeachImage(ctx, tx, &record); err != nil {
			return err
		}
		if record.IsCover {
			return database.UpdateBeachCoverImage(ctx, tx, beach.ID, m.imageURLs(record.Filename).Medium)
		}
		return nil
	})
	if err != nil {
		if cleanupErr := m.optimizer.DeleteVariants(context.WithoutCancel(ctx), optimized.Filename); cleanupErr != nil {
			logging.Ctx(ctx).Error().Err(cleanupErr).Str("filename", optimized.Filename).Msg("gallery: failed to remove optimized files after insert failure")
		}
		return nil, internal("Failed to save image", err)
	}

	logging.Ctx(ctx).Info().
		Uint("beach_id", beach.ID).
		Uint("image_id", record.ID).
		Bool("is_cover", record.IsCover).
		Msg("gallery: image uploaded")
	m.publish(ActionUpload, beach.ID, record.ID)

	view := m.view(record)
	return &view, nil
}

// optimizeFailure reports an optimizer error as a 400 with the optimizer's
// client message. The cause stays in Err for the log.
func optimizeFailure(err error) *Error {
	var oe *media.OptimizeError
	if errors.As(err, &oe) {
		return &Error{Kind: KindInvalid, Message: oe.Message, Err: err}
	}
	return &Error{Kind: KindInvalid, Message: "Failed to process image", Err: err}
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return media.DetectContentType(f)
}
