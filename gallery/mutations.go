package gallery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/logging"
)

// Delete removes an image record and its stored files in one transaction.
// Deleting the cover promotes the lowest-position survivor, or restores the
// placeholder when none remain. A file deletion failure rolls the row back.
func (m *Manager) Delete(ctx context.Context, cmd DeleteCommand) error {
	if err := validateCommand(cmd, "Image ID is required"); err != nil {
		return err
	}

	var deleted struct {
		beachID uint
		cover   bool
	}
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		img, err := database.GetBeachImage(ctx, tx, cmd.ImageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("Image not found")
			}
			return err
		}
		deleted.beachID, deleted.cover = img.BeachID, img.IsCover

		if _, err := database.DeleteBeachImage(ctx, tx, img.ID); err != nil {
			return err
		}
		if img.IsCover {
			if err := m.promoteCover(ctx, tx, img.BeachID); err != nil {
				return err
			}
		}
		if err := m.optimizer.DeleteVariants(ctx, img.Filename); err != nil {
			return fmt.Errorf("failed to delete files for %s: %w", img.Filename, err)
		}
		return nil
	})
	if err != nil {
		return asError(err, "Failed to delete image")
	}

	logging.Ctx(ctx).Info().
		Uint("beach_id", deleted.beachID).
		Uint("image_id", cmd.ImageID).
		Bool("was_cover", deleted.cover).
		Msg("gallery: image deleted")
	m.publish(ActionDelete, deleted.beachID, cmd.ImageID)
	return nil
}

func (m *Manager) promoteCover(ctx context.Context, tx *sql.Tx, beachID uint) error {
	next, err := database.FirstBeachImage(ctx, tx, beachID)
	if errors.Is(err, sql.ErrNoRows) {
		return database.UpdateBeachCoverImage(ctx, tx, beachID, m.cfg.PlaceholderCoverURL)
	}
	if err != nil {
		return err
	}
	if err := database.MarkImageCover(ctx, tx, next.ID); err != nil {
		return err
	}
	return database.UpdateBeachCoverImage(ctx, tx, beachID, m.imageURLs(next.Filename).Medium)
}

// Reorder assigns each listed id its zero-based index as position. Ids that
// do not parse or do not belong to the beach are skipped without shifting the
// others; images missing from the list keep their old position.
func (m *Manager) Reorder(ctx context.Context, cmd ReorderCommand) error {
	cmd.Order = strings.TrimSpace(cmd.Order)
	if err := validateCommand(cmd, "Beach ID and order are required"); err != nil {
		return err
	}

	var updated int64
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		for position, raw := range strings.Split(cmd.Order, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil || id == 0 {
				continue
			}
			n, err := database.UpdateImagePosition(ctx, tx, cmd.BeachID, uint(id), position)
			if err != nil {
				return err
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return asError(err, "Failed to reorder images")
	}

	logging.Ctx(ctx).Debug().Uint("beach_id", cmd.BeachID).Int64("updated", updated).Msg("gallery: images reordered")
	m.publish(ActionReorder, cmd.BeachID, 0)
	return nil
}

// SetCover makes the image the only cover of its beach.
func (m *Manager) SetCover(ctx context.Context, cmd SetCoverCommand) error {
	if err := validateCommand(cmd, "Image ID is required"); err != nil {
		return err
	}

	var beachID uint
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		img, err := database.GetBeachImage(ctx, tx, cmd.ImageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("Image not found")
			}
			return err
		}
		beachID = img.BeachID

		if err := database.ClearBeachCover(ctx, tx, img.BeachID); err != nil {
			return err
		}
		if err := database.MarkImageCover(ctx, tx, img.ID); err != nil {
			return err
		}
		return database.UpdateBeachCoverImage(ctx, tx, img.BeachID, m.imageURLs(img.Filename).Medium)
	})
	if err != nil {
		return asError(err, "Failed to set cover image")
	}

	m.publish(ActionSetCover, beachID, cmd.ImageID)
	return nil
}

// UpdateAlt stores trimmed alt text; blank text clears it. Unknown ids are
// not an error.
func (m *Manager) UpdateAlt(ctx context.Context, cmd UpdateAltCommand) error {
	if err := validateCommand(cmd, "Image ID is required"); err != nil {
		return err
	}

	var altText *string
	if trimmed := strings.TrimSpace(cmd.AltText); trimmed != "" {
		altText = &trimmed
	}

	n, err := database.UpdateImageAltText(ctx, m.db, cmd.ImageID, altText)
	if err != nil {
		return internal("Failed to update alt text", err)
	}

	if n > 0 {
		if img, err := database.GetBeachImage(ctx, m.db, cmd.ImageID); err == nil {
			m.publish(ActionUpdateAlt, img.BeachID, img.ID)
		}
	}
	return nil
}
