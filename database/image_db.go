package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/beachfinder/models"
)

var beachImageColumns = []string{
	"id", "beach_id", "filename", "original_filename", "original_format",
	"file_size", "original_size", "mime_type", "width", "height",
	"position", "is_cover", "savings_bytes", "alt_text", "taken_at",
	"created_at", "uploaded_by",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBeachImage(row rowScanner) (models.BeachImage, error) {
	var (
		img        models.BeachImage
		altText    sql.NullString
		takenAt    sql.NullTime
		uploadedBy sql.NullInt64
	)
	err := row.Scan(
		&img.ID, &img.BeachID, &img.Filename, &img.OriginalFilename, &img.OriginalFormat,
		&img.FileSize, &img.OriginalSize, &img.MimeType, &img.Width, &img.Height,
		&img.Position, &img.IsCover, &img.SavingsBytes, &altText, &takenAt,
		&img.CreatedAt, &uploadedBy,
	)
	if err != nil {
		return models.BeachImage{}, err
	}
	if altText.Valid {
		img.AltText = &altText.String
	}
	if takenAt.Valid {
		t := takenAt.Time
		img.TakenAt = &t
	}
	if uploadedBy.Valid {
		uid := uint(uploadedBy.Int64)
		img.UploadedBy = &uid
	}
	return img, nil
}

// InsertBeachImage persists a new image record and sets img.ID.
func InsertBeachImage(ctx context.Context, db Querier, img *models.BeachImage) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	if img.MimeType == "" {
		img.MimeType = models.BeachImageMimeType
	}

	queryBuilder := psql.Insert("beach_images").
		Columns(beachImageColumns[1:]...).
		Values(
			img.BeachID, img.Filename, img.OriginalFilename, img.OriginalFormat,
			img.FileSize, img.OriginalSize, img.MimeType, img.Width, img.Height,
			img.Position, img.IsCover, img.SavingsBytes, img.AltText, img.TakenAt,
			img.CreatedAt, img.UploadedBy,
		)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for InsertBeachImage: %w", err)
	}

	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to insert image for beach %d: %w", img.BeachID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted image id: %w", err)
	}
	img.ID = uint(id)
	return nil
}

// GetBeachImage returns the image or sql.ErrNoRows.
func GetBeachImage(ctx context.Context, db Querier, id uint) (models.BeachImage, error) {
	queryBuilder := psql.Select(beachImageColumns...).
		From("beach_images").
		Where(sq.Eq{"id": id}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return models.BeachImage{}, fmt.Errorf("failed to build SQL query for GetBeachImage: %w", err)
	}

	img, err := scanBeachImage(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BeachImage{}, sql.ErrNoRows
		}
		return models.BeachImage{}, fmt.Errorf("failed to query image %d: %w", id, err)
	}
	return img, nil
}

// ListBeachImages returns every image of a beach ordered by position, then id.
func ListBeachImages(ctx context.Context, db Querier, beachID uint) ([]models.BeachImage, error) {
	queryBuilder := psql.Select(beachImageColumns...).
		From("beach_images").
		Where(sq.Eq{"beach_id": beachID}).
		OrderBy("position ASC", "id ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListBeachImages: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images for beach %d: %w", beachID, err)
	}
	defer rows.Close()

	images := []models.BeachImage{}
	for rows.Next() {
		img, err := scanBeachImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row for beach %d: %w", beachID, err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images for beach %d: %w", beachID, err)
	}
	return images, nil
}

// CountBeachImages returns how many images a beach has.
func CountBeachImages(ctx context.Context, db Querier, beachID uint) (int, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").
		From("beach_images").
		Where(sq.Eq{"beach_id": beachID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for CountBeachImages: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images for beach %d: %w", beachID, err)
	}
	return count, nil
}

// NextImagePosition returns 1 + the highest position of the beach, or 0 when
// the beach has no images.
func NextImagePosition(ctx context.Context, db Querier, beachID uint) (int, error) {
	sqlStr, args, err := psql.Select("COALESCE(MAX(position) + 1, 0)").
		From("beach_images").
		Where(sq.Eq{"beach_id": beachID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for NextImagePosition: %w", err)
	}

	var next int
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next position for beach %d: %w", beachID, err)
	}
	return next, nil
}

// FirstBeachImage returns the image with the lowest position, or sql.ErrNoRows.
func FirstBeachImage(ctx context.Context, db Querier, beachID uint) (models.BeachImage, error) {
	queryBuilder := psql.Select(beachImageColumns...).
		From("beach_images").
		Where(sq.Eq{"beach_id": beachID}).
		OrderBy("position ASC", "id ASC").
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return models.BeachImage{}, fmt.Errorf("failed to build SQL query for FirstBeachImage: %w", err)
	}

	img, err := scanBeachImage(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BeachImage{}, sql.ErrNoRows
		}
		return models.BeachImage{}, fmt.Errorf("failed to query first image of beach %d: %w", beachID, err)
	}
	return img, nil
}

// DeleteBeachImage removes an image row and reports how many rows went away.
func DeleteBeachImage(ctx context.Context, db Querier, id uint) (int64, error) {
	sqlStr, args, err := psql.Delete("beach_images").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for DeleteBeachImage: %w", err)
	}

	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete image %d: %w", id, err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// ClearBeachCover unsets is_cover on every image of the beach.
func ClearBeachCover(ctx context.Context, db Querier, beachID uint) error {
	sqlStr, args, err := psql.Update("beach_images").
		Set("is_cover", false).
		Where(sq.Eq{"beach_id": beachID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for ClearBeachCover: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to clear cover for beach %d: %w", beachID, err)
	}
	return nil
}

// MarkImageCover sets is_cover on a single image.
func MarkImageCover(ctx context.Context, db Querier, imageID uint) error {
	sqlStr, args, err := psql.Update("beach_images").
		Set("is_cover", true).
		Where(sq.Eq{"id": imageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for MarkImageCover: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to mark image %d as cover: %w", imageID, err)
	}
	return nil
}

// UpdateImagePosition moves an image, but only when it belongs to beachID.
// Returns the number of rows changed (0 for foreign or unknown ids).
func UpdateImagePosition(ctx context.Context, db Querier, beachID, imageID uint, position int) (int64, error) {
	sqlStr, args, err := psql.Update("beach_images").
		Set("position", position).
		Where(sq.Eq{"id": imageID, "beach_id": beachID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for UpdateImagePosition: %w", err)
	}

	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update position of image %d: %w", imageID, err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// UpdateImageAltText sets or clears (nil) the alt text of an image.
func UpdateImageAltText(ctx context.Context, db Querier, imageID uint, altText *string) (int64, error) {
	sqlStr, args, err := psql.Update("beach_images").
		Set("alt_text", altText).
		Where(sq.Eq{"id": imageID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for UpdateImageAltText: %w", err)
	}

	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update alt text of image %d: %w", imageID, err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}
