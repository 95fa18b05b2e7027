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

// GetBeachByID returns the beach or sql.ErrNoRows.
func GetBeachByID(ctx context.Context, db Querier, id uint) (models.Beach, error) {
	queryBuilder := psql.Select("id", "name", "slug", "description", "cover_image", "created_at", "updated_at").
		From("beaches").
		Where(sq.Eq{"id": id}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return models.Beach{}, fmt.Errorf("failed to build SQL query for GetBeachByID: %w", err)
	}

	var (
		beach       models.Beach
		description sql.NullString
	)
	err = db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&beach.ID, &beach.Name, &beach.Slug, &description, &beach.CoverImage, &beach.CreatedAt, &beach.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Beach{}, sql.ErrNoRows
		}
		return models.Beach{}, fmt.Errorf("failed to query beach %d: %w", id, err)
	}
	if description.Valid {
		beach.Description = &description.String
	}
	return beach, nil
}

// UpdateBeachCoverImage sets the denormalized cover URL of a beach.
func UpdateBeachCoverImage(ctx context.Context, db Querier, beachID uint, coverURL string) error {
	queryBuilder := psql.Update("beaches").
		Set("cover_image", coverURL).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": beachID})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for UpdateBeachCoverImage: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to update cover image for beach %d: %w", beachID, err)
	}
	return nil
}
