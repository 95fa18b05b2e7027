package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/beachfinder/models"
)

// ErrDuplicateSlug is returned by Create when the slug is already taken.
var ErrDuplicateSlug = errors.New("beach slug already exists")

// GormBeachRepository handles database operations for Beach entities
type GormBeachRepository struct {
	DB *gorm.DB
}

func NewGormBeachRepository(db *gorm.DB) BeachRepository {
	return &GormBeachRepository{DB: db}
}

// Create creates a new beach record in the database
func (r *GormBeachRepository) Create(ctx context.Context, beach *models.Beach) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Beach{}).Where("slug = ?", beach.Slug).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug %s: %w", beach.Slug, err)
	}
	if count > 0 {
		return ErrDuplicateSlug
	}

	if err := r.DB.WithContext(ctx).Create(beach).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create beach %s: %w", beach.Name, err)
	}
	return nil
}

// ListAll retrieves all beaches, ordered by name
func (r *GormBeachRepository) ListAll(ctx context.Context) ([]models.Beach, error) {
	beaches := []models.Beach{}
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&beaches).Error; err != nil {
		return nil, fmt.Errorf("failed to list beaches: %w", err)
	}
	return beaches, nil
}

// GetByID retrieves a beach by its ID
func (r *GormBeachRepository) GetByID(ctx context.Context, id uint) (*models.Beach, error) {
	var beach models.Beach
	err := r.DB.WithContext(ctx).First(&beach, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get beach by ID %d: %w", id, err)
	}
	return &beach, nil
}

// GetBySlug retrieves a beach by its slug
func (r *GormBeachRepository) GetBySlug(ctx context.Context, slug string) (*models.Beach, error) {
	var beach models.Beach
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&beach).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get beach by slug %s: %w", slug, err)
	}
	return &beach, nil
}
