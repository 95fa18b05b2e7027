package repository

import (
	"context"

	"github.com/camden-git/beachfinder/models"
)

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// BeachRepository defines the methods for beach data operations
type BeachRepository interface {
	Create(ctx context.Context, beach *models.Beach) error
	ListAll(ctx context.Context) ([]models.Beach, error)
	GetByID(ctx context.Context, id uint) (*models.Beach, error)
	GetBySlug(ctx context.Context, slug string) (*models.Beach, error)
}
