package repository

import (
	"context"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository resolves actors and notification recipients.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListIDsByRoles(ctx context.Context, roles []string) ([]uuid.UUID, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListIDsByRoles(ctx context.Context, roles []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(roles) == 0 {
		return ids, nil
	}
	err := GetDB(ctx, r.db).Model(&model.User{}).
		Where("role IN ?", roles).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}
