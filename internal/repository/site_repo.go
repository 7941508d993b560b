package repository

import (
	"context"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SiteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Site, error)
}

type siteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	var site model.Site
	if err := GetDB(ctx, r.db).First(&site, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}
