package repository

import (
	"context"

	"sitesupply/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReturnFilter struct {
	Kind   string
	SiteID *uuid.UUID
	Page   int
	Limit  int
}

type ReturnRepository interface {
	Create(ctx context.Context, record *model.ReturnRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ReturnRecord, error)
	List(ctx context.Context, filter ReturnFilter) ([]model.ReturnRecord, int64, error)
}

type returnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) Create(ctx context.Context, record *model.ReturnRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *returnRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ReturnRecord, error) {
	var record model.ReturnRecord
	if err := GetDB(ctx, r.db).Preload("Items").First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *returnRepository) List(ctx context.Context, filter ReturnFilter) ([]model.ReturnRecord, int64, error) {
	var records []model.ReturnRecord
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ReturnRecord{})
	if filter.Kind != "" {
		db = db.Where("kind = ?", filter.Kind)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Items").Order("date DESC").Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
