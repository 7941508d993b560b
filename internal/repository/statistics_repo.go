package repository

import (
	"context"
	"time"

	"sitesupply/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	OrderCountsByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error)
	TopConsumed(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error)
	ReturnTotals(ctx context.Context, start, end time.Time) (model.ReturnTotals, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) OrderCountsByStatus(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select("status, COUNT(*) as total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// TopConsumed ranks products by the stock deducted on order completion.
func (r *statisticsRepository) TopConsumed(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	err := GetDB(ctx, r.db).Table("stock_movements").
		Select("products.id as product_id, products.name as product_name, products.unit_type as unit_type, SUM(-stock_movements.delta) as total_quantity").
		Joins("JOIN products ON products.id = stock_movements.product_id").
		Where("stock_movements.source = ? AND stock_movements.status = ? AND stock_movements.created_at >= ? AND stock_movements.created_at <= ?",
			model.SourceOrderCompleted, model.MovementActive, start, end).
		Group("products.id, products.name, products.unit_type").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error
	return rankings, err
}

func (r *statisticsRepository) ReturnTotals(ctx context.Context, start, end time.Time) (model.ReturnTotals, error) {
	var totals model.ReturnTotals
	db := GetDB(ctx, r.db)

	var kinds []struct {
		Kind  string
		Total int64
	}
	err := db.Model(&model.ReturnRecord{}).
		Select("kind, COUNT(*) as total").
		Where("date >= ? AND date <= ?", start, end).
		Group("kind").
		Scan(&kinds).Error
	if err != nil {
		return totals, err
	}
	for _, k := range kinds {
		switch k.Kind {
		case model.ReturnKindReturn:
			totals.Returns = k.Total
		case model.ReturnKindWastage:
			totals.Wastages = k.Total
		}
	}

	err = db.Table("return_items").
		Select("COALESCE(SUM(return_items.return_quantity), 0)").
		Joins("JOIN returns ON returns.id = return_items.return_id").
		Where("returns.kind = ? AND returns.date >= ? AND returns.date <= ?", model.ReturnKindWastage, start, end).
		Scan(&totals.WastedQuantity).Error
	return totals, err
}
