package service

import (
	"context"
	"fmt"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"
)

const topConsumedLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor Actor, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo      repository.StatisticsRepository
	stockRepo repository.StockRepository
}

func NewStatisticsService(repo repository.StatisticsRepository, stockRepo repository.StockRepository) StatisticsService {
	return &statisticsService{repo: repo, stockRepo: stockRepo}
}

// GetStatistics aggregates order, consumption and wastage figures within the range
func (s *statisticsService) GetStatistics(ctx context.Context, actor Actor, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if err := actor.require(authz.CapDashboardRead); err != nil {
		return response, err
	}
	if endDate.Before(startDate) {
		return response, apperror.New(apperror.KindValidation, "invalid_date_range", "end_date must not be before start_date")
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	counts, err := s.repo.OrderCountsByStatus(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to count orders: %w", err)
	}
	response.OrdersByStatus = counts
	for _, n := range counts {
		response.TotalOrders += n
	}

	top, err := s.repo.TopConsumed(ctx, startDate, endDate, topConsumedLimit)
	if err != nil {
		return response, fmt.Errorf("failed to rank consumed products: %w", err)
	}
	if top == nil {
		top = []model.ProductRanking{}
	}
	response.TopConsumedItems = top

	totals, err := s.repo.ReturnTotals(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to total returns: %w", err)
	}
	response.ReturnsRecorded = totals.Returns
	response.WastagesRecorded = totals.Wastages
	response.WastedQuantity = totals.WastedQuantity

	low, err := s.stockRepo.ListLowStock(ctx)
	if err != nil {
		return response, fmt.Errorf("failed to list low stock: %w", err)
	}
	response.LowStockProducts = len(low)

	return response, nil
}
