package model

import (
	"time"
)

// StatisticsResponse aggregates order and stock activity over a time range
type StatisticsResponse struct {
	OrdersByStatus     map[string]int64 `json:"orders_by_status"`
	TotalOrders        int64            `json:"total_orders"`
	ReturnsRecorded    int64            `json:"returns_recorded"`
	WastagesRecorded   int64            `json:"wastages_recorded"`
	WastedQuantity     int64            `json:"wasted_quantity"`
	LowStockProducts   int              `json:"low_stock_products"`
	TopConsumedItems   []ProductRanking `json:"top_consumed_items"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// ProductRanking represents a ranked product based on accumulated quantities
type ProductRanking struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	UnitType      string `json:"unit_type"`
	TotalQuantity int64  `json:"total_quantity"`
}

// ReturnTotals counts return and wastage records in a range.
type ReturnTotals struct {
	Returns        int64
	Wastages       int64
	WastedQuantity int64
}
