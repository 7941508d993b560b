package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type CreateProductRequest struct {
	Name              string `json:"name" binding:"required"`
	Category          string `json:"category"`
	Store             string `json:"store" binding:"required,oneof=hardware_store lpo warehouse"`
	UnitType          string `json:"unit_type"`
	LowStockThreshold int    `json:"low_stock_threshold" binding:"min=0"`
}

type AdjustStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	SiteID    string `json:"site_id"`
	Delta     int    `json:"delta" binding:"required"`
	Note      string `json:"note"`
}

type ProductResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	Store             string `json:"store"`
	UnitType          string `json:"unit_type"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	AvailableQty      int    `json:"available_qty"`
}

type StockLevelResponse struct {
	ProductID string  `json:"product_id"`
	SiteID    *string `json:"site_id"`
	General   int     `json:"general"`
	Site      int     `json:"site"`
	Available int     `json:"available"`
}

type StockMovementResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	SiteID    *string `json:"site_id"`
	Quantity  int     `json:"quantity"`
	Delta     int     `json:"delta"`
	Source    string  `json:"source"`
	OrderID   *string `json:"order_id"`
	ReturnID  *string `json:"return_id"`
	Status    string  `json:"status"`
	Note      string  `json:"note"`
	CreatedAt string  `json:"created_at"`
}

type MovementQuery struct {
	ProductID string
	SiteID    string
	General   bool
	Source    string
	Page      int
	Limit     int
}

// StockChange is one ledger write. SiteID nil is general stock.
type StockChange struct {
	ProductID     uuid.UUID
	SiteID        *uuid.UUID
	Delta         int
	Source        string
	OrderID       *uuid.UUID
	ReturnID      *uuid.UUID
	Note          string
	ActorID       uuid.UUID
	AllowNegative bool
}

// StockResult reports the appended row and whether the product's total
// availability crossed its low-stock threshold with this write.
type StockResult struct {
	Movement       *model.StockMovement
	Product        *model.Product
	CrossedLowMark bool
}

// StockCache is an optional read-through cache of scope snapshots.
type StockCache interface {
	Get(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, bool, error)
	Set(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID, qty int) error
	Invalidate(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) error
}

// StockLedger answers availability questions and appends snapshots.
type StockLedger interface {
	GetCurrentStock(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, error)
	Available(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, error)
	Apply(ctx context.Context, change StockChange) (StockResult, error)
}

type StockService interface {
	StockLedger
	StockLevel(ctx context.Context, productID, siteID string) (StockLevelResponse, error)
	AdjustStock(ctx context.Context, actor Actor, req AdjustStockRequest) (StockMovementResponse, error)
	ListMovements(ctx context.Context, q MovementQuery) ([]StockMovementResponse, int64, error)
	ListLowStock(ctx context.Context) ([]ProductResponse, error)
	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
}

type stockService struct {
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
	siteRepo    repository.SiteRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    NotificationSink
	cache       StockCache
	logger      *zap.Logger
}

// NewStockService wires the ledger. cache may be nil.
func NewStockService(
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	siteRepo repository.SiteRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier NotificationSink,
	cache StockCache,
	logger *zap.Logger,
) StockService {
	return &stockService{
		stockRepo:   stockRepo,
		productRepo: productRepo,
		siteRepo:    siteRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
		cache:       cache,
		logger:      logger,
	}
}

// GetCurrentStock is a latest-wins read of one scope, not a sum.
// Reads inside a transaction bypass the cache in both directions.
func (s *stockService) GetCurrentStock(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, error) {
	useCache := s.cache != nil && !repository.InTx(ctx)
	if useCache {
		qty, ok, err := s.cache.Get(ctx, productID, siteID)
		if err != nil {
			s.logger.Warn("stock cache read failed", zap.String("product_id", productID.String()), zap.Error(err))
		} else if ok {
			return qty, nil
		}
	}

	latest, err := s.stockRepo.Latest(ctx, productID, siteID)
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	qty := 0
	if latest != nil {
		qty = latest.Quantity
	}

	if useCache {
		if err := s.cache.Set(ctx, productID, siteID, qty); err != nil {
			s.logger.Warn("stock cache write failed", zap.String("product_id", productID.String()), zap.Error(err))
		}
	}
	return qty, nil
}

// Available is general stock plus the site's own scope.
func (s *stockService) Available(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, error) {
	general, err := s.GetCurrentStock(ctx, productID, nil)
	if err != nil {
		return 0, err
	}
	if siteID == nil {
		return general, nil
	}
	site, err := s.GetCurrentStock(ctx, productID, siteID)
	if err != nil {
		return 0, err
	}
	return general + site, nil
}

// Apply locks the product, reads the prior snapshot of the scope from the
// store and appends prior+delta. It joins the caller's transaction.
func (s *stockService) Apply(ctx context.Context, change StockChange) (StockResult, error) {
	var result StockResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByIDForUpdate(txCtx, change.ProductID)
		if err != nil {
			return notFound(err, "product")
		}

		latest, err := s.stockRepo.Latest(txCtx, change.ProductID, change.SiteID)
		if err != nil {
			return fmt.Errorf("failed to read stock: %w", err)
		}
		prior := 0
		if latest != nil {
			prior = latest.Quantity
		}

		next := prior + change.Delta
		if next < 0 && !change.AllowNegative {
			return apperror.InsufficientStock("delta", -change.Delta, prior)
		}

		var createdBy *uuid.UUID
		if change.ActorID != uuid.Nil {
			id := change.ActorID
			createdBy = &id
		}
		movement := &model.StockMovement{
			ProductID: change.ProductID,
			SiteID:    change.SiteID,
			Quantity:  next,
			Delta:     change.Delta,
			Source:    change.Source,
			OrderID:   change.OrderID,
			ReturnID:  change.ReturnID,
			Status:    model.MovementActive,
			Note:      change.Note,
			CreatedBy: createdBy,
			CreatedAt: time.Now(),
		}
		if err := s.stockRepo.Append(txCtx, movement); err != nil {
			return fmt.Errorf("failed to append stock movement: %w", err)
		}
		if err := s.productRepo.AddAvailableQty(txCtx, product.ID, change.Delta); err != nil {
			return fmt.Errorf("failed to refresh available quantity: %w", err)
		}

		before := product.AvailableQty
		product.AvailableQty += change.Delta
		result = StockResult{
			Movement: movement,
			Product:  product,
			CrossedLowMark: product.LowStockThreshold > 0 &&
				before > product.LowStockThreshold &&
				product.AvailableQty <= product.LowStockThreshold,
		}
		return nil
	})
	if err != nil {
		return StockResult{}, err
	}

	if s.cache != nil {
		// An outer transaction may still roll back; drop the key once it commits.
		repository.AfterCommit(ctx, func() {
			if err := s.cache.Invalidate(context.WithoutCancel(ctx), change.ProductID, change.SiteID); err != nil {
				s.logger.Warn("stock cache invalidation failed", zap.String("product_id", change.ProductID.String()), zap.Error(err))
			}
		})
	}
	return result, nil
}

func (s *stockService) StockLevel(ctx context.Context, productID, siteID string) (StockLevelResponse, error) {
	pid, err := parseID("product_id", productID)
	if err != nil {
		return StockLevelResponse{}, err
	}
	sid, err := parseOptionalID("site_id", siteID)
	if err != nil {
		return StockLevelResponse{}, err
	}
	if _, err := s.productRepo.FindByID(ctx, pid); err != nil {
		return StockLevelResponse{}, notFound(err, "product")
	}

	general, err := s.GetCurrentStock(ctx, pid, nil)
	if err != nil {
		return StockLevelResponse{}, err
	}
	res := StockLevelResponse{ProductID: pid.String(), General: general, Available: general}
	if sid != nil {
		site, err := s.GetCurrentStock(ctx, pid, sid)
		if err != nil {
			return StockLevelResponse{}, err
		}
		str := sid.String()
		res.SiteID = &str
		res.Site = site
		res.Available = general + site
	}
	return res, nil
}

func (s *stockService) AdjustStock(ctx context.Context, actor Actor, req AdjustStockRequest) (StockMovementResponse, error) {
	if err := actor.require(authz.CapStockAdjust); err != nil {
		return StockMovementResponse{}, err
	}
	if req.Delta == 0 {
		return StockMovementResponse{}, apperror.Validation(map[string]string{"delta": "must not be zero"})
	}
	pid, err := parseID("product_id", req.ProductID)
	if err != nil {
		return StockMovementResponse{}, err
	}
	sid, err := parseOptionalID("site_id", req.SiteID)
	if err != nil {
		return StockMovementResponse{}, err
	}

	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		return StockMovementResponse{}, notFound(err, "product")
	}
	if !product.TracksStock() {
		return StockMovementResponse{}, apperror.Validation(map[string]string{"product_id": "LPO products are not stock tracked"})
	}
	if sid != nil {
		if _, err := s.siteRepo.FindByID(ctx, *sid); err != nil {
			return StockMovementResponse{}, notFound(err, "site")
		}
	}

	var result StockResult
	var notes []model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var applyErr error
		result, applyErr = s.Apply(txCtx, StockChange{
			ProductID: pid,
			SiteID:    sid,
			Delta:     req.Delta,
			Source:    model.SourceAdjustment,
			Note:      strings.TrimSpace(req.Note),
			ActorID:   actor.ID,
		})
		if applyErr != nil {
			return applyErr
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionAdjustStock, result.Movement.ID.String(), product.Name, map[string]interface{}{
			"product_id": pid.String(),
			"site_id":    req.SiteID,
			"delta":      req.Delta,
			"quantity":   result.Movement.Quantity,
			"note":       req.Note,
		}); err != nil {
			return err
		}

		if result.CrossedLowMark {
			var recErr error
			notes, recErr = s.notifier.Record(txCtx, lowStockEvent(result.Product))
			return recErr
		}
		return nil
	})
	if err != nil {
		return StockMovementResponse{}, err
	}

	s.notifier.Publish(notes)
	return toMovementResponse(*result.Movement), nil
}

func (s *stockService) ListMovements(ctx context.Context, q MovementQuery) ([]StockMovementResponse, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	pid, err := parseOptionalID("product_id", q.ProductID)
	if err != nil {
		return nil, 0, err
	}
	sid, err := parseOptionalID("site_id", q.SiteID)
	if err != nil {
		return nil, 0, err
	}

	rows, total, err := s.stockRepo.List(ctx, repository.MovementFilter{
		ProductID: pid,
		SiteID:    sid,
		General:   q.General,
		Source:    q.Source,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}

	res := make([]StockMovementResponse, 0, len(rows))
	for _, m := range rows {
		res = append(res, toMovementResponse(m))
	}
	return res, total, nil
}

func (s *stockService) ListLowStock(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.stockRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, nil
}

func (s *stockService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error) {
	if err := actor.require(authz.CapStockAdjust); err != nil {
		return ProductResponse{}, err
	}
	product := model.Product{
		Name:              strings.TrimSpace(req.Name),
		Category:          req.Category,
		Store:             req.Store,
		UnitType:          req.UnitType,
		LowStockThreshold: req.LowStockThreshold,
	}
	if product.Name == "" {
		return ProductResponse{}, apperror.Validation(map[string]string{"name": "is required"})
	}
	if product.Store == "" {
		product.Store = model.StoreHardware
	}
	if err := s.productRepo.Create(ctx, &product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductResponse(&product), nil
}

func (s *stockService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func lowStockEvent(p *model.Product) Event {
	return Event{
		Type: model.EventLowStock,
		Data: map[string]interface{}{
			"product_id":          p.ID.String(),
			"product_name":        p.Name,
			"available_qty":       p.AvailableQty,
			"low_stock_threshold": p.LowStockThreshold,
		},
	}
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID.String(),
		Name:              p.Name,
		Category:          p.Category,
		Store:             p.Store,
		UnitType:          p.UnitType,
		LowStockThreshold: p.LowStockThreshold,
		AvailableQty:      p.AvailableQty,
	}
}

func toMovementResponse(m model.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:        m.ID.String(),
		ProductID: m.ProductID.String(),
		SiteID:    idString(m.SiteID),
		Quantity:  m.Quantity,
		Delta:     m.Delta,
		Source:    m.Source,
		OrderID:   idString(m.OrderID),
		ReturnID:  idString(m.ReturnID),
		Status:    m.Status,
		Note:      m.Note,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
