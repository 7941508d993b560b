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

// --- DTOs ---

// ReturnItemInput accepts both the canonical item fields and the legacy
// wastage fields (quantity, wastage_qty).
type ReturnItemInput struct {
	ProductID       string `json:"product_id"`
	OrderedQuantity *int   `json:"ordered_quantity,omitempty"`
	ReturnQuantity  *int   `json:"return_quantity,omitempty"`
	Quantity        *int   `json:"quantity,omitempty"`
	WastageQty      *int   `json:"wastage_qty,omitempty"`
	UnitType        string `json:"unit_type"`
	AdjustStock     bool   `json:"adjust_stock"`
}

type ReturnPayload struct {
	Type      string            `json:"type"`
	ManagerID string            `json:"manager_id"`
	SiteID    string            `json:"site_id"`
	OrderID   string            `json:"order_id"`
	Date      *time.Time        `json:"date"`
	Reason    string            `json:"reason"`
	Items     []ReturnItemInput `json:"items"`
	Products  []ReturnItemInput `json:"products"`
}

type ReturnQuery struct {
	Kind   string
	SiteID string
	Page   int
	Limit  int
}

type ReturnItemResponse struct {
	ProductID       string `json:"product_id"`
	OrderedQuantity int    `json:"ordered_quantity"`
	ReturnQuantity  int    `json:"return_quantity"`
	UnitType        string `json:"unit_type"`
	AdjustStock     bool   `json:"adjust_stock"`
}

type ReturnResponse struct {
	ID        string               `json:"id"`
	Kind      string               `json:"kind"`
	Type      string               `json:"type"`
	ManagerID string               `json:"manager_id"`
	SiteID    *string              `json:"site_id"`
	OrderID   *string              `json:"order_id"`
	Date      string               `json:"date"`
	Status    string               `json:"status"`
	Reason    string               `json:"reason"`
	Items     []ReturnItemResponse `json:"items"`
	CreatedAt string               `json:"created_at"`
}

// NormalizeReturnPayload folds the legacy products[] shape into items[],
// mapping quantity to ordered_quantity and wastage_qty to return_quantity
// where the canonical fields are absent.
func NormalizeReturnPayload(p ReturnPayload) ReturnPayload {
	if len(p.Items) > 0 || len(p.Products) == 0 {
		p.Products = nil
		return p
	}
	items := make([]ReturnItemInput, 0, len(p.Products))
	for _, legacy := range p.Products {
		item := legacy
		if item.OrderedQuantity == nil && item.Quantity != nil {
			item.OrderedQuantity = item.Quantity
		}
		if item.ReturnQuantity == nil && item.WastageQty != nil {
			item.ReturnQuantity = item.WastageQty
		}
		item.Quantity = nil
		item.WastageQty = nil
		items = append(items, item)
	}
	p.Items = items
	p.Products = nil
	return p
}

// --- Interface ---

type ReturnService interface {
	Create(ctx context.Context, kind string, actor Actor, payload ReturnPayload) (ReturnResponse, error)
	Get(ctx context.Context, actor Actor, id string) (ReturnResponse, error)
	List(ctx context.Context, actor Actor, q ReturnQuery) ([]ReturnResponse, int64, error)
}

type returnService struct {
	returnRepo  repository.ReturnRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	siteRepo    repository.SiteRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	ledger      StockLedger
	notifier    NotificationSink
	logger      *zap.Logger
}

func NewReturnService(
	returnRepo repository.ReturnRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	siteRepo repository.SiteRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	ledger StockLedger,
	notifier NotificationSink,
	logger *zap.Logger,
) ReturnService {
	return &returnService{
		returnRepo:  returnRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		siteRepo:    siteRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		ledger:      ledger,
		notifier:    notifier,
		logger:      logger,
	}
}

// --- Implementation ---

func (s *returnService) Create(ctx context.Context, kind string, actor Actor, payload ReturnPayload) (ReturnResponse, error) {
	if err := actor.require(authz.CapReturnCreate); err != nil {
		return ReturnResponse{}, err
	}
	if kind != model.ReturnKindReturn && kind != model.ReturnKindWastage {
		return ReturnResponse{}, apperror.Validation(map[string]string{"kind": "must be return or wastage"})
	}
	payload = NormalizeReturnPayload(payload)

	fields := make(map[string]string)
	if payload.Type != model.ReturnTypeSite && payload.Type != model.ReturnTypeStore {
		fields["type"] = "must be site or store"
	}
	if len(payload.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	productIDs := make([]uuid.UUID, len(payload.Items))
	for i, item := range payload.Items {
		pid, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			fields[fmt.Sprintf("items.%d.product_id", i)] = "is required"
		}
		productIDs[i] = pid
		if item.ReturnQuantity == nil || *item.ReturnQuantity < 1 {
			fields[fmt.Sprintf("items.%d.return_quantity", i)] = "must be at least 1"
		}
	}
	managerID, err := parseOptionalID("manager_id", payload.ManagerID)
	if err != nil {
		fields["manager_id"] = "must be a valid id"
	}
	siteID, err := parseOptionalID("site_id", payload.SiteID)
	if err != nil {
		fields["site_id"] = "must be a valid id"
	}
	orderID, err := parseOptionalID("order_id", payload.OrderID)
	if err != nil {
		fields["order_id"] = "must be a valid id"
	}
	if len(fields) > 0 {
		return ReturnResponse{}, apperror.Validation(fields)
	}

	if managerID == nil {
		id := actor.ID
		managerID = &id
	} else if _, err := s.userRepo.FindByID(ctx, *managerID); err != nil {
		return ReturnResponse{}, notFound(err, "manager")
	}
	if orderID != nil {
		order, err := s.orderRepo.FindByIDWithProducts(ctx, *orderID)
		if err != nil {
			return ReturnResponse{}, notFound(err, "order")
		}
		if siteID == nil {
			sid := order.SiteID
			siteID = &sid
		}
	}
	if siteID != nil {
		if _, err := s.siteRepo.FindByID(ctx, *siteID); err != nil {
			return ReturnResponse{}, notFound(err, "site")
		}
	}

	products := make([]*model.Product, len(payload.Items))
	for i, pid := range productIDs {
		p, err := s.productRepo.FindByID(ctx, pid)
		if err != nil {
			return ReturnResponse{}, notFound(err, "product")
		}
		products[i] = p
	}

	date := time.Now()
	if payload.Date != nil {
		date = *payload.Date
	}
	record := model.ReturnRecord{
		Kind:      kind,
		Type:      payload.Type,
		ManagerID: *managerID,
		SiteID:    siteID,
		OrderID:   orderID,
		Date:      date,
		Status:    model.ReturnStatusRecorded,
		Reason:    strings.TrimSpace(payload.Reason),
	}
	for i, item := range payload.Items {
		ordered := 0
		if item.OrderedQuantity != nil {
			ordered = *item.OrderedQuantity
		}
		if ordered > 0 && *item.ReturnQuantity > ordered {
			s.logger.Warn("return quantity exceeds ordered quantity",
				zap.String("product_id", productIDs[i].String()),
				zap.Int("ordered_quantity", ordered),
				zap.Int("return_quantity", *item.ReturnQuantity),
			)
		}
		unit := item.UnitType
		if unit == "" {
			unit = products[i].UnitType
		}
		record.Items = append(record.Items, model.ReturnItem{
			ProductID:       productIDs[i],
			OrderedQuantity: ordered,
			ReturnQuantity:  *item.ReturnQuantity,
			UnitType:        unit,
			AdjustStock:     item.AdjustStock,
		})
	}

	var notes []model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.returnRepo.Create(txCtx, &record); err != nil {
			return fmt.Errorf("failed to create %s: %w", kind, err)
		}

		var events []Event
		for i, item := range record.Items {
			if !item.AdjustStock || !products[i].TracksStock() {
				continue
			}
			change, err := stockChangeFor(&record, item)
			if err != nil {
				return err
			}
			change.ActorID = actor.ID
			res, err := s.ledger.Apply(txCtx, change)
			if err != nil {
				return err
			}
			if res.CrossedLowMark {
				events = append(events, lowStockEvent(res.Product))
			}
		}

		action := model.ActionRecordReturn
		if kind == model.ReturnKindWastage {
			action = model.ActionRecordWastage
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, action, record.ID.String(), kind, map[string]interface{}{
			"type":  record.Type,
			"items": len(record.Items),
		}); err != nil {
			return err
		}

		events = append([]Event{{
			Type:    model.EventReturnRecorded,
			OrderID: orderID,
			Data: map[string]interface{}{
				"return_id": record.ID.String(),
				"kind":      kind,
				"type":      record.Type,
			},
		}}, events...)
		var recErr error
		notes, recErr = s.notifier.Record(txCtx, events...)
		return recErr
	})
	if err != nil {
		return ReturnResponse{}, err
	}

	s.notifier.Publish(notes)
	return toReturnResponse(&record), nil
}

// stockChangeFor derives the ledger write for one adjusting item. Wastage
// always removes stock; a site return brings unused goods back to the site
// and a store return sends goods back out of general stock.
func stockChangeFor(record *model.ReturnRecord, item model.ReturnItem) (StockChange, error) {
	rid := record.ID
	change := StockChange{
		ProductID: item.ProductID,
		ReturnID:  &rid,
		OrderID:   record.OrderID,
		Note:      record.Reason,
	}

	switch {
	case record.Kind == model.ReturnKindWastage:
		change.Source = model.SourceWastage
		change.Delta = -item.ReturnQuantity
		if record.Type == model.ReturnTypeSite {
			change.SiteID = record.SiteID
		}
	case record.Type == model.ReturnTypeSite:
		change.Source = model.SourceReturn
		change.Delta = item.ReturnQuantity
		change.SiteID = record.SiteID
	default:
		change.Source = model.SourceReturn
		change.Delta = -item.ReturnQuantity
	}

	if record.Type == model.ReturnTypeSite && record.SiteID == nil {
		return StockChange{}, apperror.Validation(map[string]string{"site_id": "is required to adjust site stock"})
	}
	// Site snapshots are offsets against general stock and may go negative.
	change.AllowNegative = change.SiteID != nil
	return change, nil
}

func (s *returnService) Get(ctx context.Context, actor Actor, id string) (ReturnResponse, error) {
	if err := actor.require(authz.CapReturnRead); err != nil {
		return ReturnResponse{}, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return ReturnResponse{}, err
	}
	record, err := s.returnRepo.FindByID(ctx, rid)
	if err != nil {
		return ReturnResponse{}, notFound(err, "return")
	}
	return toReturnResponse(record), nil
}

func (s *returnService) List(ctx context.Context, actor Actor, q ReturnQuery) ([]ReturnResponse, int64, error) {
	if err := actor.require(authz.CapReturnRead); err != nil {
		return nil, 0, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	siteID, err := parseOptionalID("site_id", q.SiteID)
	if err != nil {
		return nil, 0, err
	}
	records, total, err := s.returnRepo.List(ctx, repository.ReturnFilter{Kind: q.Kind, SiteID: siteID, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list returns: %w", err)
	}
	res := make([]ReturnResponse, 0, len(records))
	for i := range records {
		res = append(res, toReturnResponse(&records[i]))
	}
	return res, total, nil
}

func toReturnResponse(r *model.ReturnRecord) ReturnResponse {
	res := ReturnResponse{
		ID:        r.ID.String(),
		Kind:      r.Kind,
		Type:      r.Type,
		ManagerID: r.ManagerID.String(),
		SiteID:    idString(r.SiteID),
		OrderID:   idString(r.OrderID),
		Date:      r.Date.Format("2006-01-02"),
		Status:    r.Status,
		Reason:    r.Reason,
		Items:     make([]ReturnItemResponse, 0, len(r.Items)),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range r.Items {
		res.Items = append(res.Items, ReturnItemResponse{
			ProductID:       it.ProductID.String(),
			OrderedQuantity: it.OrderedQuantity,
			ReturnQuantity:  it.ReturnQuantity,
			UnitType:        it.UnitType,
			AdjustStock:     it.AdjustStock,
		})
	}
	return res
}
