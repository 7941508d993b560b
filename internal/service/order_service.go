package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// --- DTOs ---

type CreateOrderRequest struct {
	SiteID               string          `json:"site_id" binding:"required"`
	SupplierID           string          `json:"supplier_id"`
	Priority             string          `json:"priority" binding:"omitempty,oneof=low medium high"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	IsLPO                bool            `json:"is_lpo"`
	Note                 string          `json:"note"`
	Items                []LineItemInput `json:"items"`
}

type UpdateOrderRequest struct {
	Priority             string          `json:"priority" binding:"omitempty,oneof=low medium high"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	Note                 *string         `json:"note"`
	Items                []LineItemInput `json:"items"`
}

// TransitionRequest carries the action-specific extras.
type TransitionRequest struct {
	RejectedNote          string `json:"rejected_note"`
	TransportManagerID    string `json:"transport_manager_id"`
	ProductStatus         string `json:"product_status"`
	ProductRejectionNotes string `json:"product_rejection_notes"`
}

type OrderQuery struct {
	Status string
	SiteID string
	Page   int
	Limit  int
}

type OrderProductResponse struct {
	ID           string   `json:"id"`
	ProductID    *string  `json:"product_id"`
	ProductName  string   `json:"product_name,omitempty"`
	Quantity     int      `json:"quantity"`
	IsCustom     bool     `json:"is_custom"`
	CustomNote   string   `json:"custom_note,omitempty"`
	CustomImages []string `json:"custom_images,omitempty"`
	SupplierID   *string  `json:"supplier_id"`
}

type OrderResponse struct {
	ID                    string                 `json:"id"`
	SiteID                string                 `json:"site_id"`
	SiteManagerID         string                 `json:"site_manager_id"`
	TransportManagerID    *string                `json:"transport_manager_id"`
	SupplierID            *string                `json:"supplier_id"`
	Status                string                 `json:"status"`
	DeliveryStatus        string                 `json:"delivery_status"`
	Priority              string                 `json:"priority"`
	ExpectedDeliveryDate  *string                `json:"expected_delivery_date"`
	IsLPO                 bool                   `json:"is_lpo"`
	IsCustomProduct       bool                   `json:"is_custom_product"`
	Note                  string                 `json:"note"`
	RejectedNote          string                 `json:"rejected_note,omitempty"`
	ProductStatus         string                 `json:"product_status,omitempty"`
	ProductRejectionNotes string                 `json:"product_rejection_notes,omitempty"`
	Version               int                    `json:"version"`
	Products              []OrderProductResponse `json:"products"`
	CreatedAt             string                 `json:"created_at"`
	UpdatedAt             string                 `json:"updated_at"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error)
	UpdateOrder(ctx context.Context, actor Actor, orderID string, req UpdateOrderRequest) (OrderResponse, error)
	Transition(ctx context.Context, orderID string, action Action, actor Actor, req TransitionRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (OrderResponse, error)
	ListOrders(ctx context.Context, actor Actor, q OrderQuery) ([]OrderResponse, int64, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	siteRepo    repository.SiteRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	validator   *OrderLineValidator
	ledger      StockLedger
	productRepo repository.ProductRepository
	notifier    NotificationSink
	logger      *zap.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	siteRepo repository.SiteRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	ledger StockLedger,
	notifier NotificationSink,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		siteRepo:    siteRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		validator:   NewOrderLineValidator(productRepo, ledger),
		ledger:      ledger,
		productRepo: productRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error) {
	if err := actor.require(authz.CapOrderCreate); err != nil {
		return OrderResponse{}, err
	}
	siteID, err := parseID("site_id", req.SiteID)
	if err != nil {
		return OrderResponse{}, err
	}
	supplierID, err := parseOptionalID("supplier_id", req.SupplierID)
	if err != nil {
		return OrderResponse{}, err
	}
	if _, err := s.siteRepo.FindByID(ctx, siteID); err != nil {
		return OrderResponse{}, notFound(err, "site")
	}

	lines, err := s.validator.Validate(ctx, &siteID, req.Items)
	if err != nil {
		return OrderResponse{}, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	order := model.Order{
		SiteID:               siteID,
		SiteManagerID:        actor.ID,
		SupplierID:           supplierID,
		Status:               model.OrderStatusPending,
		DeliveryStatus:       model.DeliveryStatusNone,
		Priority:             priority,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		IsLPO:                req.IsLPO,
		Note:                 strings.TrimSpace(req.Note),
		Version:              1,
		Products:             toOrderProducts(lines),
	}
	order.IsCustomProduct = hasCustomLine(lines)

	var notes []model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateOrder, order.ID.String(), "order", map[string]interface{}{
			"site_id": siteID.String(),
			"items":   len(lines),
		}); err != nil {
			return err
		}

		oid := order.ID
		var recErr error
		notes, recErr = s.notifier.Record(txCtx, Event{
			Type:    model.EventOrderCreated,
			OrderID: &oid,
			Data: map[string]interface{}{
				"order_id": oid.String(),
				"site_id":  siteID.String(),
				"priority": order.Priority,
			},
		})
		return recErr
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.notifier.Publish(notes)
	return s.reload(ctx, order.ID)
}

func (s *orderService) UpdateOrder(ctx context.Context, actor Actor, orderID string, req UpdateOrderRequest) (OrderResponse, error) {
	if err := actor.require(authz.CapOrderCreate); err != nil {
		return OrderResponse{}, err
	}
	id, err := parseID("id", orderID)
	if err != nil {
		return OrderResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order")
		}
		if actor.Role != authz.RoleAdmin && order.SiteManagerID != actor.ID {
			return apperror.Unauthorized("only the requesting site manager can edit this order")
		}
		if order.Status != model.OrderStatusPending {
			return apperror.InvalidTransition(order.Status, "update")
		}

		lines, err := s.validator.Validate(txCtx, &order.SiteID, req.Items)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{
			"is_custom_product": hasCustomLine(lines),
		}
		if req.Priority != "" {
			fields["priority"] = req.Priority
		}
		if req.ExpectedDeliveryDate != nil {
			fields["expected_delivery_date"] = req.ExpectedDeliveryDate
		}
		if req.Note != nil {
			fields["note"] = strings.TrimSpace(*req.Note)
		}
		if err := s.orderRepo.UpdateGuarded(txCtx, order.ID, order.Version, fields); err != nil {
			return staleOr(err, "failed to update order")
		}
		if err := s.orderRepo.ReplaceProducts(txCtx, order.ID, toOrderProducts(lines)); err != nil {
			return fmt.Errorf("failed to replace order products: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateOrder, order.ID.String(), "order", map[string]interface{}{
			"items": len(lines),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return s.reload(ctx, id)
}

// Transition applies action inside one transaction: the order row is locked,
// the move is checked against the locked status and the write is guarded by
// the version read under the lock.
func (s *orderService) Transition(ctx context.Context, orderID string, action Action, actor Actor, req TransitionRequest) (OrderResponse, error) {
	id, err := parseID("id", orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	if _, ok := ParseAction(string(action)); !ok {
		return OrderResponse{}, apperror.Validation(map[string]string{"action": "unknown action"})
	}
	if err := actor.require(requiredCapability(action)); err != nil {
		return OrderResponse{}, err
	}

	var assignee *uuid.UUID
	switch action {
	case ActionReject:
		if strings.TrimSpace(req.RejectedNote) == "" {
			return OrderResponse{}, apperror.Validation(map[string]string{"rejected_note": "is required"})
		}
	case ActionAssignTransport:
		assignee, err = parseOptionalID("transport_manager_id", req.TransportManagerID)
		if err != nil {
			return OrderResponse{}, err
		}
		if assignee == nil {
			return OrderResponse{}, apperror.Validation(map[string]string{"transport_manager_id": "is required"})
		}
	}

	var notes []model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order")
		}

		to, err := checkTransition(order, action)
		if err != nil {
			return err
		}
		if err := s.checkActor(order, action, actor); err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if to != order.Status {
			fields["status"] = to
		}
		if ds, ok := deliveryStatusFor[action]; ok {
			fields["delivery_status"] = ds
		}

		var events []Event
		switch action {
		case ActionReject:
			fields["rejected_note"] = strings.TrimSpace(req.RejectedNote)
		case ActionAssignTransport:
			user, err := s.userRepo.FindByID(txCtx, *assignee)
			if err != nil {
				return notFound(err, "transport manager")
			}
			if user.Role != authz.RoleTransportManager {
				return apperror.Validation(map[string]string{"transport_manager_id": "user is not a transport manager"})
			}
			fields["transport_manager_id"] = *assignee
		case ActionComplete:
			lowStock, err := s.deductStock(txCtx, order, actor)
			if err != nil {
				return err
			}
			events = append(events, lowStock...)
			if req.ProductStatus != "" {
				fields["product_status"] = req.ProductStatus
			}
			if req.ProductRejectionNotes != "" {
				fields["product_rejection_notes"] = req.ProductRejectionNotes
			}
		}

		if err := s.orderRepo.UpdateGuarded(txCtx, order.ID, order.Version, fields); err != nil {
			return staleOr(err, "failed to update order status")
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionTransitionOrder, order.ID.String(), string(action), map[string]interface{}{
			"from":   order.Status,
			"to":     to,
			"fields": fields,
		}); err != nil {
			return err
		}

		events = append(transitionEvents(order, action, to, assignee, req), events...)
		var recErr error
		notes, recErr = s.notifier.Record(txCtx, events...)
		return recErr
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.logger.Info("order transitioned",
		zap.String("order_id", id.String()),
		zap.String("action", string(action)),
		zap.String("actor_id", actor.ID.String()),
	)
	s.notifier.Publish(notes)
	return s.reload(ctx, id)
}

// checkActor applies the per-order ownership rules on top of the role check.
func (s *orderService) checkActor(order *model.Order, action Action, actor Actor) error {
	switch action {
	case ActionStartTransit, ActionMarkDelivered:
		if order.TransportManagerID == nil || *order.TransportManagerID != actor.ID {
			return apperror.Unauthorized("only the assigned transport manager can update delivery")
		}
	case ActionCancel:
		if actor.Role == authz.RoleSiteManager && order.SiteManagerID != actor.ID {
			return apperror.Unauthorized("only the requesting site manager can cancel this order")
		}
	}
	return nil
}

// deductStock appends one consumption movement per stock-tracked catalog line
// at the order's site scope.
func (s *orderService) deductStock(ctx context.Context, order *model.Order, actor Actor) ([]Event, error) {
	var events []Event
	siteID := order.SiteID
	orderID := order.ID
	for _, line := range order.Products {
		if line.IsCustom || line.ProductID == nil || line.Quantity <= 0 {
			continue
		}
		product := line.Product
		if product == nil {
			p, err := s.productRepo.FindByID(ctx, *line.ProductID)
			if err != nil {
				return nil, notFound(err, "product")
			}
			product = p
		}
		if !product.TracksStock() {
			continue
		}

		res, err := s.ledger.Apply(ctx, StockChange{
			ProductID:     product.ID,
			SiteID:        &siteID,
			Delta:         -line.Quantity,
			Source:        model.SourceOrderCompleted,
			OrderID:       &orderID,
			ActorID:       actor.ID,
			AllowNegative: true,
		})
		if err != nil {
			return nil, err
		}
		if res.CrossedLowMark {
			events = append(events, lowStockEvent(res.Product))
		}
	}
	return events, nil
}

func transitionEvents(order *model.Order, action Action, to string, assignee *uuid.UUID, req TransitionRequest) []Event {
	oid := order.ID
	data := map[string]interface{}{
		"order_id":   oid.String(),
		"old_status": order.Status,
		"status":     to,
	}
	owner := []uuid.UUID{order.SiteManagerID}
	transport := order.TransportManagerID
	if assignee != nil {
		transport = assignee
	}
	withTransport := owner
	if transport != nil {
		withTransport = append([]uuid.UUID{}, order.SiteManagerID, *transport)
	}

	var events []Event
	switch action {
	case ActionApprove:
		events = append(events, Event{Type: model.EventOrderApproved, OrderID: &oid, Recipients: owner, Data: data})
	case ActionReject:
		rejected := copyData(data)
		rejected["rejected_note"] = strings.TrimSpace(req.RejectedNote)
		events = append(events, Event{Type: model.EventOrderRejected, OrderID: &oid, Recipients: owner, Data: rejected})
	case ActionAssignTransport:
		events = append(events, Event{Type: model.EventTransportAssigned, OrderID: &oid, Recipients: []uuid.UUID{*assignee}, Data: data})
	case ActionMarkDelivered:
		events = append(events, Event{Type: model.EventOrderReadyForCompletion, OrderID: &oid, Data: data})
	case ActionComplete:
		events = append(events,
			Event{Type: model.EventOrderCompleted, OrderID: &oid, Recipients: owner, Data: data},
			Event{Type: model.EventDeliveryCompleted, OrderID: &oid, Recipients: withTransport, Data: data},
		)
	case ActionCancel:
		events = append(events, Event{Type: model.EventOrderCancelled, OrderID: &oid, Recipients: withTransport, Data: data})
	}

	if ds, ok := deliveryStatusFor[action]; ok && ds != order.DeliveryStatus {
		changed := copyData(data)
		changed["old_delivery_status"] = order.DeliveryStatus
		changed["delivery_status"] = ds
		events = append(events, Event{Type: model.EventOrderStatusChanged, OrderID: &oid, Recipients: withTransport, Data: changed})
	}
	return events
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (OrderResponse, error) {
	if err := actor.require(authz.CapOrderRead); err != nil {
		return OrderResponse{}, err
	}
	id, err := parseID("id", orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	order, err := s.orderRepo.FindByIDWithProducts(ctx, id)
	if err != nil {
		return OrderResponse{}, notFound(err, "order")
	}
	if !canSee(actor, order) {
		return OrderResponse{}, apperror.NotFound("order")
	}
	return toOrderResponse(order), nil
}

// ListOrders scopes site managers to their own orders and transport
// managers to the ones assigned to them.
func (s *orderService) ListOrders(ctx context.Context, actor Actor, q OrderQuery) ([]OrderResponse, int64, error) {
	if err := actor.require(authz.CapOrderRead); err != nil {
		return nil, 0, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	siteID, err := parseOptionalID("site_id", q.SiteID)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.OrderFilter{Status: q.Status, SiteID: siteID, Page: page, Limit: limit}
	actorID := actor.ID
	switch actor.Role {
	case authz.RoleSiteManager:
		filter.SiteManagerID = &actorID
	case authz.RoleTransportManager:
		filter.TransportManagerID = &actorID
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toOrderResponse(&orders[i]))
	}
	return res, total, nil
}

func (s *orderService) reload(ctx context.Context, id uuid.UUID) (OrderResponse, error) {
	order, err := s.orderRepo.FindByIDWithProducts(ctx, id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}
	return toOrderResponse(order), nil
}

func canSee(actor Actor, order *model.Order) bool {
	switch actor.Role {
	case authz.RoleSiteManager:
		return order.SiteManagerID == actor.ID
	case authz.RoleTransportManager:
		return order.TransportManagerID != nil && *order.TransportManagerID == actor.ID
	}
	return true
}

func staleOr(err error, msg string) error {
	if errors.Is(err, repository.ErrStaleWrite) {
		return apperror.StaleState()
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func copyData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func hasCustomLine(lines []ValidatedLine) bool {
	for _, l := range lines {
		if l.IsCustom {
			return true
		}
	}
	return false
}

func toOrderProducts(lines []ValidatedLine) []model.OrderProduct {
	products := make([]model.OrderProduct, 0, len(lines))
	for _, l := range lines {
		p := model.OrderProduct{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			IsCustom:   l.IsCustom,
			CustomNote: l.CustomNote,
			SupplierID: l.SupplierID,
		}
		if len(l.CustomImages) > 0 {
			images, _ := json.Marshal(l.CustomImages)
			p.CustomImages = datatypes.JSON(images)
		}
		products = append(products, p)
	}
	return products
}

func toOrderResponse(o *model.Order) OrderResponse {
	res := OrderResponse{
		ID:                    o.ID.String(),
		SiteID:                o.SiteID.String(),
		SiteManagerID:         o.SiteManagerID.String(),
		TransportManagerID:    idString(o.TransportManagerID),
		SupplierID:            idString(o.SupplierID),
		Status:                o.Status,
		DeliveryStatus:        o.DeliveryStatus,
		Priority:              o.Priority,
		IsLPO:                 o.IsLPO,
		IsCustomProduct:       o.IsCustomProduct,
		Note:                  o.Note,
		RejectedNote:          o.RejectedNote,
		ProductStatus:         o.ProductStatus,
		ProductRejectionNotes: o.ProductRejectionNotes,
		Version:               o.Version,
		Products:              make([]OrderProductResponse, 0, len(o.Products)),
		CreatedAt:             o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             o.UpdatedAt.Format(time.RFC3339),
	}
	if o.ExpectedDeliveryDate != nil {
		d := o.ExpectedDeliveryDate.Format("2006-01-02")
		res.ExpectedDeliveryDate = &d
	}
	for _, p := range o.Products {
		line := OrderProductResponse{
			ID:         p.ID.String(),
			ProductID:  idString(p.ProductID),
			Quantity:   p.Quantity,
			IsCustom:   p.IsCustom,
			CustomNote: p.CustomNote,
			SupplierID: idString(p.SupplierID),
		}
		if p.Product != nil {
			line.ProductName = p.Product.Name
		}
		if len(p.CustomImages) > 0 {
			_ = json.Unmarshal(p.CustomImages, &line.CustomImages)
		}
		res.Products = append(res.Products, line)
	}
	return res
}
