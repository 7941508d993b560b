package handler

import (
	"net/http"

	"sitesupply/internal/authz"
	"sitesupply/internal/middleware"
	"sitesupply/internal/service"
	"sitesupply/pkg/pagination"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.GET("", middleware.RequireCapability(authz.CapOrderRead), h.ListOrders)
		orders.GET("/:id", middleware.RequireCapability(authz.CapOrderRead), h.GetOrder)
		orders.POST("", middleware.RequireCapability(authz.CapOrderCreate), h.CreateOrder)
		orders.PUT("/:id", middleware.RequireCapability(authz.CapOrderCreate), h.UpdateOrder)
		// Per-action capability checks live in the service.
		orders.POST("/:id/transitions/:action", h.Transition)
	}
}

// CreateOrder places a new materials order for a site
// @Summary      Create order
// @Description  Validates the line items against stock and creates a pending order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateOrderRequest  true  "Order"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdateOrder replaces the line items of a pending order
// @Summary      Update order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Order ID"
// @Param        request  body      service.UpdateOrderRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Transition moves an order along its lifecycle
// @Summary      Transition order
// @Description  action is one of approve, reject, assign_transport, start_transit, mark_delivered, complete, cancel
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true   "Order ID"
// @Param        action   path      string                     true   "Action"
// @Param        request  body      service.TransitionRequest  false  "Action extras"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/transitions/{action} [post]
func (h *OrderHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	order, err := h.orderService.Transition(c.Request.Context(), c.Param("id"), service.Action(c.Param("action")), middleware.CurrentActor(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetOrder returns one order with its products
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ListOrders lists orders visible to the caller
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status   query     string  false  "Status filter"
// @Param        site_id  query     string  false  "Site filter"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=response.Paged}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), middleware.CurrentActor(c), service.OrderQuery{
		Status: c.Query("status"),
		SiteID: c.Query("site_id"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(orders, total)))
}
