package handler

import (
	"net/http"
	"strconv"

	"sitesupply/internal/authz"
	"sitesupply/internal/middleware"
	"sitesupply/internal/service"
	"sitesupply/pkg/pagination"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StockHandler struct {
	stockService service.StockService
	logger       *zap.Logger
}

func NewStockHandler(stockService service.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{stockService: stockService, logger: logger}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	stock := router.Group("/stock")
	stock.Use(middleware.RequireCapability(authz.CapStockRead))
	{
		stock.GET("/movements", h.ListMovements)
		stock.GET("/low", h.ListLowStock)
		stock.POST("/adjust", middleware.RequireCapability(authz.CapStockAdjust), h.AdjustStock)
		stock.GET("/:product_id", h.GetStock)
	}

	products := router.Group("/products")
	{
		products.GET("", middleware.RequireCapability(authz.CapStockRead), h.ListProducts)
		products.POST("", middleware.RequireCapability(authz.CapStockAdjust), h.CreateProduct)
	}
}

// GetStock returns the general and site stock of a product
// @Summary      Get stock level
// @Description  general is warehouse stock; available adds the site's own scope when site_id is given
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  path      string  true   "Product ID"
// @Param        site_id     query     string  false  "Site ID"
// @Success      200         {object}  response.Response{data=service.StockLevelResponse}
// @Router       /api/stock/{product_id} [get]
func (h *StockHandler) GetStock(c *gin.Context) {
	level, err := h.stockService.StockLevel(c.Request.Context(), c.Param("product_id"), c.Query("site_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, level))
}

// AdjustStock records a manual stock-in or correction
// @Summary      Adjust stock
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.AdjustStockRequest  true  "Adjustment"
// @Success      201      {object}  response.Response{data=service.StockMovementResponse}
// @Router       /api/stock/adjust [post]
func (h *StockHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movement, err := h.stockService.AdjustStock(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// ListMovements returns the ledger history
// @Summary      List stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Product filter"
// @Param        site_id     query     string  false  "Site filter"
// @Param        general     query     bool    false  "Only general stock"
// @Param        source      query     string  false  "order_completed, return, wastage or adjustment"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Paged}
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)
	general, _ := strconv.ParseBool(c.Query("general"))

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), service.MovementQuery{
		ProductID: c.Query("product_id"),
		SiteID:    c.Query("site_id"),
		General:   general,
		Source:    c.Query("source"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(movements, total)))
}

// ListLowStock returns products at or below their threshold
// @Summary      List low stock products
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/stock/low [get]
func (h *StockHandler) ListLowStock(c *gin.Context) {
	products, err := h.stockService.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// CreateProduct adds a catalog product
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Router       /api/products [post]
func (h *StockHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.stockService.CreateProduct(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListProducts lists the catalog
// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Name search"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Paged}
// @Router       /api/products [get]
func (h *StockHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.stockService.ListProducts(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(products, total)))
}
