package handler

import (
	"net/http"

	"sitesupply/internal/authz"
	"sitesupply/internal/middleware"
	"sitesupply/internal/model"
	"sitesupply/internal/service"
	"sitesupply/pkg/pagination"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReturnHandler struct {
	returnService service.ReturnService
	logger        *zap.Logger
}

func NewReturnHandler(returnService service.ReturnService, logger *zap.Logger) *ReturnHandler {
	return &ReturnHandler{returnService: returnService, logger: logger}
}

func (h *ReturnHandler) RegisterRoutes(router *gin.RouterGroup) {
	create := middleware.RequireCapability(authz.CapReturnCreate)
	read := middleware.RequireCapability(authz.CapReturnRead)

	router.POST("/returns", create, h.CreateReturn)
	router.POST("/wastages", create, h.CreateWastage)
	router.GET("/returns", read, h.ListReturns)
	router.GET("/returns/:id", read, h.GetReturn)
}

// CreateReturn records a return of unused goods
// @Summary      Record return
// @Description  Accepts items[] or the legacy products[] shape
// @Tags         returns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.ReturnPayload  true  "Return"
// @Success      201      {object}  response.Response{data=service.ReturnResponse}
// @Router       /api/returns [post]
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	h.create(model.ReturnKindReturn)(c)
}

// CreateWastage records wasted goods
// @Summary      Record wastage
// @Description  Accepts items[] or the legacy products[] shape (quantity, wastage_qty)
// @Tags         returns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.ReturnPayload  true  "Wastage"
// @Success      201      {object}  response.Response{data=service.ReturnResponse}
// @Router       /api/wastages [post]
func (h *ReturnHandler) CreateWastage(c *gin.Context) {
	h.create(model.ReturnKindWastage)(c)
}

func (h *ReturnHandler) create(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload service.ReturnPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBindError(c, err)
			return
		}

		record, err := h.returnService.Create(c.Request.Context(), kind, middleware.CurrentActor(c), payload)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
	}
}

// GetReturn returns one return or wastage record
// @Summary      Get return
// @Tags         returns
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Return ID"
// @Success      200  {object}  response.Response{data=service.ReturnResponse}
// @Router       /api/returns/{id} [get]
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	record, err := h.returnService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// ListReturns lists returns and wastages
// @Summary      List returns
// @Tags         returns
// @Security     BearerAuth
// @Produce      json
// @Param        kind     query     string  false  "return or wastage"
// @Param        site_id  query     string  false  "Site filter"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=response.Paged}
// @Router       /api/returns [get]
func (h *ReturnHandler) ListReturns(c *gin.Context) {
	p := pagination.Parse(c)
	records, total, err := h.returnService.List(c.Request.Context(), middleware.CurrentActor(c), service.ReturnQuery{
		Kind:   c.Query("kind"),
		SiteID: c.Query("site_id"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(records, total)))
}
