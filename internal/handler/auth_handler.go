package handler

import (
	"errors"
	"net/http"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/middleware"
	"sitesupply/internal/service"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService service.AuthService
	tokenTTL    time.Duration
	production  bool
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, tokenTTL time.Duration, production bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokenTTL: tokenTTL, production: production, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
}

// Login handles user login and sets the access token cookie
// @Summary      User login
// @Description  Authenticate a user and get a JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      service.LoginUserRequest  true  "Login credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	tokenRes, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		respondError(c, h.logger, err)
		return
	}

	middleware.SetTokenCookie(c, tokenRes.Token, int(h.tokenTTL.Seconds()), h.production)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout clears the access token cookie
// @Summary      User logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.production)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
