package middleware

import (
	"net/http"
	"strings"

	"sitesupply/internal/authz"
	"sitesupply/internal/service"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// Authenticate validates the JWT from the access_token cookie or the
// Authorization header and stores the caller's id and role on the context.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
			return
		}
		userRole, ok := claims["role"].(string)
		if !ok || !authz.ValidRole(userRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, userRole)

		c.Next()
	}
}

// RequireCapability rejects callers whose role lacks every listed capability.
// It must run after Authenticate.
func RequireCapability(caps ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxUserRole)
		for _, capability := range caps {
			if authz.Can(role, capability) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// CurrentActor returns the authenticated caller set by Authenticate.
func CurrentActor(c *gin.Context) service.Actor {
	actor := service.Actor{Role: c.GetString(ctxUserRole)}
	if id, ok := c.Get(ctxUserID); ok {
		actor.ID, _ = id.(uuid.UUID)
	}
	return actor
}

// SetTokenCookie stores the access token as an HttpOnly cookie. Production
// deployments are cross-origin and need SameSite=None with Secure.
func SetTokenCookie(c *gin.Context, token string, maxAge int, production bool) {
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", token, maxAge, "/", "", production, true)
}

// ClearTokenCookie removes the access token cookie.
func ClearTokenCookie(c *gin.Context, production bool) {
	SetTokenCookie(c, "", -1, production)
}
