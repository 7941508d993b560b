package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitesupply/internal/authz"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, sub, role string, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{Authenticate(testSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		actor := CurrentActor(c)
		c.String(http.StatusOK, actor.ID.String()+"|"+actor.Role)
	})
	r.GET("/protected", chain...)
	return r
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, userID.String(), authz.RoleAdmin, []byte("other")), http.StatusUnauthorized},
		{"bad subject", "Bearer " + signToken(t, "42", authz.RoleAdmin, testSecret), http.StatusUnauthorized},
		{"unknown role", "Bearer " + signToken(t, userID.String(), "guest", testSecret), http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, userID.String(), authz.RoleSiteManager, testSecret), http.StatusOK},
	}

	r := newRouter()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus == http.StatusOK && w.Body.String() != userID.String()+"|"+authz.RoleSiteManager {
				t.Errorf("Unexpected actor %s", w.Body.String())
			}
		})
	}
}

func TestAuthenticate_CookieToken(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, uuid.NewString(), authz.RoleAdmin, testSecret)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected cookie token to be accepted, got %d", w.Code)
	}
}

func TestRequireCapability(t *testing.T) {
	r := newRouter(RequireCapability(authz.CapOrderReview))

	testCases := map[string]int{
		authz.RoleStoreManager:     http.StatusOK,
		authz.RoleAdmin:            http.StatusOK,
		authz.RoleSiteManager:      http.StatusForbidden,
		authz.RoleTransportManager: http.StatusForbidden,
	}
	for role, want := range testCases {
		t.Run(role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), role, testSecret))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != want {
				t.Errorf("Expected %d, got %d", want, w.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limit, err := RateLimit("2-M")
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.Use(limit)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Unexpected status sequence %v", codes)
	}

	if _, err := RateLimit("lots"); err == nil {
		t.Error("Expected malformed rate to fail")
	}
}
