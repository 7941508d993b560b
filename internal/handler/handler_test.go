package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitesupply/internal/apperror"
	"sitesupply/internal/model"
	"sitesupply/internal/service"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func serve(t *testing.T, register func(r *gin.Engine), method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, res
}

func TestRespondError_StatusByKind(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperror.Validation(map[string]string{"delta": "must not be zero"}), http.StatusUnprocessableEntity, apperror.CodeValidation},
		{"line item", apperror.InvalidLineItem(map[string]string{"items.0.quantity": "required"}), http.StatusUnprocessableEntity, apperror.CodeInvalidLineItem},
		{"insufficient stock", apperror.InsufficientStock("items.0.quantity", 5, 2), http.StatusUnprocessableEntity, ""},
		{"invalid transition", apperror.InvalidTransition(model.OrderStatusCompleted, "approve"), http.StatusConflict, string(apperror.KindInvalidTransition)},
		{"already in state", apperror.AlreadyInState(apperror.CodeAlreadyApproved, "order already approved"), http.StatusConflict, apperror.CodeAlreadyApproved},
		{"stale", apperror.StaleState(), http.StatusConflict, ""},
		{"unauthorized", apperror.Unauthorized("not your order"), http.StatusForbidden, string(apperror.KindUnauthorized)},
		{"invalid role", apperror.InvalidRole("site_manager"), http.StatusForbidden, ""},
		{"not found", apperror.NotFound("order"), http.StatusNotFound, ""},
		{"wrapped", fmt.Errorf("transition: %w", apperror.NotFound("order")), http.StatusNotFound, ""},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, res := serve(t, func(r *gin.Engine) {
				r.GET("/x", func(c *gin.Context) { respondError(c, zap.NewNop(), tc.err) })
			}, http.MethodGet, "/x", "")

			if w.Code != tc.wantStatus || res.StatusCode != tc.wantStatus {
				t.Fatalf("Expected status %d, got %d (%+v)", tc.wantStatus, w.Code, res)
			}
			if tc.wantCode != "" && res.Code != tc.wantCode {
				t.Errorf("Expected code %s, got %s", tc.wantCode, res.Code)
			}
			if tc.wantStatus == http.StatusInternalServerError && res.Error != "internal server error" {
				t.Errorf("Expected internal details to be hidden, got %q", res.Error)
			}
		})
	}
}

func TestRespondError_ValidationCarriesFields(t *testing.T) {
	_, res := serve(t, func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) {
			respondError(c, zap.NewNop(), apperror.Validation(map[string]string{"items.1.custom_note": "required"}))
		})
	}, http.MethodGet, "/x", "")

	if res.Status != "invalid" {
		t.Errorf("Expected invalid status, got %s", res.Status)
	}
	if _, ok := res.Fields["items.1.custom_note"]; !ok {
		t.Errorf("Expected field error, got %v", res.Fields)
	}
}

type stubStatistics struct {
	err   error
	start time.Time
	end   time.Time
}

func (s *stubStatistics) GetStatistics(_ context.Context, _ service.Actor, start, end time.Time) (model.StatisticsResponse, error) {
	s.start, s.end = start, end
	return model.StatisticsResponse{TotalOrders: 4}, s.err
}

func TestStatisticsHandler(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		svcErr     error
		wantStatus int
	}{
		{"defaults to current month", "", nil, http.StatusOK},
		{"explicit range", "?start_date=2024-01-01T00:00:00Z&end_date=2024-02-01T00:00:00Z", nil, http.StatusOK},
		{"bad start date", "?start_date=yesterday", nil, http.StatusBadRequest},
		{"bad end date", "?end_date=2024-13-01", nil, http.StatusBadRequest},
		{"service refuses", "", apperror.InvalidRole("transport_manager"), http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubStatistics{err: tc.svcErr}
			h := NewStatisticsHandler(stub, zap.NewNop())
			w, _ := serve(t, func(r *gin.Engine) {
				r.GET("/api/statistics", h.GetStatistics)
			}, http.MethodGet, "/api/statistics"+tc.query, "")

			if w.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus == http.StatusOK && stub.end.Before(stub.start) {
				t.Errorf("Expected ordered range, got %v..%v", stub.start, stub.end)
			}
		})
	}
}

type stubAuth struct {
	err error
}

func (s stubAuth) Login(_ context.Context, _ service.LoginUserRequest) (*service.TokenResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.TokenResponse{Token: "signed", Role: "admin"}, nil
}

func TestAuthHandler_Login(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCookie bool
	}{
		{"success", `{"email":"site@example.com","password":"secret"}`, nil, http.StatusOK, true},
		{"bad credentials", `{"email":"site@example.com","password":"nope"}`, apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, false},
		{"malformed body", `{"email":`, nil, http.StatusBadRequest, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(stubAuth{err: tc.err}, time.Hour, false, zap.NewNop())
			w, _ := serve(t, func(r *gin.Engine) {
				h.RegisterRoutes(r.Group("/api"))
			}, http.MethodPost, "/api/login", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			hasCookie := strings.Contains(w.Header().Get("Set-Cookie"), "access_token=signed")
			if hasCookie != tc.wantCookie {
				t.Errorf("Expected cookie %v, got header %q", tc.wantCookie, w.Header().Get("Set-Cookie"))
			}
		})
	}
}

func TestRespondBindError(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantFields map[string]string
	}{
		{"malformed json", `{"email":`, nil},
		{"wrong type", `{"email":5,"password":"x"}`, nil},
		{"rule violations", `{"email":"not-an-email"}`, map[string]string{"email": "must satisfy email", "password": "is required"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, res := serve(t, func(r *gin.Engine) {
				r.POST("/x", func(c *gin.Context) {
					var req service.LoginUserRequest
					if err := c.ShouldBindJSON(&req); err != nil {
						respondBindError(c, err)
						return
					}
					c.Status(http.StatusNoContent)
				})
			}, http.MethodPost, "/x", tc.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", w.Code)
			}
			if res.Error != "invalid request body" {
				t.Errorf("Expected fixed message, got %q", res.Error)
			}
			if strings.Contains(w.Body.String(), "LoginUserRequest") || strings.Contains(w.Body.String(), "json:") {
				t.Errorf("Expected no binder internals, got %s", w.Body.String())
			}
			for field, msg := range tc.wantFields {
				if res.Fields[field] != msg {
					t.Errorf("Expected %s: %q, got %v", field, msg, res.Fields)
				}
			}
			if tc.wantFields == nil && len(res.Fields) != 0 {
				t.Errorf("Expected no field errors, got %v", res.Fields)
			}
		})
	}
}
