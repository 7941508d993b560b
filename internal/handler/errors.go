package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"sitesupply/internal/apperror"
	"sitesupply/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Binding failures report fields by their JSON names.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:        http.StatusUnprocessableEntity,
	apperror.KindInsufficientStock: http.StatusUnprocessableEntity,
	apperror.KindInvalidTransition: http.StatusConflict,
	apperror.KindAlreadyInState:    http.StatusConflict,
	apperror.KindStaleState:        http.StatusConflict,
	apperror.KindUnauthorized:      http.StatusForbidden,
	apperror.KindInvalidRole:       http.StatusForbidden,
	apperror.KindNotFound:          http.StatusNotFound,
}

// respondError writes err as a tagged response. Errors outside the domain
// taxonomy are logged and reported without their message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		logger.Error("unexpected error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
		return
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	code := appErr.Code
	if code == "" {
		code = string(appErr.Kind)
	}
	if len(appErr.Fields) > 0 {
		c.JSON(status, response.ValidationFailed(status, code, appErr.Message, appErr.Fields))
		return
	}
	c.JSON(status, response.Failed(status, code, appErr.Message))
}

// respondBindError reports rule violations per field and everything else,
// such as malformed JSON or mistyped values, with a fixed message.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request body"))
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			fields[fe.Field()] = "is required"
		} else {
			fields[fe.Field()] = "must satisfy " + fe.Tag()
		}
	}
	c.JSON(http.StatusBadRequest, response.ValidationFailed(http.StatusBadRequest, apperror.CodeValidation, "invalid request body", fields))
}
