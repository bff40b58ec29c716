package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/dto"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/middleware"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// CurrentActor extracts the authenticated user and role from Gin context
func CurrentActor(c *gin.Context) (service.Actor, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return service.Actor{}, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return service.Actor{}, apperror.ErrUnauthorized
	}

	return service.Actor{UserID: userID, Role: c.GetString(middleware.ContextRoleKey)}, nil
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Detail(apperror.ErrValidation, "параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, apperror.Detail(apperror.ErrValidation, "параметр %s должен быть валидным UUID", paramName)
	}

	return parsed, nil
}

// BindJSON binds JSON request and returns a validation AppError
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error())
	}
	return nil
}

// Fail hands the error to middleware.ErrorHandler
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RespondSuccess sends a standardized success response
func RespondSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
