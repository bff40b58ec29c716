package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error string             `json:"error"`
	Code  apperror.ErrorCode `json:"code"`
	Hint  string             `json:"hint,omitempty"`
}

// ErrorHandler обрабатывает ошибки централизованно.
// AppError отдаётся клиенту как есть, остальные ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}

		appErr, ok := apperror.As(err)
		if !ok {
			logger.WithFields(fields).Error("Request error")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "внутренняя ошибка сервера",
				Code:  apperror.ErrCodeInternal,
			})
			return
		}

		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.WithFields(fields).Error("Request error")
		} else {
			logger.WithFields(fields).Debug("Request rejected")
		}

		c.JSON(appErr.HTTPStatus, ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
			Hint:  appErr.Hint,
		})
	}
}
