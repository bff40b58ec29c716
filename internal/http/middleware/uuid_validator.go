package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры пути являются валидными UUID.
// Использование: escrow.POST("/:jobId/cancel", UUIDValidator("jobId"), handler.Cancel)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			raw := c.Param(name)
			if raw == "" {
				abortWithError(c, apperror.New(apperror.ErrCodeValidation, "параметр "+name+" обязателен"))
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				abortWithError(c, apperror.New(apperror.ErrCodeValidation, "параметр "+name+" должен быть валидным UUID"))
				return
			}
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *apperror.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, ErrorResponse{Error: err.Message, Code: err.Code, Hint: err.Hint})
}
