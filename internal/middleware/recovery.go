package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/logger"
	"go.uber.org/zap"
)

// Recovery 捕获panic，记录日志并返回统一的错误响应
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.LogPanic(log.With(zap.String("request_id", GetRequestID(c))), rec, debug.Stack())

				appErr := apperrors.New(apperrors.ErrUnknown)
				c.AbortWithStatusJSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr, GetRequestID(c)))
			}
		}()
		c.Next()
	}
}
