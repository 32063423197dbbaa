package api

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/middleware"
)

// retryAfterSeconds 上游或存储暂时不可用时建议客户端等待的秒数
const retryAfterSeconds = "5"

// respondError 输出统一错误响应，未归类的错误按ErrUnknown处理
func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	if apperrors.IsRetryable(appErr) {
		c.Header("Retry-After", retryAfterSeconds)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr, middleware.GetRequestID(c)))
}
