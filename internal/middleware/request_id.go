package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID 请求ID头
	HeaderRequestID = "X-Request-ID"
	// ContextRequestID gin上下文中的请求ID键
	ContextRequestID = "requestID"

	maxRequestIDLen = 128
)

// RequestID 复用客户端传入的合法请求ID，否则生成新的UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// validRequestID 非空、不超过128字节且只含可见ASCII字符
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetRequestID 从上下文读取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
