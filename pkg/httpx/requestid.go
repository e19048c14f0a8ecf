package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Gunvolt24/kafka_transformer/pkg/ctxmeta"
)

const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen — длиннее не доверяем клиенту, генерируем свой.
const maxRequestIDLen = 128

// RequestIDMiddleware берёт X-Request-ID клиента (если он разумный) или генерирует UUID,
// кладёт его в контекст запроса и возвращает в ответе.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if !acceptableRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(ctxmeta.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// acceptableRequestID — непустой, не слишком длинный, только печатный ASCII без пробелов.
func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
