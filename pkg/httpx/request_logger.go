package httpx

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/pkg/ctxmeta"
)

// RequestLogger — middleware для логирования HTTP-запросов.
// Пути из quiet (пробы, скрейп метрик) пишутся на уровне debug.
func RequestLogger(log ports.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logf := log.Infof
		if _, ok := skip[path]; ok {
			logf = log.Debugf
		}
		if c.Writer.Status() >= 500 {
			logf = log.Warnf
		}

		rid, _ := ctxmeta.RequestIDFromContext(c.Request.Context())
		tr, _ := ctxmeta.TraceIDFromContext(c.Request.Context())

		logf(
			c.Request.Context(),
			"request id=%s trace=%s method=%s path=%s status=%d ip=%s duration=%s size=%d",
			rid, tr,
			c.Request.Method,
			path,
			c.Writer.Status(),
			c.ClientIP(),
			time.Since(start),
			c.Writer.Size(),
		)
	}
}
