package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/pkg/httpx"
)

const (
	defaultFailuresLimit = 20
	maxFailuresLimit     = 200
)

// Handler — ops-эндпоинты движка: состояние и журнал ошибок.
type Handler struct {
	engine  ports.Engine
	journal ports.FailureJournal // nil — журнал выключен
	log     ports.Logger
	timeout time.Duration
}

func NewHandler(engine ports.Engine, journal ports.FailureJournal, log ports.Logger, timeout time.Duration) *Handler {
	return &Handler{engine: engine, journal: journal, log: log, timeout: timeout}
}

// NewRouter — gin-роутер ops-эндпоинтов.
// otelServiceName != "" включает otelgin-middleware.
func NewRouter(h *Handler, otelServiceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if otelServiceName != "" {
		r.Use(otelgin.Middleware(otelServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log, "/ping", "/metrics", "/state"))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/state", h.state)
	r.GET("/failures", h.failures)

	return r
}

// state — срез движка; 503, пока движок не в Running (удобно для liveness-проб).
func (h *Handler) state(c *gin.Context) {
	snap := h.engine.Snapshot()
	status := http.StatusOK
	if snap.State != "running" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, snap)
}

func (h *Handler) failures(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "failure journal disabled"})
		return
	}
	limit, offset, err := httpx.ParseLimitOffset(c, defaultFailuresLimit, maxFailuresLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	items, err := h.journal.Recent(ctx, limit, offset)
	if err != nil {
		h.log.Errorf(ctx, "journal recent failed limit=%d offset=%d err=%v", limit, offset, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if items == nil {
		items = []domain.Failure{}
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}
