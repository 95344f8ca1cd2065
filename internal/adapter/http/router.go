package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderappu/recon-api/internal/adapter/http/middleware"
	"github.com/orderappu/recon-api/internal/logging"
)

func NewRouter(h *ReconHandler, th *TokenHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Info("health check")
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", authz.Require("orders.write"), h.Place)
		v1.POST("/orders/:id/reconcile", authz.Require("orders.write"), h.Reconcile)
		v1.POST("/orders/:id/cancel", authz.Require("orders.write"), h.Cancel)
		v1.POST("/orders/:id/items", authz.Require("orders.write"), h.AddItem)
		v1.DELETE("/orders/:id/items/:itemId", authz.Require("orders.write"), h.RemoveItem)
		v1.POST("/orders/bulk/approve", authz.Require("orders.admin"), h.BulkApprove)
		v1.POST("/orders/bulk/place", authz.Require("orders.admin"), h.BulkPlace)
		v1.GET("/sagas/:id", authz.Require("orders.read"), h.SagaStatus)
	}

	return r
}
