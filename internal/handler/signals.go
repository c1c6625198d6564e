package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/aggregation"
)

type SignalHandler struct {
	Aggregator *aggregation.Aggregator
	Logger     *zap.Logger
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/signals")
	group.GET("", h.listSignals)
	group.GET("/:marketId", h.getSignal)
}

func (h *SignalHandler) listSignals(c *gin.Context) {
	if h.Aggregator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	signals, err := h.Aggregator.AllSignals(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, signals, map[string]any{"count": len(signals)})
}

func (h *SignalHandler) getSignal(c *gin.Context) {
	if h.Aggregator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	marketID := c.Param("marketId")
	signal, err := h.Aggregator.MarketSignal(c.Request.Context(), marketID)
	if err != nil {
		Fail(c, err)
		return
	}
	if signal == nil {
		Error(c, http.StatusNotFound, "no active predictions for market", nil)
		return
	}
	Ok(c, signal, nil)
}
