package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/marketfeed"
	"eventhorizon/internal/models"
	"eventhorizon/internal/regime"
	"eventhorizon/internal/repository"
	"eventhorizon/internal/service"
)

type MarketHandler struct {
	Repo   repository.Store
	Feed   *marketfeed.Client
	Sync   *service.CatalogSyncService
	Logger *zap.Logger

	HistoryDays int
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/markets")
	group.GET("", h.listMarkets)
	group.GET("/:platform/:id/history", h.marketHistory)
	group.POST("/sync", h.syncCatalog)
}

func (h *MarketHandler) listMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	markets, err := h.Repo.ListMarkets(c.Request.Context(), repository.ListMarketsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Platform: strQueryPtr(c, "platform"),
		Status:   strQueryPtr(c, "status"),
		Category: strQueryPtr(c, "category"),
		Search:   strQueryPtr(c, "search"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, markets, map[string]any{"count": len(markets)})
}

// marketHistory returns the market's recent probability trajectory together
// with the regime metrics computed over it.
func (h *MarketHandler) marketHistory(c *gin.Context) {
	if h.Feed == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	platform := c.Param("platform")
	marketID := c.Param("id")
	days := intQuery(c, "days", h.HistoryDays)

	points, err := h.Feed.MarketHistory(c.Request.Context(), platform, marketID, days)
	if err != nil {
		Fail(c, err)
		return
	}
	series := make([]models.SignalPoint, 0, len(points))
	for _, p := range points {
		sp := models.SignalPoint{
			Date:      p.Timestamp,
			P:         p.Probability,
			Liquidity: models.DefaultLiquidity,
		}
		if p.Liquidity != nil && *p.Liquidity > 0 {
			sp.Liquidity = *p.Liquidity
		}
		series = append(series, sp)
	}
	metrics := regime.Classify(series)
	Ok(c, gin.H{
		"marketId": marketID,
		"platform": platform,
		"points":   points,
		"regime":   metrics,
	}, map[string]any{"count": len(points), "asOf": time.Now().UTC()})
}

func (h *MarketHandler) syncCatalog(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Sync.Sync(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}
