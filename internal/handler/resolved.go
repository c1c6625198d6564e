package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/repository"
	"eventhorizon/internal/resolution"
)

type ResolutionHandler struct {
	Repo        repository.Store
	Coordinator *resolution.Coordinator
	Logger      *zap.Logger
}

func (h *ResolutionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/resolved")
	group.GET("", h.listResolved)
	group.GET("/:marketId/scores", h.listScores)
	group.POST("/check", h.runCheck)
	group.POST("/manual", h.resolveManually)
}

func (h *ResolutionHandler) listResolved(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	markets, err := h.Repo.ListResolvedMarkets(c.Request.Context(), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, markets, map[string]any{"count": len(markets)})
}

func (h *ResolutionHandler) listScores(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	scores, err := h.Repo.ListScoresByMarket(c.Request.Context(), c.Param("marketId"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, scores, map[string]any{"count": len(scores)})
}

func (h *ResolutionHandler) runCheck(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	counts, err := h.Coordinator.CheckForResolutions(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, counts, nil)
}

type manualResolveRequest struct {
	MarketID string   `json:"marketId" binding:"required"`
	Platform string   `json:"platform"`
	Title    string   `json:"title"`
	Outcome  *float64 `json:"outcome" binding:"required"`
}

func (h *ResolutionHandler) resolveManually(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req manualResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "marketId and outcome are required", nil)
		return
	}
	scored, err := h.Coordinator.ResolveManually(c.Request.Context(), req.MarketID, req.Platform, req.Title, *req.Outcome)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"marketId": req.MarketID, "scored": scored}, nil)
}
