package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/auth"
	"eventhorizon/internal/repository"
	"eventhorizon/internal/service"
)

type PredictionHandler struct {
	Service *service.PredictionService
	Auth    *auth.Service
	Logger  *zap.Logger
}

func (h *PredictionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/predictions", auth.Middleware(h.Auth))
	group.POST("", h.submit)
	group.GET("/mine", h.listMine)
	group.DELETE("/:id", h.cancel)
}

type submitRequest struct {
	MarketID    string   `json:"marketId" binding:"required"`
	Platform    string   `json:"platform"`
	Probability *float64 `json:"probability" binding:"required"`
	Confidence  *float64 `json:"confidence" binding:"required"`
	Stake       float64  `json:"stake"`
}

func (h *PredictionHandler) submit(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	forecasterID, ok := auth.ForecasterID(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "marketId, probability and confidence are required", nil)
		return
	}
	pred, err := h.Service.Submit(c.Request.Context(), service.SubmitInput{
		ForecasterID: forecasterID,
		MarketID:     req.MarketID,
		Platform:     req.Platform,
		Probability:  *req.Probability,
		Confidence:   *req.Confidence,
		Stake:        req.Stake,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, pred, nil)
}

func (h *PredictionHandler) listMine(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	forecasterID, ok := auth.ForecasterID(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	preds, err := h.Service.ListMine(c.Request.Context(), forecasterID, repository.ListPredictionsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Status: strQueryPtr(c, "status"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, preds, nil)
}

func (h *PredictionHandler) cancel(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	forecasterID, ok := auth.ForecasterID(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	if err := h.Service.Cancel(c.Request.Context(), forecasterID, c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"cancelled": true}, nil)
}
